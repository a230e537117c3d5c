package condition

import (
	"context"

	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/model"
	"go.uber.org/zap"
)

var _ Condition = new(unknownCondition)

type unknownCondition struct {
	baseCondition
}

func (c *unknownCondition) Validate() error {
	return nil
}

func (c *unknownCondition) Evaluate(ctx context.Context, execCtx *model.ExecutionContext, reader entity.Reader) (bool, error) {
	logger.Warn("unknown condition kind evaluates to false", zap.String("conditionId", c.id), zap.String("kind", string(c.kind)))
	return false, nil
}
