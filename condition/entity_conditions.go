package condition

import (
	"context"
	"strings"

	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/util"
)

// thresholdEpsilon absorbs float error in score*100, so 0.85 passes a threshold of 85.
const thresholdEpsilon = 1e-9

var _ Condition = new(confidenceThreshold)

type confidenceThreshold struct {
	baseCondition
	threshold float64
	valid     bool
}

func newConfidenceThreshold(base baseCondition) *confidenceThreshold {
	threshold, ok := util.GetFloat(base.config, "threshold")
	return &confidenceThreshold{baseCondition: base, threshold: threshold, valid: ok}
}

func (c *confidenceThreshold) Validate() error {
	if !c.valid {
		return configError(c.id, "threshold must be a number")
	}
	if c.threshold < 0 || c.threshold > 100 {
		return configError(c.id, "threshold must be between 0 and 100, got %v", c.threshold)
	}
	return nil
}

func (c *confidenceThreshold) Evaluate(ctx context.Context, execCtx *model.ExecutionContext, reader entity.Reader) (bool, error) {
	if !c.valid {
		return false, nil
	}
	snap, err := readSubject(ctx, execCtx, reader, entity.ATTR_CONFIDENCE)
	if err != nil {
		return false, err
	}
	score, ok := snap.Confidence()
	if !ok {
		return false, nil
	}
	return score*100+thresholdEpsilon >= c.threshold, nil
}

var _ Condition = new(documentTypeMatch)

type documentTypeMatch struct {
	baseCondition
	documentType string
}

func newDocumentTypeMatch(base baseCondition) *documentTypeMatch {
	dt, _ := util.GetString(base.config, "documentType")
	return &documentTypeMatch{baseCondition: base, documentType: dt}
}

func (c *documentTypeMatch) Validate() error {
	if c.documentType == "" {
		return configError(c.id, "documentType can not be empty")
	}
	return nil
}

// Evaluate compares document types exactly; "Invoice" does not match "invoice".
func (c *documentTypeMatch) Evaluate(ctx context.Context, execCtx *model.ExecutionContext, reader entity.Reader) (bool, error) {
	if c.documentType == "" {
		return false, nil
	}
	snap, err := readSubject(ctx, execCtx, reader, entity.ATTR_DOCUMENT_TYPE)
	if err != nil {
		return false, err
	}
	dt, ok := snap.DocumentType()
	return ok && dt == c.documentType, nil
}

var _ Condition = new(fieldValueContains)

type fieldValueContains struct {
	baseCondition
	field string
	value string
}

func newFieldValueContains(base baseCondition) *fieldValueContains {
	field, _ := util.GetString(base.config, "field")
	value, _ := util.GetString(base.config, "value")
	return &fieldValueContains{baseCondition: base, field: field, value: value}
}

func (c *fieldValueContains) Validate() error {
	if c.field == "" {
		return configError(c.id, "field can not be empty")
	}
	if _, ok := c.config["value"].(string); !ok {
		return configError(c.id, "value must be a string")
	}
	return nil
}

func (c *fieldValueContains) Evaluate(ctx context.Context, execCtx *model.ExecutionContext, reader entity.Reader) (bool, error) {
	if c.field == "" {
		return false, nil
	}
	snap, err := readSubject(ctx, execCtx, reader, entity.FieldAttribute(c.field))
	if err != nil {
		return false, err
	}
	text, ok := snap.FieldText(c.field)
	if !ok {
		return false, nil
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(c.value)), nil
}
