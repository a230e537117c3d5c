package action

import (
	"context"
	"fmt"

	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/notify"
	"github.com/intakehq/autoflow/util"
	"go.uber.org/zap"
)

// CRITICAL_FIELDS must all hold a non-blank value before a document is auto-validated.
var CRITICAL_FIELDS = []string{"invoice_number", "invoice_date", "total_amount", "vendor_name"}

var _ Action = new(autoValidateAction)

type autoValidateAction struct {
	baseAction
	channel string
}

func newAutoValidate(base baseAction) *autoValidateAction {
	channel, _ := util.GetString(base.config, "channel")
	return &autoValidateAction{baseAction: base, channel: channel}
}

func (a *autoValidateAction) Validate() error {
	return nil
}

func (a *autoValidateAction) Execute(ctx context.Context, execCtx *model.ExecutionContext, env *Env) error {
	if execCtx.DocumentId == "" {
		logger.Info("auto-validate needs a document, skipping", zap.String("actionId", a.id), zap.String("runId", execCtx.RunId))
		return nil
	}
	ref := entity.DocumentRef(execCtx.DocumentId)
	attrs := []entity.Attribute{entity.ATTR_STATUS}
	for _, f := range CRITICAL_FIELDS {
		attrs = append(attrs, entity.FieldAttribute(f))
	}
	snap, err := env.Store.Read(ctx, ref, attrs...)
	if err != nil {
		return fmt.Errorf("actionId=%s, reading %s: %w", a.id, ref, err)
	}
	if !snap.Found {
		logger.Warn("entity not found, skipping action", zap.String("actionId", a.id), zap.String("entity", ref.String()), zap.String("runId", execCtx.RunId))
		return nil
	}
	if status, ok := snap.Status(); ok && status == entity.STATUS_VALIDATED {
		logger.Info("document already validated", zap.String("actionId", a.id), zap.String("documentId", ref.Id))
		return nil
	}
	if missing := missingCriticalFields(snap); len(missing) > 0 {
		logger.Info("critical fields missing, document left for manual review", zap.String("actionId", a.id), zap.String("documentId", ref.Id), zap.Strings("missing", missing))
		return nil
	}

	at := env.now()
	logger.Info("running action", zap.String("actionId", a.id), zap.String("kind", string(a.kind)), zap.String("workflow", env.WorkflowName), zap.String("documentId", ref.Id), zap.String("validatedBy", env.Actor))
	if err := env.Store.MarkValidated(ctx, ref, at, env.Actor); err != nil {
		return absorbNotFound(&a.baseAction, execCtx, ref, err)
	}

	notify.BestEffort(ctx, env.Notifier, notify.Notification{
		Event:        execCtx.Event,
		ScopeId:      execCtx.ScopeId,
		WorkflowId:   env.WorkflowId,
		WorkflowName: env.WorkflowName,
		RunId:        execCtx.RunId,
		NodeId:       a.id,
		DocumentId:   ref.Id,
		BatchId:      execCtx.BatchId,
		Channel:      a.channel,
		Message:      fmt.Sprintf("document %s was auto-validated by %s", ref.Id, env.Actor),
		Data:         map[string]any{"validatedBy": env.Actor},
		CreatedAt:    at,
	})
	return nil
}

func missingCriticalFields(snap *entity.Snapshot) []string {
	var missing []string
	for _, f := range CRITICAL_FIELDS {
		v, ok := snap.Field(f)
		if !ok || !entity.HasValue(v) {
			missing = append(missing, f)
		}
	}
	return missing
}
