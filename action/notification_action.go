package action

import (
	"context"

	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/notify"
	"github.com/intakehq/autoflow/util"
	"go.uber.org/zap"
)

var _ Action = new(sendNotificationAction)

type sendNotificationAction struct {
	baseAction
	message    string
	channel    string
	recipients []string
}

func newSendNotification(base baseAction) *sendNotificationAction {
	a := &sendNotificationAction{baseAction: base}
	a.message, _ = util.GetString(base.config, "message")
	a.channel, _ = util.GetString(base.config, "channel")
	a.recipients, _ = util.GetStringSlice(base.config, "recipients")
	return a
}

func (a *sendNotificationAction) Validate() error {
	if a.message == "" {
		return configError(a.id, "message can not be empty")
	}
	return nil
}

// Execute never fails the run. Delivery problems are logged by the notifier wrapper.
func (a *sendNotificationAction) Execute(ctx context.Context, execCtx *model.ExecutionContext, env *Env) error {
	data := execCtx.Data()
	n := notify.Notification{
		Event:        execCtx.Event,
		ScopeId:      execCtx.ScopeId,
		WorkflowId:   env.WorkflowId,
		WorkflowName: env.WorkflowName,
		RunId:        execCtx.RunId,
		NodeId:       a.id,
		DocumentId:   execCtx.DocumentId,
		BatchId:      execCtx.BatchId,
		Channel:      a.channel,
		Recipients:   a.recipients,
		Message:      util.ResolveTemplate(data, a.message),
		Data:         util.ResolveParams(data, a.config),
		CreatedAt:    env.now(),
	}
	logger.Info("running action", zap.String("actionId", a.id), zap.String("kind", string(a.kind)), zap.String("workflow", env.WorkflowName), zap.String("runId", execCtx.RunId))
	notify.BestEffort(ctx, env.Notifier, n)
	return nil
}
