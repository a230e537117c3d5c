package action

import (
	"context"

	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/util"
	"go.uber.org/zap"
)

var _ Action = new(setStatusAction)

// setStatusAction backs both set-validation-status and route-to-queue. Routing to a
// queue is expressed as the status that places the entity in that queue.
type setStatusAction struct {
	baseAction
	queue     string
	rawStatus string
	status    entity.Status
	resolved  bool
	allowRaw  bool
}

func newSetValidationStatus(base baseAction) *setStatusAction {
	a := &setStatusAction{baseAction: base, allowRaw: true}
	a.queue, _ = util.GetString(base.config, "queue")
	a.rawStatus, _ = util.GetString(base.config, "status")
	a.resolve()
	return a
}

func newRouteToQueue(base baseAction) *setStatusAction {
	a := &setStatusAction{baseAction: base}
	a.queue, _ = util.GetString(base.config, "queue")
	a.resolve()
	return a
}

func (a *setStatusAction) resolve() {
	if a.queue != "" {
		a.status, a.resolved = entity.StatusForQueue(a.queue)
		return
	}
	if a.allowRaw && a.rawStatus != "" {
		a.status, a.resolved = entity.ToStatus(a.rawStatus)
	}
}

func (a *setStatusAction) Validate() error {
	if a.queue == "" && (!a.allowRaw || a.rawStatus == "") {
		if a.allowRaw {
			return configError(a.id, "queue or status is required")
		}
		return configError(a.id, "queue is required")
	}
	if !a.resolved {
		if a.queue != "" {
			return configError(a.id, "unknown queue %q", a.queue)
		}
		return configError(a.id, "unknown status %q", a.rawStatus)
	}
	return nil
}

func (a *setStatusAction) Execute(ctx context.Context, execCtx *model.ExecutionContext, env *Env) error {
	if !a.resolved {
		logger.Warn("action has no valid target status, skipping", zap.String("actionId", a.id), zap.String("queue", a.queue), zap.String("status", a.rawStatus))
		return nil
	}
	ref, ok := subjectOrSkip(&a.baseAction, execCtx)
	if !ok {
		return nil
	}
	logger.Info("running action", zap.String("actionId", a.id), zap.String("kind", string(a.kind)), zap.String("workflow", env.WorkflowName), zap.String("entity", ref.String()), zap.String("status", string(a.status)))
	return absorbNotFound(&a.baseAction, execCtx, ref, env.Store.UpdateStatus(ctx, ref, a.status))
}

var _ Action = new(setPriorityAction)

type setPriorityAction struct {
	baseAction
	priority int
	valid    bool
}

func newSetPriority(base baseAction) *setPriorityAction {
	p, ok := util.GetInt(base.config, "priority")
	return &setPriorityAction{baseAction: base, priority: p, valid: ok}
}

func (a *setPriorityAction) Validate() error {
	if !a.valid {
		return configError(a.id, "priority must be an integer")
	}
	return nil
}

func (a *setPriorityAction) Execute(ctx context.Context, execCtx *model.ExecutionContext, env *Env) error {
	if !a.valid {
		logger.Warn("action has no valid priority, skipping", zap.String("actionId", a.id))
		return nil
	}
	ref, ok := subjectOrSkip(&a.baseAction, execCtx)
	if !ok {
		return nil
	}
	logger.Info("running action", zap.String("actionId", a.id), zap.String("kind", string(a.kind)), zap.String("workflow", env.WorkflowName), zap.String("entity", ref.String()), zap.Int("priority", a.priority))
	return absorbNotFound(&a.baseAction, execCtx, ref, env.Store.UpdatePriority(ctx, ref, a.priority))
}
