package action

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/notify"
	"go.uber.org/zap"
)

type Kind string

const SET_VALIDATION_STATUS Kind = "set-validation-status"
const ROUTE_TO_QUEUE Kind = "route-to-queue"
const SET_PRIORITY Kind = "set-priority"
const AUTO_VALIDATE Kind = "auto-validate"
const SEND_NOTIFICATION Kind = "send-notification"

var KNOWN_KINDS = []Kind{SET_VALIDATION_STATUS, ROUTE_TO_QUEUE, SET_PRIORITY, AUTO_VALIDATE, SEND_NOTIFICATION}

// SYSTEM_ACTOR stamps validations when neither the event nor the workflow names a user.
const SYSTEM_ACTOR = "system"

func ToKind(k string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(k)))
}

func IsKnown(k Kind) bool {
	for _, known := range KNOWN_KINDS {
		if known == k {
			return true
		}
	}
	return false
}

// Env carries the collaborators and per-run facts an action may use.
type Env struct {
	Store        entity.Store
	Notifier     notify.Notifier
	Actor        string
	WorkflowId   string
	WorkflowName string
	Now          func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now()
}

// ResolveActor picks the identity recorded for user-visible changes: the actor that
// raised the event, else the workflow owner.
func ResolveActor(execCtx *model.ExecutionContext, wf *model.WorkflowDefinition) string {
	if execCtx != nil && strings.TrimSpace(execCtx.ActorId) != "" {
		return execCtx.ActorId
	}
	if wf != nil && strings.TrimSpace(wf.CreatedBy) != "" {
		return wf.CreatedBy
	}
	return SYSTEM_ACTOR
}

// Action performs one side effect. Data problems (missing entity, missing fields) are
// no-ops. A returned error means a collaborator failed and fails the run.
type Action interface {
	GetId() string
	GetKind() Kind
	Validate() error
	Execute(ctx context.Context, execCtx *model.ExecutionContext, env *Env) error
}

type baseAction struct {
	id     string
	kind   Kind
	config map[string]any
}

func (ba *baseAction) GetId() string {
	return ba.id
}

func (ba *baseAction) GetKind() Kind {
	return ba.kind
}

// New builds the action for a node definition. Unknown kinds produce a no-op action.
func New(def model.NodeDefinition) Action {
	base := baseAction{id: def.Id, kind: ToKind(def.Kind), config: def.Config}
	if base.config == nil {
		base.config = map[string]any{}
	}
	switch base.kind {
	case SET_VALIDATION_STATUS:
		return newSetValidationStatus(base)
	case ROUTE_TO_QUEUE:
		return newRouteToQueue(base)
	case SET_PRIORITY:
		return newSetPriority(base)
	case AUTO_VALIDATE:
		return newAutoValidate(base)
	case SEND_NOTIFICATION:
		return newSendNotification(base)
	}
	return &unknownAction{baseAction: base}
}

func configError(id string, format string, args ...any) error {
	return fmt.Errorf("actionId=%s, %s", id, fmt.Sprintf(format, args...))
}

// absorbNotFound turns a write against a vanished entity into a logged no-op.
func absorbNotFound(ba *baseAction, execCtx *model.ExecutionContext, ref entity.Ref, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, entity.ErrNotFound) {
		logger.Warn("entity not found, skipping action", zap.String("actionId", ba.id), zap.String("entity", ref.String()), zap.String("runId", execCtx.RunId))
		return nil
	}
	return fmt.Errorf("actionId=%s, writing %s: %w", ba.id, ref, err)
}

func subjectOrSkip(ba *baseAction, execCtx *model.ExecutionContext) (entity.Ref, bool) {
	ref, ok := entity.Subject(execCtx)
	if !ok {
		logger.Warn("no document or batch in context, skipping action", zap.String("actionId", ba.id), zap.String("kind", string(ba.kind)))
	}
	return ref, ok
}

var _ Action = new(unknownAction)

type unknownAction struct {
	baseAction
}

func (a *unknownAction) Validate() error {
	return nil
}

func (a *unknownAction) Execute(ctx context.Context, execCtx *model.ExecutionContext, env *Env) error {
	logger.Warn("unknown action kind, skipping", zap.String("actionId", a.id), zap.String("kind", string(a.kind)))
	return nil
}
