package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/model"
	"go.uber.org/zap"
)

// Notification is handed to the delivery collaborator. Delivery itself (email, webhook)
// happens outside the engine.
type Notification struct {
	Event        model.EventType `json:"event"`
	ScopeId      string          `json:"scope"`
	WorkflowId   string          `json:"workflowId"`
	WorkflowName string          `json:"workflowName,omitempty"`
	RunId        string          `json:"runId"`
	NodeId       string          `json:"nodeId,omitempty"`
	DocumentId   string          `json:"documentId,omitempty"`
	BatchId      string          `json:"batchId,omitempty"`
	Channel      string          `json:"channel,omitempty"`
	Recipients   []string        `json:"recipients,omitempty"`
	Message      string          `json:"message"`
	Data         map[string]any  `json:"data,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

var _ Notifier = new(LogNotifier)

// LogNotifier writes notifications to the service log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger.Info("notification",
		zap.String("workflow", n.WorkflowId),
		zap.String("runId", n.RunId),
		zap.String("channel", n.Channel),
		zap.Strings("recipients", n.Recipients),
		zap.String("message", n.Message),
	)
	return nil
}

type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, n Notification) error {
	return nil
}

// BestEffort delivers n and swallows every failure, panics included. The returned error
// is informational only.
func BestEffort(ctx context.Context, notifier Notifier, n Notification) (err error) {
	if notifier == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panicked: %v", r)
		}
		if err != nil {
			logger.Warn("notification not delivered", zap.String("workflow", n.WorkflowId), zap.String("runId", n.RunId), zap.Error(err))
		}
	}()
	return notifier.Notify(ctx, n)
}
