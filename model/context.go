package model

// EventContext is the bundle an event source attaches to a lifecycle event.
type EventContext struct {
	DocumentId string         `json:"documentId,omitempty"`
	BatchId    string         `json:"batchId,omitempty"`
	ActorId    string         `json:"actorId,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ExecutionContext lives for exactly one workflow run and is owned by that run.
type ExecutionContext struct {
	RunId      string
	Event      EventType
	ScopeId    string
	DocumentId string
	BatchId    string
	ActorId    string
	Metadata   map[string]any
}

func NewExecutionContext(runId string, event EventType, scopeId string, ec EventContext) *ExecutionContext {
	metadata := make(map[string]any, len(ec.Metadata))
	for k, v := range ec.Metadata {
		metadata[k] = v
	}
	return &ExecutionContext{
		RunId:      runId,
		Event:      event,
		ScopeId:    scopeId,
		DocumentId: ec.DocumentId,
		BatchId:    ec.BatchId,
		ActorId:    ec.ActorId,
		Metadata:   metadata,
	}
}

// Data exposes the context as a plain map for jsonpath lookups and scripts.
func (c *ExecutionContext) Data() map[string]any {
	return map[string]any{
		"runId":      c.RunId,
		"event":      string(c.Event),
		"scopeId":    c.ScopeId,
		"documentId": c.DocumentId,
		"batchId":    c.BatchId,
		"actorId":    c.ActorId,
		"metadata":   c.Metadata,
	}
}
