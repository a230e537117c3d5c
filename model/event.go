package model

import "strings"

type EventType string

const EVENT_DOCUMENT_UPLOADED EventType = "document-uploaded"
const EVENT_VALIDATION_COMPLETED EventType = "validation-completed"
const EVENT_BATCH_EXPORTED EventType = "batch-exported"
const EVENT_BATCH_COMPLETED EventType = "batch-completed"

var KNOWN_EVENTS = []EventType{
	EVENT_DOCUMENT_UPLOADED,
	EVENT_VALIDATION_COMPLETED,
	EVENT_BATCH_EXPORTED,
	EVENT_BATCH_COMPLETED,
}

func ToEventType(e string) EventType {
	return EventType(strings.ToLower(strings.TrimSpace(e)))
}

// IsKnown reports whether the event is part of the built-in vocabulary.
// Other event strings are still dispatched; the vocabulary is open for extension.
func (e EventType) IsKnown() bool {
	for _, k := range KNOWN_EVENTS {
		if k == e {
			return true
		}
	}
	return false
}

// DispatchRequest is the inbound lifecycle event as received over REST or gRPC.
type DispatchRequest struct {
	Event   EventType    `json:"event"`
	ScopeId string       `json:"scope"`
	Context EventContext `json:"context"`
	Async   bool         `json:"async,omitempty"`
}
