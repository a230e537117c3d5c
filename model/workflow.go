package model

import "strings"

type NodeType string

const NODE_TYPE_TRIGGER NodeType = "trigger"
const NODE_TYPE_CONDITION NodeType = "condition"
const NODE_TYPE_ACTION NodeType = "action"

func ToNodeType(t string) NodeType {
	return NodeType(strings.ToLower(strings.TrimSpace(t)))
}

const LABEL_TRUE = "true"
const LABEL_FALSE = "false"

// WorkflowDefinition is the graph produced by the workflow editor. The engine only reads it.
type WorkflowDefinition struct {
	Id            string           `json:"id"`
	Name          string           `json:"name"`
	Scope         string           `json:"scope"`
	Active        bool             `json:"active"`
	TriggerEvents []EventType      `json:"triggerEvents"`
	CreatedBy     string           `json:"createdBy"`
	Version       int              `json:"version"`
	Nodes         []NodeDefinition `json:"nodes"`
	Edges         []EdgeDefinition `json:"edges"`
}

type NodeDefinition struct {
	Id     string         `json:"id"`
	Type   string         `json:"type"`
	Kind   string         `json:"kind,omitempty"`
	Events []EventType    `json:"events,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

type EdgeDefinition struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// RespondsTo reports whether event is in the workflow's trigger set.
func (wf *WorkflowDefinition) RespondsTo(event EventType) bool {
	for _, e := range wf.TriggerEvents {
		if e == event {
			return true
		}
	}
	return false
}

// BranchOf maps an edge label to the condition outcome it selects.
// An absent label is the default (true) branch. ok is false for any other label.
func BranchOf(label string) (outcome bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", LABEL_TRUE:
		return true, true
	case LABEL_FALSE:
		return false, true
	}
	return false, false
}
