package model

import "time"

const TERMINAL_COMPLETED = "completed"
const TERMINAL_NO_TRIGGER = "no_matching_trigger"

type Step struct {
	NodeId  string   `json:"nodeId"`
	Type    NodeType `json:"type"`
	Outcome string   `json:"outcome"`
}

// RunResult is the outcome of one workflow run as reported to the event source.
type RunResult struct {
	RunId        string    `json:"runId"`
	WorkflowId   string    `json:"workflowId"`
	WorkflowName string    `json:"workflowName,omitempty"`
	Event        EventType `json:"event"`
	Success      bool      `json:"success"`
	Terminal     string    `json:"terminal,omitempty"`
	Error        string    `json:"error,omitempty"`
	Steps        []Step    `json:"steps,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
}
