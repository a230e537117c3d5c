package flow

import (
	"github.com/intakehq/autoflow/action"
	"github.com/intakehq/autoflow/condition"
	"github.com/intakehq/autoflow/model"
)

// Node is one of *TriggerNode, *ConditionNode, *ActionNode or *UnknownNode.
type Node interface {
	GetId() string
	GetType() model.NodeType
	node()
}

type TriggerNode struct {
	Id     string
	Events []model.EventType
}

type ConditionNode struct {
	Id        string
	Condition condition.Condition
}

type ActionNode struct {
	Id     string
	Action action.Action
}

// UnknownNode keeps definitions with an unrecognized node type loadable. It never runs.
type UnknownNode struct {
	Id   string
	Type string
}

func (n *TriggerNode) GetId() string   { return n.Id }
func (n *ConditionNode) GetId() string { return n.Id }
func (n *ActionNode) GetId() string    { return n.Id }
func (n *UnknownNode) GetId() string   { return n.Id }

func (n *TriggerNode) GetType() model.NodeType   { return model.NODE_TYPE_TRIGGER }
func (n *ConditionNode) GetType() model.NodeType { return model.NODE_TYPE_CONDITION }
func (n *ActionNode) GetType() model.NodeType    { return model.NODE_TYPE_ACTION }
func (n *UnknownNode) GetType() model.NodeType   { return model.NodeType(n.Type) }

func (*TriggerNode) node()   {}
func (*ConditionNode) node() {}
func (*ActionNode) node()    {}
func (*UnknownNode) node()   {}

// Matches reports whether the trigger starts a run for event. A trigger without its own
// event list uses the workflow's trigger set.
func (n *TriggerNode) Matches(event model.EventType, workflowEvents []model.EventType) bool {
	events := n.Events
	if len(events) == 0 {
		events = workflowEvents
	}
	for _, e := range events {
		if e == event {
			return true
		}
	}
	return false
}

func newNode(def model.NodeDefinition) Node {
	switch model.ToNodeType(def.Type) {
	case model.NODE_TYPE_TRIGGER:
		events := make([]model.EventType, 0, len(def.Events))
		for _, e := range def.Events {
			events = append(events, model.ToEventType(string(e)))
		}
		return &TriggerNode{Id: def.Id, Events: events}
	case model.NODE_TYPE_CONDITION:
		return &ConditionNode{Id: def.Id, Condition: condition.New(def)}
	case model.NODE_TYPE_ACTION:
		return &ActionNode{Id: def.Id, Action: action.New(def)}
	}
	return &UnknownNode{Id: def.Id, Type: def.Type}
}
