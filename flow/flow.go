package flow

import (
	"github.com/intakehq/autoflow/model"
)

type edge struct {
	target  string
	label   string
	outcome bool
	labeled bool
}

// Flow is a workflow definition compiled for traversal: nodes are resolved by id once
// and outgoing edges are grouped per source in definition order.
type Flow struct {
	Definition *model.WorkflowDefinition
	Nodes      map[string]Node
	order      []string
	edges      map[string][]edge
}

func Convert(def *model.WorkflowDefinition) *Flow {
	fl := &Flow{
		Definition: def,
		Nodes:      make(map[string]Node, len(def.Nodes)),
		edges:      make(map[string][]edge),
	}
	for _, nodeDef := range def.Nodes {
		if nodeDef.Id == "" {
			continue
		}
		if _, ok := fl.Nodes[nodeDef.Id]; ok {
			continue
		}
		fl.Nodes[nodeDef.Id] = newNode(nodeDef)
		fl.order = append(fl.order, nodeDef.Id)
	}
	for _, e := range def.Edges {
		outcome, ok := model.BranchOf(e.Label)
		fl.edges[e.Source] = append(fl.edges[e.Source], edge{
			target:  e.Target,
			label:   e.Label,
			outcome: outcome,
			labeled: ok,
		})
	}
	return fl
}

func (fl *Flow) Id() string {
	return fl.Definition.Id
}

// Trigger returns the first trigger node, in definition order, that starts on event.
func (fl *Flow) Trigger(event model.EventType) (*TriggerNode, bool) {
	for _, id := range fl.order {
		if t, ok := fl.Nodes[id].(*TriggerNode); ok && t.Matches(event, fl.Definition.TriggerEvents) {
			return t, true
		}
	}
	return nil, false
}

// Next returns the targets of every outgoing edge of nodeId, in definition order.
func (fl *Flow) Next(nodeId string) []string {
	out := make([]string, 0, len(fl.edges[nodeId]))
	for _, e := range fl.edges[nodeId] {
		out = append(out, e.target)
	}
	return out
}

// Branch selects the edge of a condition node that matches outcome. ambiguous is set when
// more than one edge carries the same branch value; no target is returned in that case.
func (fl *Flow) Branch(nodeId string, outcome bool) (target string, found bool, ambiguous bool) {
	for _, e := range fl.edges[nodeId] {
		if !e.labeled || e.outcome != outcome {
			continue
		}
		if found {
			return "", false, true
		}
		target, found = e.target, true
	}
	return target, found, false
}
