package flow

import (
	"fmt"
	"strings"

	"github.com/intakehq/autoflow/action"
	"github.com/intakehq/autoflow/condition"
	"github.com/intakehq/autoflow/model"
)

// ValidationResult holds errors and warnings from workflow validation.
type ValidationResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *ValidationResult) Error() string {
	return strings.Join(r.Errors, "; ")
}

func (r *ValidationResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks a definition before it is stored. Errors describe graphs the runner
// would only partially execute. Warnings describe parts that are ignored at run time.
func Validate(def *model.WorkflowDefinition) *ValidationResult {
	r := &ValidationResult{Errors: []string{}, Warnings: []string{}}
	if strings.TrimSpace(def.Id) == "" {
		r.errorf("workflow id can not be empty")
	}
	if strings.TrimSpace(def.Scope) == "" {
		r.errorf("workflow scope can not be empty")
	}
	validateTriggerEvents(def, r)
	nodes := validateNodes(def, r)
	validateEdges(def, nodes, r)
	validateReachability(def, nodes, r)
	validateCycles(def, nodes, r)
	return r
}

func validateTriggerEvents(def *model.WorkflowDefinition, r *ValidationResult) {
	if len(def.TriggerEvents) == 0 {
		r.warnf("workflow %s has no trigger events and will never run", def.Id)
	}
	for _, e := range def.TriggerEvents {
		if !e.IsKnown() {
			r.warnf("workflow trigger event %q is not a known event", e)
		}
	}
}

func validateNodes(def *model.WorkflowDefinition, r *ValidationResult) map[string]model.NodeType {
	nodes := make(map[string]model.NodeType, len(def.Nodes))
	triggers := 0
	for _, nodeDef := range def.Nodes {
		if strings.TrimSpace(nodeDef.Id) == "" {
			r.errorf("node id can not be empty")
			continue
		}
		if _, ok := nodes[nodeDef.Id]; ok {
			r.errorf("node id %s is duplicate", nodeDef.Id)
			continue
		}
		nodeType := model.ToNodeType(nodeDef.Type)
		nodes[nodeDef.Id] = nodeType
		switch n := newNode(nodeDef).(type) {
		case *TriggerNode:
			triggers++
			validateTrigger(def, n, r)
		case *ConditionNode:
			if !condition.IsKnown(n.Condition.GetKind()) {
				r.warnf("node %s has unknown condition kind %q and always evaluates to false", n.Id, nodeDef.Kind)
			} else if err := n.Condition.Validate(); err != nil {
				r.errorf("node %s: %v", n.Id, err)
			}
		case *ActionNode:
			if !action.IsKnown(n.Action.GetKind()) {
				r.warnf("node %s has unknown action kind %q and is skipped", n.Id, nodeDef.Kind)
			} else if err := n.Action.Validate(); err != nil {
				r.errorf("node %s: %v", n.Id, err)
			}
		case *UnknownNode:
			r.warnf("node %s has unknown type %q and ends its branch", n.Id, n.Type)
		}
	}
	if triggers == 0 {
		r.errorf("workflow must have at least one trigger node")
	}
	return nodes
}

func validateTrigger(def *model.WorkflowDefinition, n *TriggerNode, r *ValidationResult) {
	for _, e := range n.Events {
		if !e.IsKnown() {
			r.warnf("trigger %s event %q is not a known event", n.Id, e)
		}
		if !def.RespondsTo(e) {
			r.warnf("trigger %s event %q is not in the workflow trigger events and never fires", n.Id, e)
		}
	}
}

func validateEdges(def *model.WorkflowDefinition, nodes map[string]model.NodeType, r *ValidationResult) {
	type branch struct {
		source  string
		outcome bool
	}
	seen := make(map[branch]bool)
	for _, e := range def.Edges {
		sourceType, sourceOk := nodes[e.Source]
		targetType, targetOk := nodes[e.Target]
		if !sourceOk {
			r.errorf("edge %s -> %s references unknown source node", e.Source, e.Target)
		}
		if !targetOk {
			r.errorf("edge %s -> %s references unknown target node", e.Source, e.Target)
		}
		if targetOk && targetType == model.NODE_TYPE_TRIGGER {
			r.errorf("edge %s -> %s points into a trigger node", e.Source, e.Target)
		}
		if !sourceOk {
			continue
		}
		if sourceType != model.NODE_TYPE_CONDITION {
			if e.Label != "" {
				r.warnf("edge %s -> %s label %q is ignored, only condition edges are labeled", e.Source, e.Target, e.Label)
			}
			continue
		}
		outcome, ok := model.BranchOf(e.Label)
		if !ok {
			r.errorf("edge %s -> %s label %q must be \"true\", \"false\" or empty", e.Source, e.Target, e.Label)
			continue
		}
		b := branch{source: e.Source, outcome: outcome}
		if seen[b] {
			r.errorf("condition %s has more than one %t edge", e.Source, outcome)
		}
		seen[b] = true
	}
}

func validateReachability(def *model.WorkflowDefinition, nodes map[string]model.NodeType, r *ValidationResult) {
	adj := adjacency(def, nodes)
	reached := make(map[string]bool, len(nodes))
	var stack []string
	for id, t := range nodes {
		if t == model.NODE_TYPE_TRIGGER {
			stack = append(stack, id)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			continue
		}
		reached[id] = true
		stack = append(stack, adj[id]...)
	}
	for _, nodeDef := range def.Nodes {
		if _, ok := nodes[nodeDef.Id]; ok && !reached[nodeDef.Id] {
			r.warnf("node %s is not reachable from any trigger", nodeDef.Id)
			reached[nodeDef.Id] = true
		}
	}
}

// validateCycles rejects any cycle. Traversal has no loop semantics.
func validateCycles(def *model.WorkflowDefinition, nodes map[string]model.NodeType, r *ValidationResult) {
	const (
		white = iota
		gray
		black
	)
	adj := adjacency(def, nodes)
	color := make(map[string]int, len(nodes))

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, target := range adj[id] {
			switch color[target] {
			case gray:
				r.errorf("workflow contains a cycle: %s -> %s", id, target)
			case white:
				dfs(target)
			}
		}
		color[id] = black
	}
	for _, nodeDef := range def.Nodes {
		if _, ok := nodes[nodeDef.Id]; ok && color[nodeDef.Id] == white {
			dfs(nodeDef.Id)
		}
	}
}

func adjacency(def *model.WorkflowDefinition, nodes map[string]model.NodeType) map[string][]string {
	adj := make(map[string][]string, len(nodes))
	for _, e := range def.Edges {
		_, sourceOk := nodes[e.Source]
		_, targetOk := nodes[e.Target]
		if sourceOk && targetOk {
			adj[e.Source] = append(adj[e.Source], e.Target)
		}
	}
	return adj
}
