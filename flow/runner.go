package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/intakehq/autoflow/action"
	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/notify"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const DEFAULT_MAX_DEPTH = 64
const DEFAULT_MAX_STEPS = 1000

const OUTCOME_TRIGGERED = "triggered"
const OUTCOME_EXECUTED = "executed"
const OUTCOME_SKIPPED = "skipped"
const OUTCOME_ERROR = "error"

var ErrStepLimit = errors.New("step limit exceeded")
var ErrDepthLimit = errors.New("depth limit exceeded")

type Runner struct {
	store    entity.Store
	notifier notify.Notifier
	maxDepth int
	maxSteps int
	now      func() time.Time
}

type RunnerOption func(*Runner)

func WithMaxDepth(depth int) RunnerOption {
	return func(r *Runner) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

func WithMaxSteps(steps int) RunnerOption {
	return func(r *Runner) {
		if steps > 0 {
			r.maxSteps = steps
		}
	}
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

func NewRunner(store entity.Store, notifier notify.Notifier, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:    store,
		notifier: notifier,
		maxDepth: DEFAULT_MAX_DEPTH,
		maxSteps: DEFAULT_MAX_STEPS,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type frame struct {
	id    string
	depth int
}

// Run walks fl depth-first from trigger. A node error ends only the branch below that
// node; sibling branches still run and the result reports every node error.
func (r *Runner) Run(ctx context.Context, fl *Flow, trigger *TriggerNode, execCtx *model.ExecutionContext) model.RunResult {
	result := model.RunResult{
		RunId:        execCtx.RunId,
		WorkflowId:   fl.Id(),
		WorkflowName: fl.Definition.Name,
		Event:        execCtx.Event,
		StartedAt:    r.now(),
		Steps:        []model.Step{},
	}
	if trigger == nil {
		result.Success = true
		result.Terminal = model.TERMINAL_NO_TRIGGER
		result.FinishedAt = r.now()
		return result
	}

	env := &action.Env{
		Store:        r.store,
		Notifier:     r.notifier,
		Actor:        action.ResolveActor(execCtx, fl.Definition),
		WorkflowId:   fl.Id(),
		WorkflowName: fl.Definition.Name,
		Now:          r.now,
	}
	logger.Debug("running workflow", zap.String("workflow", fl.Id()), zap.String("runId", execCtx.RunId), zap.String("trigger", trigger.Id))

	var errs error
	stack := []frame{{id: trigger.Id}}
	steps := 0
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node, ok := fl.Nodes[f.id]
		if !ok {
			logger.Warn("edge points to missing node, branch ends", zap.String("workflow", fl.Id()), zap.String("nodeId", f.id))
			continue
		}
		if f.depth > r.maxDepth {
			errs = multierr.Append(errs, fmt.Errorf("node %s: %w (%d)", f.id, ErrDepthLimit, r.maxDepth))
			continue
		}
		if steps >= r.maxSteps {
			errs = multierr.Append(errs, fmt.Errorf("%w (%d)", ErrStepLimit, r.maxSteps))
			break
		}
		steps++

		next, outcome, err := r.visit(ctx, fl, node, execCtx, env)
		result.Steps = append(result.Steps, model.Step{NodeId: node.GetId(), Type: node.GetType(), Outcome: outcome})
		if err != nil {
			logger.Error("node failed, branch ends", zap.String("workflow", fl.Id()), zap.String("runId", execCtx.RunId), zap.String("nodeId", node.GetId()), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("node %s: %w", node.GetId(), err))
			continue
		}
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: next[i], depth: f.depth + 1})
		}
	}

	result.FinishedAt = r.now()
	if errs != nil {
		result.Success = false
		result.Error = errs.Error()
		return result
	}
	result.Success = true
	result.Terminal = model.TERMINAL_COMPLETED
	if n := len(result.Steps); n > 0 && result.Steps[n-1].Outcome != OUTCOME_TRIGGERED {
		result.Terminal = result.Steps[n-1].Outcome
	}
	return result
}

// visit runs one node and returns the ids to continue with. Panics from collaborators
// are converted into node errors.
func (r *Runner) visit(ctx context.Context, fl *Flow, node Node, execCtx *model.ExecutionContext, env *action.Env) (next []string, outcome string, err error) {
	defer func() {
		if p := recover(); p != nil {
			next, outcome, err = nil, OUTCOME_ERROR, fmt.Errorf("panic: %v", p)
		}
	}()

	switch n := node.(type) {
	case *TriggerNode:
		return fl.Next(n.Id), OUTCOME_TRIGGERED, nil
	case *ConditionNode:
		ok, err := n.Condition.Evaluate(ctx, execCtx, r.store)
		if err != nil {
			return nil, OUTCOME_ERROR, err
		}
		target, found, ambiguous := fl.Branch(n.Id, ok)
		if ambiguous {
			logger.Warn("condition has more than one matching edge, branch ends", zap.String("workflow", fl.Id()), zap.String("nodeId", n.Id), zap.Bool("outcome", ok))
		}
		if !found {
			return nil, strconv.FormatBool(ok), nil
		}
		return []string{target}, strconv.FormatBool(ok), nil
	case *ActionNode:
		if err := n.Action.Execute(ctx, execCtx, env); err != nil {
			return nil, OUTCOME_ERROR, err
		}
		return fl.Next(n.Id), OUTCOME_EXECUTED, nil
	case *UnknownNode:
		logger.Warn("unknown node type, branch ends", zap.String("workflow", fl.Id()), zap.String("nodeId", n.Id), zap.String("type", n.Type))
		return nil, OUTCOME_SKIPPED, nil
	}
	return nil, OUTCOME_SKIPPED, nil
}
