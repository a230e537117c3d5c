package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/intakehq/autoflow/analytics"
	"github.com/intakehq/autoflow/flow"
	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/metadata"
	"github.com/intakehq/autoflow/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dispatcher is the entry point for lifecycle events. It never returns an error: every
// failure is reported inside the RunResult of the workflow it belongs to.
type Dispatcher struct {
	metadata    metadata.MetadataService
	runner      *flow.Runner
	collector   analytics.RunDataCollector
	parallelism int
	newRunId    func() string
	now         func() time.Time
}

type Option func(*Dispatcher)

// WithParallelism runs up to n workflows of one event concurrently. n <= 1 runs them
// one after another.
func WithParallelism(n int) Option {
	return func(d *Dispatcher) {
		d.parallelism = n
	}
}

func WithCollector(collector analytics.RunDataCollector) Option {
	return func(d *Dispatcher) {
		d.collector = collector
	}
}

func WithRunIdGenerator(fn func() string) Option {
	return func(d *Dispatcher) {
		d.newRunId = fn
	}
}

func NewDispatcher(ms metadata.MetadataService, runner *flow.Runner, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		metadata:    ms,
		runner:      runner,
		collector:   analytics.NoopDataCollector{},
		parallelism: 1,
		newRunId:    func() string { return uuid.New().String() },
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs every active workflow of scopeId that responds to event. Results are in
// workflow order. No matching workflow yields an empty list.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.EventType, scopeId string, evCtx model.EventContext) []model.RunResult {
	event = model.ToEventType(string(event))
	flows, err := d.metadata.GetActiveFlows(ctx, scopeId, event)
	if err != nil {
		logger.Error("error loading workflows", zap.String("scope", scopeId), zap.String("event", string(event)), zap.Error(err))
		now := d.now()
		return []model.RunResult{{
			RunId:      d.newRunId(),
			Event:      event,
			Success:    false,
			Error:      fmt.Sprintf("loading workflows: %v", err),
			StartedAt:  now,
			FinishedAt: now,
		}}
	}
	results := make([]model.RunResult, len(flows))
	if len(flows) == 0 {
		logger.Debug("no workflow responds to event", zap.String("scope", scopeId), zap.String("event", string(event)))
		return results
	}

	if d.parallelism <= 1 || len(flows) == 1 {
		for i, fl := range flows {
			results[i] = d.runOne(ctx, fl, event, scopeId, evCtx)
		}
		return results
	}
	var g errgroup.Group
	g.SetLimit(d.parallelism)
	for i, fl := range flows {
		i, fl := i, fl
		g.Go(func() error {
			results[i] = d.runOne(ctx, fl, event, scopeId, evCtx)
			return nil
		})
	}
	g.Wait()
	return results
}

func (d *Dispatcher) runOne(ctx context.Context, fl *flow.Flow, event model.EventType, scopeId string, evCtx model.EventContext) (result model.RunResult) {
	runId := d.newRunId()
	started := d.now()
	defer func() {
		if r := recover(); r != nil {
			result = model.RunResult{
				RunId:        runId,
				WorkflowId:   fl.Id(),
				WorkflowName: fl.Definition.Name,
				Event:        event,
				Success:      false,
				Error:        fmt.Sprintf("panic: %v", r),
				StartedAt:    started,
				FinishedAt:   d.now(),
			}
		}
		d.report(ctx, result)
	}()

	execCtx := model.NewExecutionContext(runId, event, scopeId, evCtx)
	trigger, _ := fl.Trigger(event)
	return d.runner.Run(ctx, fl, trigger, execCtx)
}

func (d *Dispatcher) report(ctx context.Context, result model.RunResult) {
	if result.Success {
		logger.Info("workflow run completed", zap.String("workflow", result.WorkflowId), zap.String("runId", result.RunId), zap.String("terminal", result.Terminal))
	} else {
		logger.Error("workflow run failed", zap.String("workflow", result.WorkflowId), zap.String("runId", result.RunId), zap.String("reason", result.Error))
	}
	recordRun(ctx, result.WorkflowId, string(result.Event), result.Success, result.FinishedAt.Sub(result.StartedAt))
	analytics.Record(d.collector, result)
}
