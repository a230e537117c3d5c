package dispatch

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	KeyWorkflow, _ = tag.NewKey("workflow")
	KeyEvent, _    = tag.NewKey("event")
	KeyStatus, _   = tag.NewKey("status")

	MeasureRuns       = stats.Int64("autoflow/runs", "Number of workflow runs", stats.UnitDimensionless)
	MeasureRunLatency = stats.Float64("autoflow/run_latency", "Workflow run latency", stats.UnitMilliseconds)
)

var (
	RunCountView = &view.View{
		Name:        "autoflow/runs",
		Description: "Workflow runs by workflow, event and status",
		Measure:     MeasureRuns,
		TagKeys:     []tag.Key{KeyWorkflow, KeyEvent, KeyStatus},
		Aggregation: view.Count(),
	}
	RunLatencyView = &view.View{
		Name:        "autoflow/run_latency",
		Description: "Workflow run latency distribution",
		Measure:     MeasureRunLatency,
		TagKeys:     []tag.Key{KeyWorkflow, KeyStatus},
		Aggregation: view.Distribution(1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000),
	}
	DefaultViews = []*view.View{RunCountView, RunLatencyView}
)

func recordRun(ctx context.Context, workflowId string, event string, success bool, latency time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	ctx, err := tag.New(ctx,
		tag.Upsert(KeyWorkflow, workflowId),
		tag.Upsert(KeyEvent, event),
		tag.Upsert(KeyStatus, status),
	)
	if err != nil {
		return
	}
	stats.Record(ctx, MeasureRuns.M(1), MeasureRunLatency.M(float64(latency)/float64(time.Millisecond)))
}
