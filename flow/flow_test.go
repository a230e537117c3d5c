package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/notify"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func trigger(id string, events ...model.EventType) model.NodeDefinition {
	return model.NodeDefinition{Id: id, Type: "trigger", Events: events}
}

func cond(id, kind string, config map[string]any) model.NodeDefinition {
	return model.NodeDefinition{Id: id, Type: "condition", Kind: kind, Config: config}
}

func act(id, kind string, config map[string]any) model.NodeDefinition {
	return model.NodeDefinition{Id: id, Type: "action", Kind: kind, Config: config}
}

func link(source, target, label string) model.EdgeDefinition {
	return model.EdgeDefinition{Source: source, Target: target, Label: label}
}

// invoiceTriage is trigger -> confidence >= 90 -> (true) auto-validate, (false) review.
func invoiceTriage() *model.WorkflowDefinition {
	return &model.WorkflowDefinition{
		Id:            "wf-triage",
		Name:          "Invoice triage",
		Scope:         "p1",
		Active:        true,
		CreatedBy:     "owner-1",
		TriggerEvents: []model.EventType{model.EVENT_DOCUMENT_UPLOADED},
		Nodes: []model.NodeDefinition{
			trigger("t1"),
			cond("c1", "confidence-threshold", map[string]any{"threshold": 90.0}),
			act("a-validate", "auto-validate", nil),
			act("a-review", "route-to-queue", map[string]any{"queue": "review"}),
		},
		Edges: []model.EdgeDefinition{
			link("t1", "c1", ""),
			link("c1", "a-validate", "true"),
			link("c1", "a-review", "false"),
		},
	}
}

func invoiceFields() map[string]any {
	return map[string]any{
		"invoice_number": "INV-1",
		"invoice_date":   "2024-05-30",
		"total_amount":   "99.50",
		"vendor_name":    "Acme",
	}
}

func score(f float64) *float64 {
	return &f
}

func execCtx(documentId string) *model.ExecutionContext {
	return model.NewExecutionContext("run-1", model.EVENT_DOCUMENT_UPLOADED, "p1", model.EventContext{DocumentId: documentId})
}

func run(t *testing.T, def *model.WorkflowDefinition, store entity.Store, ec *model.ExecutionContext, opts ...RunnerOption) model.RunResult {
	t.Helper()
	fl := Convert(def)
	tr, ok := fl.Trigger(ec.Event)
	require.True(t, ok)
	opts = append(opts, WithClock(func() time.Time { return fixedNow }))
	return NewRunner(store, notify.NoopNotifier{}, opts...).Run(context.Background(), fl, tr, ec)
}

func TestRunConfidenceBranching(t *testing.T) {
	for scenario, tc := range map[string]struct {
		confidence float64
		want       entity.Status
		terminal   string
	}{
		"high confidence is validated":  {0.95, entity.STATUS_VALIDATED, OUTCOME_EXECUTED},
		"low confidence goes to review": {0.40, entity.STATUS_NEEDS_REVIEW, OUTCOME_EXECUTED},
	} {
		t.Run(scenario, func(t *testing.T) {
			store := entity.NewMemoryStore()
			store.SaveDocument(context.Background(), entity.Document{Id: "doc-1", Confidence: score(tc.confidence), Fields: invoiceFields(), Status: entity.STATUS_PENDING})

			result := run(t, invoiceTriage(), store, execCtx("doc-1"))
			require.True(t, result.Success, result.Error)
			require.Equal(t, tc.terminal, result.Terminal)

			doc, _ := store.GetDocument(context.Background(), "doc-1")
			require.Equal(t, tc.want, doc.Status)
		})
	}
}

func TestRunValidatorFallsBackToOwner(t *testing.T) {
	store := entity.NewMemoryStore()
	store.SaveDocument(context.Background(), entity.Document{Id: "doc-1", Confidence: score(0.99), Fields: invoiceFields()})

	result := run(t, invoiceTriage(), store, execCtx("doc-1"))
	require.True(t, result.Success)
	doc, _ := store.GetDocument(context.Background(), "doc-1")
	require.Equal(t, "owner-1", doc.ValidatedBy)
	require.True(t, fixedNow.Equal(*doc.ValidatedAt))

	store.SaveDocument(context.Background(), entity.Document{Id: "doc-2", Confidence: score(0.99), Fields: invoiceFields()})
	ec := execCtx("doc-2")
	ec.ActorId = "reviewer-3"
	run(t, invoiceTriage(), store, ec)
	doc, _ = store.GetDocument(context.Background(), "doc-2")
	require.Equal(t, "reviewer-3", doc.ValidatedBy)
}

func TestRunMissingFalseEdgeIsSuccess(t *testing.T) {
	def := invoiceTriage()
	def.Edges = def.Edges[:2]
	store := entity.NewMemoryStore()
	store.SaveDocument(context.Background(), entity.Document{Id: "doc-1", Confidence: score(0.10), Status: entity.STATUS_PENDING})

	result := run(t, def, store, execCtx("doc-1"))
	require.True(t, result.Success)
	require.Empty(t, result.Error)
	require.Equal(t, "false", result.Terminal)
	require.Equal(t, []model.Step{
		{NodeId: "t1", Type: model.NODE_TYPE_TRIGGER, Outcome: OUTCOME_TRIGGERED},
		{NodeId: "c1", Type: model.NODE_TYPE_CONDITION, Outcome: "false"},
	}, result.Steps)
	doc, _ := store.GetDocument(context.Background(), "doc-1")
	require.Equal(t, entity.STATUS_PENDING, doc.Status)
}

func TestRunMissingDocumentIsSuccess(t *testing.T) {
	result := run(t, invoiceTriage(), entity.NewMemoryStore(), execCtx("ghost"))
	require.True(t, result.Success)
}

func TestDuplicateBranchLabels(t *testing.T) {
	def := invoiceTriage()
	def.Edges = append(def.Edges, link("c1", "a-review", "true"))

	vr := Validate(def)
	require.True(t, vr.HasErrors())
	require.Contains(t, vr.Error(), "condition c1 has more than one true edge")

	store := entity.NewMemoryStore()
	store.SaveDocument(context.Background(), entity.Document{Id: "doc-1", Confidence: score(0.95), Fields: invoiceFields(), Status: entity.STATUS_PENDING})
	result := run(t, def, store, execCtx("doc-1"))
	require.True(t, result.Success)
	require.Len(t, result.Steps, 2)
	doc, _ := store.GetDocument(context.Background(), "doc-1")
	require.Equal(t, entity.STATUS_PENDING, doc.Status)
}

func TestRunFanOutOrder(t *testing.T) {
	def := &model.WorkflowDefinition{
		Id:            "wf-fan",
		Scope:         "p1",
		TriggerEvents: []model.EventType{model.EVENT_DOCUMENT_UPLOADED},
		Nodes: []model.NodeDefinition{
			trigger("t1"),
			act("p1", "set-priority", map[string]any{"priority": 1}),
			act("p1-child", "set-priority", map[string]any{"priority": 3}),
			act("p2", "set-priority", map[string]any{"priority": 2}),
		},
		Edges: []model.EdgeDefinition{
			link("t1", "p1", ""),
			link("t1", "p2", ""),
			link("p1", "p1-child", ""),
		},
	}
	store := entity.NewMemoryStore()
	store.SaveDocument(context.Background(), entity.Document{Id: "doc-1"})

	result := run(t, def, store, execCtx("doc-1"))
	require.True(t, result.Success)
	var order []string
	for _, s := range result.Steps {
		order = append(order, s.NodeId)
	}
	require.Equal(t, []string{"t1", "p1", "p1-child", "p2"}, order)
	doc, _ := store.GetDocument(context.Background(), "doc-1")
	require.Equal(t, 2, doc.Priority)
}

type failingStatusStore struct {
	*entity.MemoryStore
}

func (failingStatusStore) UpdateStatus(ctx context.Context, ref entity.Ref, status entity.Status) error {
	return errors.New("connection reset")
}

type panickingReader struct {
	*entity.MemoryStore
}

func (panickingReader) Read(ctx context.Context, ref entity.Ref, attrs ...entity.Attribute) (*entity.Snapshot, error) {
	panic("reader exploded")
}

func siblingsDef(first model.NodeDefinition) *model.WorkflowDefinition {
	return &model.WorkflowDefinition{
		Id:            "wf-siblings",
		Scope:         "p1",
		TriggerEvents: []model.EventType{model.EVENT_DOCUMENT_UPLOADED},
		Nodes: []model.NodeDefinition{
			trigger("t1"),
			first,
			act("after-broken", "set-priority", map[string]any{"priority": 9}),
			act("sibling", "set-priority", map[string]any{"priority": 5}),
		},
		Edges: []model.EdgeDefinition{
			link("t1", first.Id, ""),
			link(first.Id, "after-broken", ""),
			link("t1", "sibling", ""),
		},
	}
}

func TestRunNodeFailureKeepsSiblings(t *testing.T) {
	for scenario, tc := range map[string]struct {
		first model.NodeDefinition
		store func(*entity.MemoryStore) entity.Store
	}{
		"action error": {
			first: act("broken", "route-to-queue", map[string]any{"queue": "review"}),
			store: func(m *entity.MemoryStore) entity.Store { return failingStatusStore{m} },
		},
		"condition panic": {
			first: cond("broken", "confidence-threshold", map[string]any{"threshold": 10.0}),
			store: func(m *entity.MemoryStore) entity.Store { return panickingReader{m} },
		},
	} {
		t.Run(scenario, func(t *testing.T) {
			mem := entity.NewMemoryStore()
			mem.SaveDocument(context.Background(), entity.Document{Id: "doc-1", Confidence: score(0.5)})

			var result model.RunResult
			require.NotPanics(t, func() {
				result = run(t, siblingsDef(tc.first), tc.store(mem), execCtx("doc-1"))
			})
			require.False(t, result.Success)
			require.Contains(t, result.Error, "node broken")

			doc, _ := mem.GetDocument(context.Background(), "doc-1")
			require.Equal(t, 5, doc.Priority, "sibling branch must still run")
			for _, s := range result.Steps {
				require.NotEqual(t, "after-broken", s.NodeId)
			}
		})
	}
}

func cyclicDef() *model.WorkflowDefinition {
	return &model.WorkflowDefinition{
		Id:            "wf-cycle",
		Scope:         "p1",
		TriggerEvents: []model.EventType{model.EVENT_DOCUMENT_UPLOADED},
		Nodes: []model.NodeDefinition{
			trigger("t1"),
			act("a", "set-priority", map[string]any{"priority": 1}),
			act("b", "set-priority", map[string]any{"priority": 2}),
		},
		Edges: []model.EdgeDefinition{
			link("t1", "a", ""),
			link("a", "b", ""),
			link("b", "a", ""),
		},
	}
}

func TestRunCycleIsCapped(t *testing.T) {
	store := entity.NewMemoryStore()
	store.SaveDocument(context.Background(), entity.Document{Id: "doc-1"})

	result := run(t, cyclicDef(), store, execCtx("doc-1"), WithMaxSteps(10))
	require.False(t, result.Success)
	require.Contains(t, result.Error, ErrStepLimit.Error())
	require.Len(t, result.Steps, 10)

	result = run(t, cyclicDef(), store, execCtx("doc-1"), WithMaxDepth(4))
	require.False(t, result.Success)
	require.Contains(t, result.Error, ErrDepthLimit.Error())
	require.Len(t, result.Steps, 5)
}

func TestRunDanglingEdgeEndsBranch(t *testing.T) {
	def := &model.WorkflowDefinition{
		Id:            "wf-dangling",
		Scope:         "p1",
		TriggerEvents: []model.EventType{model.EVENT_DOCUMENT_UPLOADED},
		Nodes:         []model.NodeDefinition{trigger("t1"), {Id: "mystery", Type: "delay"}},
		Edges:         []model.EdgeDefinition{link("t1", "ghost", ""), link("t1", "mystery", "")},
	}
	result := run(t, def, entity.NewMemoryStore(), execCtx("doc-1"))
	require.True(t, result.Success)
	require.Equal(t, OUTCOME_SKIPPED, result.Terminal)
}

func TestRunTriggerWithoutEdgesCompletes(t *testing.T) {
	def := &model.WorkflowDefinition{
		Id:            "wf-empty",
		Scope:         "p1",
		TriggerEvents: []model.EventType{model.EVENT_DOCUMENT_UPLOADED},
		Nodes:         []model.NodeDefinition{trigger("t1")},
	}
	result := run(t, def, entity.NewMemoryStore(), execCtx("doc-1"))
	require.True(t, result.Success)
	require.Equal(t, model.TERMINAL_COMPLETED, result.Terminal)
	require.Len(t, result.Steps, 1)
	require.Equal(t, OUTCOME_TRIGGERED, result.Steps[0].Outcome)
}

func TestTriggerSelection(t *testing.T) {
	def := &model.WorkflowDefinition{
		Id:            "wf-multi",
		Scope:         "p1",
		TriggerEvents: []model.EventType{model.EVENT_DOCUMENT_UPLOADED, model.EVENT_BATCH_COMPLETED},
		Nodes: []model.NodeDefinition{
			trigger("t-batch", model.EVENT_BATCH_COMPLETED),
			trigger("t-any"),
			trigger("t-upload", model.EVENT_DOCUMENT_UPLOADED),
		},
	}
	fl := Convert(def)

	tr, ok := fl.Trigger(model.EVENT_BATCH_COMPLETED)
	require.True(t, ok)
	require.Equal(t, "t-batch", tr.Id)

	tr, ok = fl.Trigger(model.EVENT_DOCUMENT_UPLOADED)
	require.True(t, ok)
	require.Equal(t, "t-any", tr.Id)

	_, ok = fl.Trigger(model.EVENT_BATCH_EXPORTED)
	require.False(t, ok)

	result := NewRunner(entity.NewMemoryStore(), nil).Run(context.Background(), fl, nil, execCtx("doc-1"))
	require.True(t, result.Success)
	require.Equal(t, model.TERMINAL_NO_TRIGGER, result.Terminal)
}

func TestValidate(t *testing.T) {
	for scenario, tc := range map[string]struct {
		mutate   func(def *model.WorkflowDefinition)
		errors   []string
		warnings []string
	}{
		"valid": {
			mutate: func(def *model.WorkflowDefinition) {},
		},
		"duplicate node": {
			mutate: func(def *model.WorkflowDefinition) { def.Nodes = append(def.Nodes, act("c1", "auto-validate", nil)) },
			errors: []string{"node id c1 is duplicate"},
		},
		"dangling edge": {
			mutate: func(def *model.WorkflowDefinition) { def.Edges = append(def.Edges, link("a-review", "ghost", "")) },
			errors: []string{"edge a-review -> ghost references unknown target node"},
		},
		"no trigger": {
			mutate: func(def *model.WorkflowDefinition) {
				def.Nodes = def.Nodes[1:]
				def.Edges = def.Edges[1:]
			},
			errors: []string{"workflow must have at least one trigger node"},
			warnings: []string{
				"node c1 is not reachable from any trigger",
				"node a-validate is not reachable from any trigger",
				"node a-review is not reachable from any trigger",
			},
		},
		"bad label": {
			mutate: func(def *model.WorkflowDefinition) { def.Edges[2].Label = "maybe" },
			errors: []string{`edge c1 -> a-review label "maybe" must be "true", "false" or empty`},
		},
		"default label collides with true": {
			mutate: func(def *model.WorkflowDefinition) { def.Edges = append(def.Edges, link("c1", "a-review", "")) },
			errors: []string{"condition c1 has more than one true edge"},
		},
		"edge into trigger": {
			mutate: func(def *model.WorkflowDefinition) { def.Edges = append(def.Edges, link("a-review", "t1", "")) },
			errors: []string{"edge a-review -> t1 points into a trigger node", "workflow contains a cycle: a-review -> t1"},
		},
		"invalid config": {
			mutate: func(def *model.WorkflowDefinition) { def.Nodes[1].Config = map[string]any{"threshold": "high"} },
			errors: []string{"node c1: conditionId=c1, threshold must be a number"},
		},
		"cycle": {
			mutate: func(def *model.WorkflowDefinition) { def.Edges = append(def.Edges, link("a-review", "c1", "")) },
			errors: []string{"workflow contains a cycle: a-review -> c1"},
		},
		"unknown kinds": {
			mutate: func(def *model.WorkflowDefinition) {
				def.Nodes[2].Kind = "archive"
				def.Nodes[3] = model.NodeDefinition{Id: "a-review", Type: "delay"}
			},
			warnings: []string{
				`node a-validate has unknown action kind "archive" and is skipped`,
				`node a-review has unknown type "delay" and ends its branch`,
			},
		},
		"unknown event": {
			mutate: func(def *model.WorkflowDefinition) {
				def.TriggerEvents = append(def.TriggerEvents, "document-deleted")
			},
			warnings: []string{`workflow trigger event "document-deleted" is not a known event`},
		},
	} {
		t.Run(scenario, func(t *testing.T) {
			def := invoiceTriage()
			tc.mutate(def)
			vr := Validate(def)
			require.ElementsMatch(t, tc.errors, vr.Errors)
			require.ElementsMatch(t, tc.warnings, vr.Warnings)
		})
	}
}
