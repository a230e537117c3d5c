package action

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/notify"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (r *recordingNotifier) Notify(ctx context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

type brokenStore struct {
	*entity.MemoryStore
}

func (brokenStore) UpdateStatus(ctx context.Context, ref entity.Ref, status entity.Status) error {
	return errors.New("i/o timeout")
}

func (brokenStore) MarkValidated(ctx context.Context, ref entity.Ref, at time.Time, by string) error {
	return errors.New("i/o timeout")
}

func completeFields() map[string]any {
	return map[string]any{
		"invoice_number": "INV-100",
		"invoice_date":   map[string]any{"value": "2024-04-30"},
		"total_amount":   "1200.00",
		"vendor_name":    "Acme Corp",
	}
}

func setup() (*entity.MemoryStore, *recordingNotifier, *Env) {
	store := entity.NewMemoryStore()
	store.SaveDocument(context.Background(), entity.Document{Id: "doc-1", Status: entity.STATUS_PENDING, Fields: completeFields()})
	store.SaveBatch(context.Background(), entity.Batch{Id: "batch-1", Status: entity.STATUS_PENDING})
	notifier := &recordingNotifier{}
	env := &Env{
		Store:        store,
		Notifier:     notifier,
		Actor:        "user-42",
		WorkflowId:   "wf-1",
		WorkflowName: "Invoice triage",
		Now:          func() time.Time { return fixedNow },
	}
	return store, notifier, env
}

func def(kind Kind, config map[string]any) model.NodeDefinition {
	return model.NodeDefinition{Id: "a1", Type: string(model.NODE_TYPE_ACTION), Kind: string(kind), Config: config}
}

func docCtx(id string) *model.ExecutionContext {
	return &model.ExecutionContext{RunId: "run-1", Event: model.EVENT_DOCUMENT_UPLOADED, ScopeId: "p1", DocumentId: id}
}

func TestRouteToQueue(t *testing.T) {
	for queue, want := range map[string]entity.Status{
		"validation": entity.STATUS_PENDING,
		"export":     entity.STATUS_VALIDATED,
		"review":     entity.STATUS_NEEDS_REVIEW,
	} {
		t.Run(queue, func(t *testing.T) {
			store, _, env := setup()
			require.NoError(t, New(def(ROUTE_TO_QUEUE, map[string]any{"queue": queue})).Execute(context.Background(), docCtx("doc-1"), env))
			doc, _ := store.GetDocument(context.Background(), "doc-1")
			require.Equal(t, want, doc.Status)
		})
	}
}

func TestSetValidationStatus(t *testing.T) {
	store, _, env := setup()
	a := New(def(SET_VALIDATION_STATUS, map[string]any{"status": "needs_review"}))
	require.NoError(t, a.Validate())
	require.NoError(t, a.Execute(context.Background(), &model.ExecutionContext{RunId: "r", BatchId: "batch-1"}, env))
	b, _ := store.GetBatch(context.Background(), "batch-1")
	require.Equal(t, entity.STATUS_NEEDS_REVIEW, b.Status)
}

func TestSetPriority(t *testing.T) {
	store, _, env := setup()
	require.NoError(t, New(def(SET_PRIORITY, map[string]any{"priority": 5.0})).Execute(context.Background(), docCtx("doc-1"), env))
	doc, _ := store.GetDocument(context.Background(), "doc-1")
	require.Equal(t, 5, doc.Priority)

	require.NoError(t, New(def(SET_PRIORITY, map[string]any{"priority": 2})).Execute(context.Background(), &model.ExecutionContext{BatchId: "batch-1"}, env))
	b, _ := store.GetBatch(context.Background(), "batch-1")
	require.Equal(t, 2, b.Priority)
}

func TestWritesToMissingEntityAreNoops(t *testing.T) {
	_, _, env := setup()
	for _, a := range []Action{
		New(def(ROUTE_TO_QUEUE, map[string]any{"queue": "review"})),
		New(def(SET_PRIORITY, map[string]any{"priority": 1})),
		New(def(AUTO_VALIDATE, nil)),
	} {
		require.NoError(t, a.Execute(context.Background(), docCtx("missing"), env), a.GetKind())
		require.NoError(t, a.Execute(context.Background(), &model.ExecutionContext{RunId: "r"}, env), a.GetKind())
	}
}

func TestWriteFailureIsReturned(t *testing.T) {
	store, _, env := setup()
	env.Store = brokenStore{store}
	err := New(def(ROUTE_TO_QUEUE, map[string]any{"queue": "review"})).Execute(context.Background(), docCtx("doc-1"), env)
	require.Error(t, err)
	err = New(def(AUTO_VALIDATE, nil)).Execute(context.Background(), docCtx("doc-1"), env)
	require.Error(t, err)
}

func TestAutoValidate(t *testing.T) {
	store, notifier, env := setup()
	require.NoError(t, New(def(AUTO_VALIDATE, nil)).Execute(context.Background(), docCtx("doc-1"), env))

	doc, _ := store.GetDocument(context.Background(), "doc-1")
	require.Equal(t, entity.STATUS_VALIDATED, doc.Status)
	require.Equal(t, "user-42", doc.ValidatedBy)
	require.True(t, fixedNow.Equal(*doc.ValidatedAt))
	require.Len(t, notifier.sent, 1)
	require.Equal(t, "doc-1", notifier.sent[0].DocumentId)
}

func TestAutoValidateIsIdempotent(t *testing.T) {
	store, notifier, env := setup()
	a := New(def(AUTO_VALIDATE, nil))
	require.NoError(t, a.Execute(context.Background(), docCtx("doc-1"), env))
	first, _ := store.GetDocument(context.Background(), "doc-1")

	env.Actor = "someone-else"
	env.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	require.NoError(t, a.Execute(context.Background(), docCtx("doc-1"), env))
	second, _ := store.GetDocument(context.Background(), "doc-1")

	require.Equal(t, first, second)
	require.Len(t, notifier.sent, 1)
}

func TestAutoValidateMissingCriticalField(t *testing.T) {
	for scenario, mutate := range map[string]func(map[string]any){
		"absent":        func(f map[string]any) { delete(f, "vendor_name") },
		"blank":         func(f map[string]any) { f["total_amount"] = "   " },
		"blank wrapper": func(f map[string]any) { f["invoice_date"] = map[string]any{"value": ""} },
		"not text":      func(f map[string]any) { f["invoice_number"] = 100.0 },
	} {
		t.Run(scenario, func(t *testing.T) {
			store, notifier, env := setup()
			fields := completeFields()
			mutate(fields)
			store.SaveDocument(context.Background(), entity.Document{Id: "doc-2", Status: entity.STATUS_PENDING, Fields: fields})

			require.NoError(t, New(def(AUTO_VALIDATE, nil)).Execute(context.Background(), docCtx("doc-2"), env))
			doc, _ := store.GetDocument(context.Background(), "doc-2")
			require.Equal(t, entity.STATUS_PENDING, doc.Status)
			require.Nil(t, doc.ValidatedAt)
			require.Empty(t, notifier.sent)
		})
	}
}

func TestAutoValidateNotificationFailureIgnored(t *testing.T) {
	store, notifier, env := setup()
	notifier.err = errors.New("webhook down")
	require.NoError(t, New(def(AUTO_VALIDATE, nil)).Execute(context.Background(), docCtx("doc-1"), env))
	doc, _ := store.GetDocument(context.Background(), "doc-1")
	require.Equal(t, entity.STATUS_VALIDATED, doc.Status)
}

func TestSendNotification(t *testing.T) {
	_, notifier, env := setup()
	a := New(def(SEND_NOTIFICATION, map[string]any{
		"message":    "document {$.documentId} needs review ({$.metadata.source})",
		"channel":    "email",
		"recipients": []any{"ops@example.com"},
	}))
	require.NoError(t, a.Validate())
	execCtx := docCtx("doc-1")
	execCtx.Metadata = map[string]any{"source": "scanner"}
	require.NoError(t, a.Execute(context.Background(), execCtx, env))
	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	require.Equal(t, "document doc-1 needs review (scanner)", n.Message)
	require.Equal(t, []string{"ops@example.com"}, n.Recipients)
	require.Equal(t, "wf-1", n.WorkflowId)

	notifier.err = errors.New("down")
	require.NoError(t, a.Execute(context.Background(), execCtx, env))
}

func TestUnknownActionIsNoop(t *testing.T) {
	store, _, env := setup()
	a := New(def("archive", nil))
	require.False(t, IsKnown(a.GetKind()))
	require.NoError(t, a.Validate())
	require.NoError(t, a.Execute(context.Background(), docCtx("doc-1"), env))
	doc, _ := store.GetDocument(context.Background(), "doc-1")
	require.Equal(t, entity.STATUS_PENDING, doc.Status)
}

func TestValidate(t *testing.T) {
	for scenario, tc := range map[string]struct {
		def     model.NodeDefinition
		wantErr bool
	}{
		"route ok":            {def(ROUTE_TO_QUEUE, map[string]any{"queue": "export"}), false},
		"route unknown queue": {def(ROUTE_TO_QUEUE, map[string]any{"queue": "archive"}), true},
		"route status only":   {def(ROUTE_TO_QUEUE, map[string]any{"status": "validated"}), true},
		"status missing":      {def(SET_VALIDATION_STATUS, nil), true},
		"status unknown":      {def(SET_VALIDATION_STATUS, map[string]any{"status": "done"}), true},
		"priority fractional": {def(SET_PRIORITY, map[string]any{"priority": 1.5}), true},
		"priority missing":    {def(SET_PRIORITY, nil), true},
		"notification empty":  {def(SEND_NOTIFICATION, map[string]any{"channel": "email"}), true},
		"auto validate":       {def(AUTO_VALIDATE, nil), false},
	} {
		t.Run(scenario, func(t *testing.T) {
			err := New(tc.def).Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestResolveActor(t *testing.T) {
	wf := &model.WorkflowDefinition{CreatedBy: "owner-1"}
	require.Equal(t, "user-9", ResolveActor(&model.ExecutionContext{ActorId: "user-9"}, wf))
	require.Equal(t, "owner-1", ResolveActor(&model.ExecutionContext{}, wf))
	require.Equal(t, SYSTEM_ACTOR, ResolveActor(&model.ExecutionContext{}, &model.WorkflowDefinition{}))
}
