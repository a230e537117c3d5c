package rpc

import (
	"context"
	"net"
	"testing"

	api "github.com/intakehq/autoflow/api/v1"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/util"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type dispatchCall struct {
	event   model.EventType
	scopeId string
	evCtx   model.EventContext
}

type fakeDispatcher struct {
	calls []dispatchCall
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, event model.EventType, scopeId string, evCtx model.EventContext) []model.RunResult {
	f.calls = append(f.calls, dispatchCall{event, scopeId, evCtx})
	return []model.RunResult{
		{RunId: "run-1", WorkflowId: "wf-a", Event: event, Success: false, Error: "node a1: boom"},
		{RunId: "run-2", WorkflowId: "wf-b", Event: event, Success: true, Terminal: "executed"},
	}
}

func setupClient(t *testing.T, dispatcher EventDispatcher) api.EventServiceClient {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv, err := NewGrpcServer(&GrpcConfig{Dispatcher: dispatcher})
	require.NoError(t, err)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return api.NewEventServiceClient(conn)
}

func TestDispatch(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	client := setupClient(t, dispatcher)

	req, err := util.ConvertToProto(map[string]any{
		"event": "Document-Uploaded",
		"scope": "p1",
		"context": map[string]any{
			"documentId": "doc-1",
			"actorId":    "user-1",
			"metadata":   map[string]any{"source": "email"},
		},
	})
	require.NoError(t, err)

	resp, err := client.Dispatch(context.Background(), req)
	require.NoError(t, err)
	results, err := DecodeResults(resp)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.False(t, results[0].Success)
	require.Equal(t, "node a1: boom", results[0].Error)
	require.True(t, results[1].Success)

	require.Len(t, dispatcher.calls, 1)
	call := dispatcher.calls[0]
	require.Equal(t, model.EVENT_DOCUMENT_UPLOADED, call.event)
	require.Equal(t, "p1", call.scopeId)
	require.Equal(t, "doc-1", call.evCtx.DocumentId)
	require.Equal(t, "email", call.evCtx.Metadata["source"])
}

func TestDispatchInvalidRequest(t *testing.T) {
	client := setupClient(t, &fakeDispatcher{})
	req, err := util.ConvertToProto(map[string]any{"scope": "p1"})
	require.NoError(t, err)

	_, err = client.Dispatch(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}
