package rpc

import (
	"context"
	"encoding/json"

	api "github.com/intakehq/autoflow/api/v1"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/util"
	"google.golang.org/protobuf/types/known/structpb"
)

type EventDispatcher interface {
	Dispatch(ctx context.Context, event model.EventType, scopeId string, evCtx model.EventContext) []model.RunResult
}

var _ api.EventServiceServer = (*grpcServer)(nil)

// Dispatch runs the event synchronously. Workflow failures are part of the response,
// only malformed requests produce a gRPC error.
func (srv *grpcServer) Dispatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	request, err := decodeRequest(req)
	if err != nil {
		return nil, api.InvalidRequestError{Reason: err.Error()}
	}
	if request.Event == "" {
		return nil, api.InvalidRequestError{Reason: "event is required"}
	}
	if request.ScopeId == "" {
		return nil, api.InvalidRequestError{Reason: "scope is required"}
	}
	results := srv.Dispatcher.Dispatch(ctx, model.ToEventType(string(request.Event)), request.ScopeId, request.Context)
	return encodeResults(results)
}

func decodeRequest(req *structpb.Struct) (*model.DispatchRequest, error) {
	data, err := json.Marshal(util.ConvertFromProto(req))
	if err != nil {
		return nil, err
	}
	var request model.DispatchRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func encodeResults(results []model.RunResult) (*structpb.Struct, error) {
	data, err := json.Marshal(map[string]any{"results": results})
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return util.ConvertToProto(out)
}

// DecodeResults turns a Dispatch response back into run results.
func DecodeResults(resp *structpb.Struct) ([]model.RunResult, error) {
	data, err := json.Marshal(util.ConvertFromProto(resp))
	if err != nil {
		return nil, err
	}
	var out struct {
		Results []model.RunResult `json:"results"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}
