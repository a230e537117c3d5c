package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/util"
	"go.uber.org/zap"
)

func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req model.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid event payload")
		return
	}
	req.Event = model.ToEventType(string(req.Event))
	if req.Event == "" || req.ScopeId == "" {
		respondWithError(w, http.StatusBadRequest, "event and scope are required")
		return
	}

	if req.Async {
		if s.async == nil {
			respondWithError(w, http.StatusBadRequest, "asynchronous dispatch is disabled")
			return
		}
		if err := s.async.Submit(req); err != nil {
			logger.Warn("event rejected", zap.String("event", string(req.Event)), zap.String("scope", req.ScopeId), zap.Error(err))
			if errors.Is(err, util.ErrWorkerFull) {
				respondWithError(w, http.StatusServiceUnavailable, "event queue is full")
				return
			}
			respondWithError(w, http.StatusInternalServerError, "error queueing event")
			return
		}
		respondWithJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
		return
	}

	results := s.dispatcher.Dispatch(r.Context(), req.Event, req.ScopeId, req.Context)
	respondWithJSON(w, http.StatusOK, map[string]any{"results": results})
}

// AsyncDispatchHandler adapts a dispatcher to the async worker. Runs are detached from
// the request that queued them.
func AsyncDispatchHandler(dispatcher EventDispatcher) func(util.Task) error {
	return func(task util.Task) error {
		req, ok := task.(model.DispatchRequest)
		if !ok {
			return errors.New("unexpected task type")
		}
		dispatcher.Dispatch(context.Background(), req.Event, req.ScopeId, req.Context)
		return nil
	}
}
