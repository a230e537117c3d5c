package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/metadata"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/persistence"
	"go.uber.org/zap"
)

func (s *Server) HandleCreateFlow(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var wf model.WorkflowDefinition
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid workflow definition")
		return
	}
	result, err := s.metadataService.SaveFlow(r.Context(), wf)
	if err != nil {
		var verr metadata.ValidationError
		if errors.As(err, &verr) {
			respondWithJSON(w, http.StatusBadRequest, map[string]any{
				"error":    "workflow definition is invalid",
				"errors":   result.Errors,
				"warnings": result.Warnings,
			})
			return
		}
		logger.Error("error creating workflow", zap.String("workflow", wf.Id), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error creating workflow")
		return
	}
	respondOK(w, map[string]any{"created": true, "errors": result.Errors, "warnings": result.Warnings})
}

func (s *Server) HandleValidateFlow(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var wf model.WorkflowDefinition
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid workflow definition")
		return
	}
	result := s.metadataService.ValidateFlow(wf)
	respondOK(w, map[string]any{"valid": !result.HasErrors(), "errors": result.Errors, "warnings": result.Warnings})
}

func (s *Server) HandleListFlows(w http.ResponseWriter, r *http.Request) {
	scope := mux.Vars(r)["scope"]
	defs, err := s.metadataService.GetMetadataStorage().ListWorkflowDefinitions(r.Context(), scope)
	if err != nil {
		logger.Error("error listing workflows", zap.String("scope", scope), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error listing workflows")
		return
	}
	respondWithJSON(w, http.StatusOK, defs)
}

func (s *Server) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	wf, err := s.metadataService.GetMetadataStorage().GetWorkflowDefinition(r.Context(), vars["scope"], vars["id"])
	if err != nil {
		respondStorageError(w, err, "workflow does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, wf)
}

func (s *Server) HandleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.metadataService.DeleteFlow(r.Context(), vars["scope"], vars["id"]); err != nil {
		respondStorageError(w, err, "workflow does not exist")
		return
	}
	respondOK(w, map[string]any{"deleted": true})
}

func respondStorageError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, persistence.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, notFound)
		return
	}
	logger.Error("storage error", zap.Error(err))
	respondWithError(w, http.StatusInternalServerError, "error in storage layer")
}
