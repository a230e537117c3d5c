package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/intakehq/autoflow/entity"
)

func (s *Server) HandlePutDocument(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var doc entity.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid document")
		return
	}
	doc.Id = mux.Vars(r)["id"]
	if err := s.entities.SaveDocument(r.Context(), doc); err != nil {
		respondStorageError(w, err, "document does not exist")
		return
	}
	respondOK(w, map[string]any{"saved": true})
}

func (s *Server) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.entities.GetDocument(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondStorageError(w, err, "document does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, doc)
}

func (s *Server) HandlePutBatch(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var batch entity.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid batch")
		return
	}
	batch.Id = mux.Vars(r)["id"]
	if err := s.entities.SaveBatch(r.Context(), batch); err != nil {
		respondStorageError(w, err, "batch does not exist")
		return
	}
	respondOK(w, map[string]any{"saved": true})
}

func (s *Server) HandleGetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := s.entities.GetBatch(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondStorageError(w, err, "batch does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, batch)
}
