package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/metadata"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/util"
	"go.uber.org/zap"
)

type EventDispatcher interface {
	Dispatch(ctx context.Context, event model.EventType, scopeId string, evCtx model.EventContext) []model.RunResult
}

// TaskSubmitter queues work without blocking the request.
type TaskSubmitter interface {
	Submit(task util.Task) error
}

type Server struct {
	http.Server
	Port            int
	metadataService metadata.MetadataService
	dispatcher      EventDispatcher
	entities        entity.Repository
	async           TaskSubmitter
}

// NewServer builds the HTTP API. async may be nil, in which case asynchronous event
// requests are rejected.
func NewServer(httpPort int, metadataService metadata.MetadataService, dispatcher EventDispatcher, entities entity.Repository, async TaskSubmitter) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		metadataService: metadataService,
		dispatcher:      dispatcher,
		entities:        entities,
		async:           async,
		Port:            httpPort,
	}

	router := mux.NewRouter()
	router.HandleFunc("/metadata/workflow", s.HandleCreateFlow).Methods(http.MethodPost)
	router.HandleFunc("/metadata/workflow/validate", s.HandleValidateFlow).Methods(http.MethodPost)
	router.HandleFunc("/metadata/workflow/{scope}", s.HandleListFlows).Methods(http.MethodGet)
	router.HandleFunc("/metadata/workflow/{scope}/{id}", s.HandleGetFlow).Methods(http.MethodGet)
	router.HandleFunc("/metadata/workflow/{scope}/{id}", s.HandleDeleteFlow).Methods(http.MethodDelete)

	router.HandleFunc("/entity/document/{id}", s.HandlePutDocument).Methods(http.MethodPut)
	router.HandleFunc("/entity/document/{id}", s.HandleGetDocument).Methods(http.MethodGet)
	router.HandleFunc("/entity/batch/{id}", s.HandlePutBatch).Methods(http.MethodPut)
	router.HandleFunc("/entity/batch/{id}", s.HandleGetBatch).Methods(http.MethodGet)

	router.HandleFunc("/event", s.HandleEvent).Methods(http.MethodPost)
	router.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
		return err
	}
	return nil
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]any{"status": "ok"})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("http request", zap.String("method", r.Method), zap.String("uri", r.RequestURI))
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
