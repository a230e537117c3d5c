package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/intakehq/autoflow/flow"
	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/persistence"
	c "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// ValidationError rejects an active definition that failed validation.
type ValidationError struct {
	Result *flow.ValidationResult
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("workflow definition is invalid: %s", e.Result.Error())
}

type MetadataService interface {
	// GetActiveFlows returns the active workflows of scope whose trigger set contains event.
	GetActiveFlows(ctx context.Context, scope string, event model.EventType) ([]*flow.Flow, error)
	GetFlow(ctx context.Context, scope string, id string) (*flow.Flow, error)
	ValidateFlow(wf model.WorkflowDefinition) *flow.ValidationResult
	SaveFlow(ctx context.Context, wf model.WorkflowDefinition) (*flow.ValidationResult, error)
	DeleteFlow(ctx context.Context, scope string, id string) error
	GetMetadataStorage() MetadataStorage
}

var _ MetadataService = new(MetadataServiceImpl)

type MetadataServiceImpl struct {
	storage MetadataStorage
	flows   *c.Cache
}

// NewMetadataService caches compiled flows for ttl. A zero ttl keeps them until the
// definition changes.
func NewMetadataService(storage MetadataStorage, ttl time.Duration) *MetadataServiceImpl {
	expiration := c.NoExpiration
	if ttl > 0 {
		expiration = ttl
	}
	return &MetadataServiceImpl{
		storage: storage,
		flows:   c.New(expiration, 10*time.Minute),
	}
}

func cacheKey(scope string, id string) string {
	return scope + ":" + id
}

type compiledFlow struct {
	fingerprint uint64
	flow        *flow.Flow
}

// fingerprint hashes the stored form of wf. Versions restart at 1 when a definition is
// deleted and saved again, possibly by another instance, so the version alone can not
// identify a compiled flow.
func fingerprint(wf model.WorkflowDefinition) (uint64, error) {
	data, err := json.Marshal(wf)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

// compile returns the cached flow for wf when it was built from identical content.
func (s *MetadataServiceImpl) compile(wf model.WorkflowDefinition) *flow.Flow {
	key := cacheKey(wf.Scope, wf.Id)
	sum, err := fingerprint(wf)
	if err != nil {
		logger.Warn("workflow definition not cacheable", zap.String("scope", wf.Scope), zap.String("workflow", wf.Id), zap.Error(err))
		def := wf
		return flow.Convert(&def)
	}
	if cached, found := s.flows.Get(key); found {
		entry := cached.(compiledFlow)
		if entry.fingerprint == sum {
			return entry.flow
		}
	}
	def := wf
	fl := flow.Convert(&def)
	s.flows.SetDefault(key, compiledFlow{fingerprint: sum, flow: fl})
	return fl
}

func (s *MetadataServiceImpl) GetActiveFlows(ctx context.Context, scope string, event model.EventType) ([]*flow.Flow, error) {
	defs, err := s.storage.ListWorkflowDefinitions(ctx, scope)
	if err != nil {
		return nil, err
	}
	var flows []*flow.Flow
	for _, wf := range defs {
		if !wf.Active || !wf.RespondsTo(event) {
			continue
		}
		flows = append(flows, s.compile(wf))
	}
	return flows, nil
}

func (s *MetadataServiceImpl) GetFlow(ctx context.Context, scope string, id string) (*flow.Flow, error) {
	wf, err := s.storage.GetWorkflowDefinition(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return s.compile(*wf), nil
}

func (s *MetadataServiceImpl) ValidateFlow(wf model.WorkflowDefinition) *flow.ValidationResult {
	return flow.Validate(&wf)
}

// SaveFlow stores wf with the next version number. Active definitions must validate
// cleanly. Inactive drafts are stored regardless and their report is returned.
func (s *MetadataServiceImpl) SaveFlow(ctx context.Context, wf model.WorkflowDefinition) (*flow.ValidationResult, error) {
	wf.Scope = strings.TrimSpace(wf.Scope)
	wf.Id = strings.TrimSpace(wf.Id)
	events := make([]model.EventType, 0, len(wf.TriggerEvents))
	for _, e := range wf.TriggerEvents {
		events = append(events, model.ToEventType(string(e)))
	}
	wf.TriggerEvents = events
	result := s.ValidateFlow(wf)
	if wf.Active && result.HasErrors() {
		return result, ValidationError{Result: result}
	}
	if wf.Id == "" || wf.Scope == "" {
		return result, ValidationError{Result: result}
	}

	existing, err := s.storage.GetWorkflowDefinition(ctx, wf.Scope, wf.Id)
	switch {
	case err == nil:
		wf.Version = existing.Version + 1
	case errors.Is(err, persistence.ErrNotFound):
		wf.Version = 1
	default:
		return result, err
	}
	if err := s.storage.SaveWorkflowDefinition(ctx, wf); err != nil {
		return result, err
	}
	s.flows.Delete(cacheKey(wf.Scope, wf.Id))
	logger.Info("workflow definition saved", zap.String("scope", wf.Scope), zap.String("workflow", wf.Id), zap.Int("version", wf.Version), zap.Bool("active", wf.Active), zap.Int("warnings", len(result.Warnings)))
	return result, nil
}

func (s *MetadataServiceImpl) DeleteFlow(ctx context.Context, scope string, id string) error {
	if err := s.storage.DeleteWorkflowDefinition(ctx, scope, id); err != nil {
		return err
	}
	s.flows.Delete(cacheKey(scope, id))
	return nil
}

func (s *MetadataServiceImpl) GetMetadataStorage() MetadataStorage {
	return s.storage
}
