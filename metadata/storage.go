package metadata

import (
	"context"
	"sort"
	"sync"

	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/persistence"
)

type MetadataStorage interface {
	SaveWorkflowDefinition(ctx context.Context, wf model.WorkflowDefinition) error
	DeleteWorkflowDefinition(ctx context.Context, scope string, id string) error
	GetWorkflowDefinition(ctx context.Context, scope string, id string) (*model.WorkflowDefinition, error)
	// ListWorkflowDefinitions returns every definition of scope ordered by id.
	ListWorkflowDefinitions(ctx context.Context, scope string) ([]model.WorkflowDefinition, error)
}

var _ MetadataStorage = new(memoryMetadataStorage)

type memoryMetadataStorage struct {
	mu        sync.RWMutex
	workflows map[string]map[string]model.WorkflowDefinition
}

func NewMemoryMetadataStorage() *memoryMetadataStorage {
	return &memoryMetadataStorage{
		workflows: make(map[string]map[string]model.WorkflowDefinition),
	}
}

func (s *memoryMetadataStorage) SaveWorkflowDefinition(ctx context.Context, wf model.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scoped, ok := s.workflows[wf.Scope]
	if !ok {
		scoped = make(map[string]model.WorkflowDefinition)
		s.workflows[wf.Scope] = scoped
	}
	scoped[wf.Id] = wf
	return nil
}

func (s *memoryMetadataStorage) DeleteWorkflowDefinition(ctx context.Context, scope string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workflows[scope][id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.workflows[scope], id)
	return nil
}

func (s *memoryMetadataStorage) GetWorkflowDefinition(ctx context.Context, scope string, id string) (*model.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[scope][id]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return &wf, nil
}

func (s *memoryMetadataStorage) ListWorkflowDefinitions(ctx context.Context, scope string) ([]model.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.WorkflowDefinition, 0, len(s.workflows[scope]))
	for _, wf := range s.workflows[scope] {
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}
