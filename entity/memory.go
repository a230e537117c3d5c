package entity

import (
	"context"
	"sync"
	"time"
)

var _ Store = new(MemoryStore)
var _ Repository = new(MemoryStore)

// MemoryStore keeps documents and batches in process. Each update is atomic per call.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]Document
	batches   map[string]Batch
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]Document),
		batches:   make(map[string]Batch),
	}
}

func (m *MemoryStore) SaveDocument(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.Id] = copyDocument(doc)
	return nil
}

func (m *MemoryStore) SaveBatch(ctx context.Context, batch Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[batch.Id] = batch
	return nil
}

func (m *MemoryStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	doc = copyDocument(doc)
	return &doc, nil
}

func (m *MemoryStore) GetBatch(ctx context.Context, id string) (*Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *MemoryStore) Read(ctx context.Context, ref Ref, attrs ...Attribute) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch ref.Type {
	case DOCUMENT:
		doc, ok := m.documents[ref.Id]
		snap := NewSnapshot(ref, ok)
		if !ok {
			return snap, nil
		}
		for _, attr := range attrs {
			switch attr {
			case ATTR_CONFIDENCE:
				if doc.Confidence != nil {
					snap.Set(attr, *doc.Confidence)
				}
			case ATTR_DOCUMENT_TYPE:
				if doc.DocumentType != "" {
					snap.Set(attr, doc.DocumentType)
				}
			case ATTR_STATUS:
				if doc.Status != "" {
					snap.Set(attr, doc.Status)
				}
			case ATTR_PRIORITY:
				snap.Set(attr, doc.Priority)
			default:
				if name, ok := attr.FieldName(); ok {
					if v, ok := doc.Fields[name]; ok {
						snap.Set(attr, v)
					}
				}
			}
		}
		return snap, nil
	case BATCH:
		b, ok := m.batches[ref.Id]
		snap := NewSnapshot(ref, ok)
		if !ok {
			return snap, nil
		}
		for _, attr := range attrs {
			switch attr {
			case ATTR_STATUS:
				if b.Status != "" {
					snap.Set(attr, b.Status)
				}
			case ATTR_PRIORITY:
				snap.Set(attr, b.Priority)
			}
		}
		return snap, nil
	}
	return NewSnapshot(ref, false), nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, ref Ref, status Status) error {
	return m.update(ref, func(doc *Document) { doc.Status = status }, func(b *Batch) { b.Status = status })
}

func (m *MemoryStore) UpdatePriority(ctx context.Context, ref Ref, priority int) error {
	return m.update(ref, func(doc *Document) { doc.Priority = priority }, func(b *Batch) { b.Priority = priority })
}

func (m *MemoryStore) MarkValidated(ctx context.Context, ref Ref, validatedAt time.Time, validatedBy string) error {
	if ref.Type != DOCUMENT {
		return ErrNotFound
	}
	return m.update(ref, func(doc *Document) {
		doc.Status = STATUS_VALIDATED
		doc.ValidatedAt = &validatedAt
		doc.ValidatedBy = validatedBy
	}, nil)
}

func (m *MemoryStore) update(ref Ref, docFn func(*Document), batchFn func(*Batch)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ref.Type {
	case DOCUMENT:
		doc, ok := m.documents[ref.Id]
		if !ok || docFn == nil {
			return ErrNotFound
		}
		docFn(&doc)
		m.documents[ref.Id] = doc
		return nil
	case BATCH:
		b, ok := m.batches[ref.Id]
		if !ok || batchFn == nil {
			return ErrNotFound
		}
		batchFn(&b)
		m.batches[ref.Id] = b
		return nil
	}
	return ErrNotFound
}

func copyDocument(doc Document) Document {
	fields := make(map[string]any, len(doc.Fields))
	for k, v := range doc.Fields {
		fields[k] = v
	}
	doc.Fields = fields
	if doc.Confidence != nil {
		c := *doc.Confidence
		doc.Confidence = &c
	}
	if doc.ValidatedAt != nil {
		t := *doc.ValidatedAt
		doc.ValidatedAt = &t
	}
	return doc
}
