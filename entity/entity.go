package entity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/persistence"
)

// ErrNotFound is returned by writers when the referenced entity does not exist.
var ErrNotFound = persistence.ErrNotFound

type EntityType string

const DOCUMENT EntityType = "document"
const BATCH EntityType = "batch"

type Ref struct {
	Type EntityType
	Id   string
}

func DocumentRef(id string) Ref {
	return Ref{Type: DOCUMENT, Id: id}
}

func BatchRef(id string) Ref {
	return Ref{Type: BATCH, Id: id}
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.Id)
}

// Subject returns the entity a run operates on: the document when the context has
// one, otherwise the batch.
func Subject(execCtx *model.ExecutionContext) (Ref, bool) {
	if execCtx == nil {
		return Ref{}, false
	}
	if execCtx.DocumentId != "" {
		return DocumentRef(execCtx.DocumentId), true
	}
	if execCtx.BatchId != "" {
		return BatchRef(execCtx.BatchId), true
	}
	return Ref{}, false
}

type Status string

const STATUS_PENDING Status = "pending"
const STATUS_VALIDATED Status = "validated"
const STATUS_NEEDS_REVIEW Status = "needs_review"

var queueStatus = map[string]Status{
	"validation": STATUS_PENDING,
	"export":     STATUS_VALIDATED,
	"review":     STATUS_NEEDS_REVIEW,
}

// StatusForQueue maps a queue label to the status that places an entity in it.
func StatusForQueue(queue string) (Status, bool) {
	s, ok := queueStatus[strings.ToLower(strings.TrimSpace(queue))]
	return s, ok
}

func ToStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case STATUS_PENDING, STATUS_VALIDATED, STATUS_NEEDS_REVIEW:
		return st, true
	}
	return "", false
}

type Attribute string

const ATTR_CONFIDENCE Attribute = "confidence_score"
const ATTR_DOCUMENT_TYPE Attribute = "document_type"
const ATTR_STATUS Attribute = "validation_status"
const ATTR_PRIORITY Attribute = "priority"

const fieldPrefix = "fields."

// FieldAttribute requests a single named extracted field.
func FieldAttribute(name string) Attribute {
	return Attribute(fieldPrefix + name)
}

func (a Attribute) FieldName() (string, bool) {
	if strings.HasPrefix(string(a), fieldPrefix) {
		return strings.TrimPrefix(string(a), fieldPrefix), true
	}
	return "", false
}

type Reader interface {
	// Read returns the requested attributes of ref. A missing entity or attribute is
	// reported through the snapshot, never as an error.
	Read(ctx context.Context, ref Ref, attrs ...Attribute) (*Snapshot, error)
}

type Writer interface {
	UpdateStatus(ctx context.Context, ref Ref, status Status) error
	UpdatePriority(ctx context.Context, ref Ref, priority int) error
	MarkValidated(ctx context.Context, ref Ref, validatedAt time.Time, validatedBy string) error
}

type Store interface {
	Reader
	Writer
}

// Repository loads and stores whole records. It backs the entity admin API; workflow
// runs only go through Store.
type Repository interface {
	SaveDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	SaveBatch(ctx context.Context, batch Batch) error
	GetBatch(ctx context.Context, id string) (*Batch, error)
}

type Document struct {
	Id           string         `json:"id"`
	ProjectId    string         `json:"projectId"`
	BatchId      string         `json:"batchId,omitempty"`
	DocumentType string         `json:"documentType,omitempty"`
	Confidence   *float64       `json:"confidence,omitempty"`
	Fields       map[string]any `json:"fields,omitempty"`
	Status       Status         `json:"status,omitempty"`
	Priority     int            `json:"priority"`
	ValidatedAt  *time.Time     `json:"validatedAt,omitempty"`
	ValidatedBy  string         `json:"validatedBy,omitempty"`
}

type Batch struct {
	Id        string `json:"id"`
	ProjectId string `json:"projectId"`
	Status    Status `json:"status,omitempty"`
	Priority  int    `json:"priority"`
}
