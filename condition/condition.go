package condition

import (
	"context"
	"fmt"
	"strings"

	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/model"
)

type Kind string

const CONFIDENCE_THRESHOLD Kind = "confidence-threshold"
const DOCUMENT_TYPE_MATCH Kind = "document-type-match"
const FIELD_VALUE_CONTAINS Kind = "field-value-contains"
const METADATA_MATCH Kind = "metadata-match"
const SCRIPT Kind = "script"

var KNOWN_KINDS = []Kind{CONFIDENCE_THRESHOLD, DOCUMENT_TYPE_MATCH, FIELD_VALUE_CONTAINS, METADATA_MATCH, SCRIPT}

func ToKind(k string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(k)))
}

func IsKnown(k Kind) bool {
	for _, known := range KNOWN_KINDS {
		if known == k {
			return true
		}
	}
	return false
}

// Condition is a side-effect free predicate over entity state and the execution context.
// Missing data evaluates to false. An error means the state could not be read.
type Condition interface {
	GetId() string
	GetKind() Kind
	Validate() error
	Evaluate(ctx context.Context, execCtx *model.ExecutionContext, reader entity.Reader) (bool, error)
}

type baseCondition struct {
	id     string
	kind   Kind
	config map[string]any
}

func (bc *baseCondition) GetId() string {
	return bc.id
}

func (bc *baseCondition) GetKind() Kind {
	return bc.kind
}

// New builds the condition for a node definition. Unknown kinds produce a condition that
// always evaluates to false.
func New(def model.NodeDefinition) Condition {
	base := baseCondition{id: def.Id, kind: ToKind(def.Kind), config: def.Config}
	if base.config == nil {
		base.config = map[string]any{}
	}
	switch base.kind {
	case CONFIDENCE_THRESHOLD:
		return newConfidenceThreshold(base)
	case DOCUMENT_TYPE_MATCH:
		return newDocumentTypeMatch(base)
	case FIELD_VALUE_CONTAINS:
		return newFieldValueContains(base)
	case METADATA_MATCH:
		return newMetadataMatch(base)
	case SCRIPT:
		return newScript(base)
	}
	return &unknownCondition{baseCondition: base}
}

func configError(id string, format string, args ...any) error {
	return fmt.Errorf("conditionId=%s, %s", id, fmt.Sprintf(format, args...))
}

// readSubject reads attrs of the run's subject entity. A context with neither document
// nor batch yields an empty snapshot.
func readSubject(ctx context.Context, execCtx *model.ExecutionContext, reader entity.Reader, attrs ...entity.Attribute) (*entity.Snapshot, error) {
	ref, ok := entity.Subject(execCtx)
	if !ok || reader == nil {
		return entity.NewSnapshot(ref, false), nil
	}
	snap, err := reader.Read(ctx, ref, attrs...)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ref, err)
	}
	return snap, nil
}
