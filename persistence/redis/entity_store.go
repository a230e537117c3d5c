package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/persistence"
	"go.uber.org/zap"
)

const (
	fieldProjectId   = "project_id"
	fieldBatchId     = "batch_id"
	fieldDocType     = "document_type"
	fieldConfidence  = "confidence_score"
	fieldFields      = "fields"
	fieldStatus      = "validation_status"
	fieldPriority    = "priority"
	fieldValidatedAt = "validated_at"
	fieldValidatedBy = "validated_by"
)

// updateIfExists applies HSET only to an existing hash so that a write never creates a
// partial record for an entity the pipeline has not stored.
var updateIfExists = rd.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

var _ entity.Store = new(redisEntityStore)
var _ entity.Repository = new(redisEntityStore)

// redisEntityStore keeps one hash per document or batch.
type redisEntityStore struct {
	*baseDao
}

func NewRedisEntityStore(conf Config) *redisEntityStore {
	return &redisEntityStore{
		baseDao: newBaseDao(conf),
	}
}

func (r *redisEntityStore) key(ref entity.Ref) string {
	if ref.Type == entity.BATCH {
		return r.getNamespaceKey(persistence.BATCH_PREFIX, ref.Id)
	}
	return r.getNamespaceKey(persistence.DOCUMENT_PREFIX, ref.Id)
}

func (r *redisEntityStore) Read(ctx context.Context, ref entity.Ref, attrs ...entity.Attribute) (*entity.Snapshot, error) {
	key := r.key(ref)
	hashFields := hashFieldsFor(ref, attrs)

	var exists *rd.IntCmd
	var values *rd.SliceCmd
	_, err := r.redisClient.Pipelined(ctx, func(p rd.Pipeliner) error {
		exists = p.Exists(ctx, key)
		if len(hashFields) > 0 {
			values = p.HMGet(ctx, key, hashFields...)
		}
		return nil
	})
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	snap := entity.NewSnapshot(ref, exists.Val() > 0)
	if !snap.Found || values == nil {
		return snap, nil
	}
	raw := make(map[string]string, len(hashFields))
	for i, v := range values.Val() {
		if s, ok := v.(string); ok {
			raw[hashFields[i]] = s
		}
	}
	for _, attr := range attrs {
		r.fill(snap, ref, attr, raw)
	}
	return snap, nil
}

func hashFieldsFor(ref entity.Ref, attrs []entity.Attribute) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, attr := range attrs {
		if _, ok := attr.FieldName(); ok {
			if ref.Type == entity.DOCUMENT {
				add(fieldFields)
			}
			continue
		}
		switch attr {
		case entity.ATTR_STATUS:
			add(fieldStatus)
		case entity.ATTR_PRIORITY:
			add(fieldPriority)
		case entity.ATTR_CONFIDENCE:
			if ref.Type == entity.DOCUMENT {
				add(fieldConfidence)
			}
		case entity.ATTR_DOCUMENT_TYPE:
			if ref.Type == entity.DOCUMENT {
				add(fieldDocType)
			}
		}
	}
	return out
}

// fill decodes one attribute. Values that do not parse are treated as absent.
func (r *redisEntityStore) fill(snap *entity.Snapshot, ref entity.Ref, attr entity.Attribute, raw map[string]string) {
	if name, ok := attr.FieldName(); ok {
		data, ok := raw[fieldFields]
		if !ok {
			return
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(data), &fields); err != nil {
			logger.Warn("extracted fields are not valid json", zap.String("entity", ref.String()), zap.Error(err))
			return
		}
		snap.Set(attr, fields[name])
		return
	}
	switch attr {
	case entity.ATTR_CONFIDENCE:
		if v, ok := raw[fieldConfidence]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				snap.Set(attr, f)
			}
		}
	case entity.ATTR_DOCUMENT_TYPE:
		if v, ok := raw[fieldDocType]; ok && v != "" {
			snap.Set(attr, v)
		}
	case entity.ATTR_STATUS:
		if v, ok := raw[fieldStatus]; ok && v != "" {
			snap.Set(attr, entity.Status(v))
		}
	case entity.ATTR_PRIORITY:
		if v, ok := raw[fieldPriority]; ok {
			if p, err := strconv.Atoi(v); err == nil {
				snap.Set(attr, p)
			}
		}
	}
}

func (r *redisEntityStore) update(ctx context.Context, ref entity.Ref, args ...any) error {
	updated, err := updateIfExists.Run(ctx, r.redisClient, []string{r.key(ref)}, args...).Int()
	if err != nil {
		logger.Error("error in updating entity", zap.String("entity", ref.String()), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if updated == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *redisEntityStore) UpdateStatus(ctx context.Context, ref entity.Ref, status entity.Status) error {
	return r.update(ctx, ref, fieldStatus, string(status))
}

func (r *redisEntityStore) UpdatePriority(ctx context.Context, ref entity.Ref, priority int) error {
	return r.update(ctx, ref, fieldPriority, strconv.Itoa(priority))
}

func (r *redisEntityStore) MarkValidated(ctx context.Context, ref entity.Ref, validatedAt time.Time, validatedBy string) error {
	if ref.Type != entity.DOCUMENT {
		return entity.ErrNotFound
	}
	return r.update(ctx, ref,
		fieldStatus, string(entity.STATUS_VALIDATED),
		fieldValidatedAt, validatedAt.UTC().Format(time.RFC3339Nano),
		fieldValidatedBy, validatedBy,
	)
}

func (r *redisEntityStore) SaveDocument(ctx context.Context, doc entity.Document) error {
	values := map[string]any{
		fieldProjectId: doc.ProjectId,
		fieldBatchId:   doc.BatchId,
		fieldDocType:   doc.DocumentType,
		fieldStatus:    string(doc.Status),
		fieldPriority:  strconv.Itoa(doc.Priority),
	}
	if doc.Confidence != nil {
		values[fieldConfidence] = strconv.FormatFloat(*doc.Confidence, 'f', -1, 64)
	}
	if doc.Fields != nil {
		data, err := json.Marshal(doc.Fields)
		if err != nil {
			return err
		}
		values[fieldFields] = string(data)
	}
	if doc.ValidatedAt != nil {
		values[fieldValidatedAt] = doc.ValidatedAt.UTC().Format(time.RFC3339Nano)
		values[fieldValidatedBy] = doc.ValidatedBy
	}
	return r.replace(ctx, entity.DocumentRef(doc.Id), values)
}

func (r *redisEntityStore) SaveBatch(ctx context.Context, batch entity.Batch) error {
	return r.replace(ctx, entity.BatchRef(batch.Id), map[string]any{
		fieldProjectId: batch.ProjectId,
		fieldStatus:    string(batch.Status),
		fieldPriority:  strconv.Itoa(batch.Priority),
	})
}

func (r *redisEntityStore) replace(ctx context.Context, ref entity.Ref, values map[string]any) error {
	key := r.key(ref)
	_, err := r.redisClient.TxPipelined(ctx, func(p rd.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, values)
		return nil
	})
	if err != nil {
		logger.Error("error in saving entity", zap.String("entity", ref.String()), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisEntityStore) GetDocument(ctx context.Context, id string) (*entity.Document, error) {
	all, err := r.getAll(ctx, entity.DocumentRef(id))
	if err != nil {
		return nil, err
	}
	doc := &entity.Document{
		Id:           id,
		ProjectId:    all[fieldProjectId],
		BatchId:      all[fieldBatchId],
		DocumentType: all[fieldDocType],
		Status:       entity.Status(all[fieldStatus]),
		ValidatedBy:  all[fieldValidatedBy],
	}
	if v, ok := all[fieldConfidence]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			doc.Confidence = &f
		}
	}
	if v, ok := all[fieldFields]; ok {
		if err := json.Unmarshal([]byte(v), &doc.Fields); err != nil {
			return nil, err
		}
	}
	doc.Priority, _ = strconv.Atoi(all[fieldPriority])
	if v, ok := all[fieldValidatedAt]; ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			doc.ValidatedAt = &t
		}
	}
	return doc, nil
}

func (r *redisEntityStore) GetBatch(ctx context.Context, id string) (*entity.Batch, error) {
	all, err := r.getAll(ctx, entity.BatchRef(id))
	if err != nil {
		return nil, err
	}
	priority, _ := strconv.Atoi(all[fieldPriority])
	return &entity.Batch{
		Id:        id,
		ProjectId: all[fieldProjectId],
		Status:    entity.Status(all[fieldStatus]),
		Priority:  priority,
	}, nil
}

func (r *redisEntityStore) getAll(ctx context.Context, ref entity.Ref) (map[string]string, error) {
	all, err := r.redisClient.HGetAll(ctx, r.key(ref)).Result()
	if err != nil && !errors.Is(err, rd.Nil) {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	if len(all) == 0 {
		return nil, entity.ErrNotFound
	}
	return all, nil
}
