package redis

import (
	"context"
	"errors"
	"sort"

	rd "github.com/go-redis/redis/v9"
	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/metadata"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/persistence"
	"github.com/intakehq/autoflow/util"
	"go.uber.org/zap"
)

var _ metadata.MetadataStorage = new(redisMetadataStorage)

// redisMetadataStorage keeps one hash per scope, keyed by workflow id.
type redisMetadataStorage struct {
	*baseDao
	workflowEncoderDecoder util.EncoderDecoder[model.WorkflowDefinition]
}

func NewRedisMetadataStorage(conf Config) *redisMetadataStorage {
	return &redisMetadataStorage{
		baseDao:                newBaseDao(conf),
		workflowEncoderDecoder: util.NewJsonEncoderDecoder[model.WorkflowDefinition](),
	}
}

func (rfd *redisMetadataStorage) SaveWorkflowDefinition(ctx context.Context, wf model.WorkflowDefinition) error {
	key := rfd.getNamespaceKey(persistence.WORKFLOW_PREFIX, wf.Scope)
	data, err := rfd.workflowEncoderDecoder.Encode(wf)
	if err != nil {
		return err
	}
	if err := rfd.redisClient.HSet(ctx, key, []string{wf.Id, string(data)}).Err(); err != nil {
		logger.Error("error in saving workflow definition", zap.String("scope", wf.Scope), zap.String("workflow", wf.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rfd *redisMetadataStorage) DeleteWorkflowDefinition(ctx context.Context, scope string, id string) error {
	key := rfd.getNamespaceKey(persistence.WORKFLOW_PREFIX, scope)
	removed, err := rfd.redisClient.HDel(ctx, key, id).Result()
	if err != nil {
		logger.Error("error in deleting workflow definition", zap.String("scope", scope), zap.String("workflow", id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if removed == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (rfd *redisMetadataStorage) GetWorkflowDefinition(ctx context.Context, scope string, id string) (*model.WorkflowDefinition, error) {
	key := rfd.getNamespaceKey(persistence.WORKFLOW_PREFIX, scope)
	val, err := rfd.redisClient.HGet(ctx, key, id).Result()
	if errors.Is(err, rd.Nil) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return rfd.workflowEncoderDecoder.Decode([]byte(val))
}

func (rfd *redisMetadataStorage) ListWorkflowDefinitions(ctx context.Context, scope string) ([]model.WorkflowDefinition, error) {
	key := rfd.getNamespaceKey(persistence.WORKFLOW_PREFIX, scope)
	all, err := rfd.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	out := make([]model.WorkflowDefinition, 0, len(all))
	for id, val := range all {
		wf, err := rfd.workflowEncoderDecoder.Decode([]byte(val))
		if err != nil {
			logger.Error("skipping undecodable workflow definition", zap.String("scope", scope), zap.String("workflow", id), zap.Error(err))
			continue
		}
		out = append(out, *wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}
