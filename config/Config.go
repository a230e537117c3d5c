package config

import (
	"fmt"
	"time"

	"github.com/intakehq/autoflow/analytics"
	"github.com/intakehq/autoflow/persistence/redis"
)

type StorageType string

type NotifierType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

const NOTIFIER_TYPE_LOG NotifierType = "log"
const NOTIFIER_TYPE_REDIS NotifierType = "redis"

type Config struct {
	RedisConfig     redis.Config
	HttpPort        int
	GrpcPort        int
	StorageType     StorageType
	NotifierType    NotifierType
	LogLevel        string
	DispatchConfig  DispatchConfig
	FlowCacheTTL    time.Duration
	AnalyticsConfig analytics.DataCollectorConfig
}

type DispatchConfig struct {
	// Parallelism bounds the workflows of one event run at the same time.
	Parallelism int
	MaxDepth    int
	MaxSteps    int
	// AsyncCapacity is the queue size for asynchronous events. Zero disables async dispatch.
	AsyncCapacity int
}

func (c Config) Validate() error {
	switch c.StorageType {
	case STORAGE_TYPE_REDIS, STORAGE_TYPE_INMEM:
	default:
		return fmt.Errorf("unknown storage implementation %q", c.StorageType)
	}
	switch c.NotifierType {
	case NOTIFIER_TYPE_LOG, NOTIFIER_TYPE_REDIS:
	default:
		return fmt.Errorf("unknown notifier implementation %q", c.NotifierType)
	}
	if c.NotifierType == NOTIFIER_TYPE_REDIS && len(c.RedisConfig.Addrs) == 0 {
		return fmt.Errorf("redis notifier requires redis-addr")
	}
	if c.StorageType == STORAGE_TYPE_REDIS && len(c.RedisConfig.Addrs) == 0 {
		return fmt.Errorf("redis storage requires redis-addr")
	}
	if c.DispatchConfig.AsyncCapacity < 0 {
		return fmt.Errorf("async-capacity must not be negative")
	}
	return nil
}
