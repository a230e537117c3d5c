package redis

import (
	"context"

	"github.com/intakehq/autoflow/notify"
	"github.com/intakehq/autoflow/persistence"
	"github.com/intakehq/autoflow/util"
)

var _ notify.Notifier = new(redisNotifier)

// redisNotifier publishes notifications for the delivery service to consume.
type redisNotifier struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[notify.Notification]
}

func NewRedisNotifier(conf Config) *redisNotifier {
	return &redisNotifier{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[notify.Notification](),
	}
}

func (r *redisNotifier) Channel() string {
	return r.getNamespaceKey(persistence.NOTIFICATION_CHANNEL)
}

func (r *redisNotifier) Notify(ctx context.Context, n notify.Notification) error {
	data, err := r.encoderDecoder.Encode(n)
	if err != nil {
		return err
	}
	if err := r.redisClient.Publish(ctx, r.Channel(), data).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
