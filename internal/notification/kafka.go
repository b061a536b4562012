package notification

import (
	"context"
	"strconv"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// KafkaDispatcher publishes events keyed by reservation id, so all events of
// one reservation land on the same partition in order.
type KafkaDispatcher struct {
	publisher Publisher
	topic     string
}

func NewKafkaDispatcher(publisher Publisher, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{publisher: publisher, topic: topic}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, event Event) error {
	return d.publisher.Publish(ctx, d.topic, strconv.FormatInt(event.ReservationID, 10), event)
}

var _ Dispatcher = (*KafkaDispatcher)(nil)
