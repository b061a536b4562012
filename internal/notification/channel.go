package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// ChannelDispatcher delivers events in process over a Watermill Go channel.
// It is used when no broker is configured; events published before Start
// subscribes are dropped.
type ChannelDispatcher struct {
	pubSub *gochannel.GoChannel
	topic  string
	logger *zap.Logger
}

func NewChannelDispatcher(topic string, logger *zap.Logger) *ChannelDispatcher {
	return &ChannelDispatcher{
		pubSub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewWatermillLogger(logger)),
		topic:  topic,
		logger: logger,
	}
}

func (d *ChannelDispatcher) Dispatch(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return d.pubSub.Publish(d.topic, msg)
}

// Start subscribes before returning and then feeds every event to handler
// until ctx is done. Handler errors are logged and the message is
// acknowledged anyway. The returned channel closes once consumption stops.
func (d *ChannelDispatcher) Start(ctx context.Context, handler Handler) (<-chan struct{}, error) {
	messages, err := d.pubSub.Subscribe(ctx, d.topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", d.topic, err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range messages {
			d.handle(ctx, msg, handler)
		}
	}()
	return done, nil
}

func (d *ChannelDispatcher) handle(ctx context.Context, msg *message.Message, handler Handler) {
	defer msg.Ack()
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		d.logger.Error("decode notification event", zap.String("message_uuid", msg.UUID), zap.Error(err))
		return
	}
	if err := handler(ctx, event); err != nil {
		d.logger.Error("handle notification event",
			zap.String("type", string(event.Type)),
			zap.Int64("reservation_id", event.ReservationID),
			zap.Error(err))
	}
}

func (d *ChannelDispatcher) Close() error {
	return d.pubSub.Close()
}

var _ Dispatcher = (*ChannelDispatcher)(nil)
