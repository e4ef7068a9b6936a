package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Frame is one encoded event on its way to every member except Exclude.
// Subject names the user a restriction event applies to.
type Frame struct {
	Type    string          `json:"type"`
	Subject string          `json:"subject,omitempty"`
	Exclude string          `json:"exclude,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Broadcaster fans frames out to the members of every process serving the room.
type Broadcaster interface {
	Publish(ctx context.Context, f Frame) error
}

// DeliverFunc hands a frame to the members of this process.
type DeliverFunc func(f Frame)

// LocalBroadcaster delivers within this process only.
type LocalBroadcaster struct {
	deliver DeliverFunc
}

func NewLocalBroadcaster(deliver DeliverFunc) *LocalBroadcaster {
	return &LocalBroadcaster{deliver: deliver}
}

func (b *LocalBroadcaster) Publish(_ context.Context, f Frame) error {
	b.deliver(f)
	return nil
}

// RedisBroadcaster publishes frames on a Redis channel. Every process, including the
// publisher, delivers them to its own members from Run.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
	deliver DeliverFunc
	logger  *zap.Logger
}

func NewRedisBroadcaster(client *redis.Client, channel string, deliver DeliverFunc, logger *zap.Logger) *RedisBroadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroadcaster{client: client, channel: channel, deliver: deliver, logger: logger}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, f Frame) error {
	payload, err := encodeFrame(f)
	if err != nil {
		return fmt.Errorf("failed to encode chat frame: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish chat frame: %w", err)
	}
	return nil
}

// Run subscribes to the channel and delivers frames until ctx is done.
func (b *RedisBroadcaster) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	b.logger.Info("chat broadcaster subscribed", zap.String("channel", b.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle(msg.Payload)
		}
	}
}

// handle decodes one published frame and delivers it to this process's members.
func (b *RedisBroadcaster) handle(payload string) {
	var f Frame
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		b.logger.Warn("dropping malformed chat frame", zap.Error(err))
		return
	}
	b.deliver(f)
}

func encodeFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}
