package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRelay shares publications between API processes over a Redis pub/sub channel.
type RedisRelay struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisRelay builds a relay on channel.
func NewRedisRelay(client *redis.Client, channel string, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{client: client, channel: channel, logger: logger}
}

// Publish sends env to every process subscribed to the channel, this one included.
func (r *RedisRelay) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Run subscribes to the channel and hands each envelope to deliver until ctx is done.
func (r *RedisRelay) Run(ctx context.Context, deliver func(Envelope)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("realtime relay subscribed", zap.String("channel", r.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			env, err := DecodeEnvelope([]byte(msg.Payload))
			if err != nil {
				r.logger.Warn("discarding malformed relay message", zap.Error(err))
				continue
			}
			deliver(env)
		}
	}
}

// DecodeEnvelope parses a relayed envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	switch env.Target {
	case TargetCustomer:
		if env.CustomerID == "" {
			return Envelope{}, fmt.Errorf("customer envelope without customer id")
		}
	case TargetAdmins:
	default:
		return Envelope{}, fmt.Errorf("unknown target %q", env.Target)
	}
	return env, nil
}
