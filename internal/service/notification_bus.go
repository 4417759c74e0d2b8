package service

import (
	"context"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NotificationBus relays encoded notification events between API nodes.
type NotificationBus interface {
	Name() string
	Publish(ctx context.Context, payload []byte) error
	// Consume delivers inbound payloads to handle until ctx is cancelled.
	Consume(ctx context.Context, handle func([]byte)) error
}

type redisNotificationBus struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedisNotificationBus fans events out over a Redis pub/sub channel named "<base>:notifications".
func NewRedisNotificationBus(client *redis.Client, base string, logger zerolog.Logger) NotificationBus {
	return &redisNotificationBus{
		client:  client,
		channel: base + ":notifications",
		logger:  logger.With().Str("bus", "redis").Logger(),
	}
}

func (b *redisNotificationBus) Name() string { return "redis" }

func (b *redisNotificationBus) Publish(ctx context.Context, payload []byte) error {
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *redisNotificationBus) Consume(ctx context.Context, handle func([]byte)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	go func() {
		defer func() { _ = pubsub.Close() }()
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					b.logger.Error().Err(err).Msg("notification subscription closed")
				}
				return
			}
			handle([]byte(msg.Payload))
		}
	}()
	return nil
}

type natsNotificationBus struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSNotificationBus fans events out over the subject "<base>.notifications".
// Every node subscribes without a queue group so each one sees every event.
func NewNATSNotificationBus(conn *nats.Conn, base string, logger zerolog.Logger) NotificationBus {
	return &natsNotificationBus{
		conn:    conn,
		subject: strings.ReplaceAll(base, ":", ".") + ".notifications",
		logger:  logger.With().Str("bus", "nats").Logger(),
	}
}

func (b *natsNotificationBus) Name() string { return "nats" }

func (b *natsNotificationBus) Publish(_ context.Context, payload []byte) error {
	return b.conn.Publish(b.subject, payload)
}

func (b *natsNotificationBus) Consume(ctx context.Context, handle func([]byte)) error {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		handle(msg.Data)
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain notification subscription")
		}
	}()
	return nil
}
