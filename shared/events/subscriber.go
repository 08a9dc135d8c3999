package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, event Event) error

var errMalformedMessage = errors.New("stream message has no event field")

// Subscriber consumes one stream as a member of a consumer group. New
// messages are read with ">"; messages a handler failed on stay pending and
// are claimed again by the reclaim pass once they have been idle for MinIdle.
// After MaxDeliveries attempts a message is acknowledged and dropped.
type Subscriber struct {
	client *redis.Client
	cfg    SubscriberConfig
	logger *zap.Logger
}

type SubscriberConfig struct {
	Group           string
	Consumer        string
	Stream          string
	Handler         Handler
	BatchSize       int64
	BlockDuration   time.Duration
	MinIdle         time.Duration // pending time before a failed message is retried
	ReclaimInterval time.Duration
	MaxDeliveries   int64
	Logger          *zap.Logger
}

func NewSubscriber(client *redis.Client, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.MinIdle == 0 {
		config.MinIdle = 30 * time.Second
	}
	if config.ReclaimInterval == 0 {
		config.ReclaimInterval = config.MinIdle
	}
	if config.MaxDeliveries == 0 {
		config.MaxDeliveries = 5
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Subscriber{
		client: client,
		cfg:    config,
		logger: config.Logger.With(zap.String("stream", config.Stream), zap.String("group", config.Group)),
	}
}

// Start blocks until ctx is cancelled and returns ctx.Err().
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	s.logger.Info("Subscriber started", zap.String("consumer", s.cfg.Consumer))

	var lastReclaim time.Time
	for ctx.Err() == nil {
		if time.Since(lastReclaim) >= s.cfg.ReclaimInterval {
			if err := s.reclaimPending(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Reclaiming pending messages failed", zap.Error(err))
			}
			lastReclaim = time.Now()
		}
		if err := s.readNew(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Reading stream failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
	s.logger.Info("Subscriber stopping")
	return ctx.Err()
}

func (s *Subscriber) readNew(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, ">"},
		Count:    s.cfg.BatchSize,
		Block:    s.cfg.BlockDuration,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			s.handle(ctx, message)
		}
	}
	return nil
}

// reclaimPending retries messages left unacknowledged by any consumer of
// the group, and drops those that already failed MaxDeliveries times.
func (s *Subscriber) reclaimPending(ctx context.Context) error {
	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.cfg.Stream,
		Group:  s.cfg.Group,
		Idle:   s.cfg.MinIdle,
		Start:  "-",
		End:    "+",
		Count:  s.cfg.BatchSize,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to list pending messages: %w", err)
	}

	var retry []string
	for _, p := range pending {
		if p.RetryCount >= s.cfg.MaxDeliveries {
			s.logger.Error("Dropping message after repeated failures",
				zap.String("messageId", p.ID), zap.Int64("deliveries", p.RetryCount))
			s.ack(ctx, p.ID)
			continue
		}
		retry = append(retry, p.ID)
	}
	if len(retry) == 0 {
		return nil
	}

	claimed, err := s.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   s.cfg.Stream,
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		MinIdle:  s.cfg.MinIdle,
		Messages: retry,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to claim pending messages: %w", err)
	}
	for _, message := range claimed {
		s.handle(ctx, message)
	}
	return nil
}

// handle acknowledges message only when the handler succeeded.
func (s *Subscriber) handle(ctx context.Context, message redis.XMessage) {
	if err := s.process(ctx, message); err != nil {
		s.logger.Error("Failed to process message", zap.String("messageId", message.ID), zap.Error(err))
		return
	}
	s.ack(ctx, message.ID)
}

func (s *Subscriber) ack(ctx context.Context, id string) {
	if err := s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, id).Err(); err != nil {
		s.logger.Warn("Failed to ACK message", zap.String("messageId", id), zap.Error(err))
	}
}

func (s *Subscriber) process(ctx context.Context, message redis.XMessage) error {
	raw, ok := message.Values["event"].(string)
	if !ok {
		return errMalformedMessage
	}
	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return s.cfg.Handler(ctx, event)
}
