package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Default pending-sweep tuning. A message must sit unacked this long before
// another consumer may steal it; the sweep itself runs between read cycles.
const (
	defaultClaimMinIdle    = time.Minute
	defaultClaimInterval   = 30 * time.Second
	deadLetterStreamMaxLen = 1000
)

// Consumer consumes object-created notifications from the storage stream.
// Delivery is at-least-once: unacked messages stay in the pending entries
// list and are picked back up by the XAUTOCLAIM sweep, including entries
// left behind by a consumer that crashed or was replaced.
type Consumer struct {
	rdb          *redis.Client
	groupName    string
	consumerName string

	claimMinIdle  time.Duration
	claimInterval time.Duration
	lastClaim     time.Time
}

// NewConsumer creates a Consumer and its consumer group if needed
func NewConsumer(redisURL, consumerName string) (*Consumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	// to avoid spurious i/o timeout errors on idle streams.
	opts.ReadTimeout = 10 * time.Second

	client := redis.NewClient(opts)

	err = client.XGroupCreateMkStream(context.Background(), StreamStorageObjects, GroupPublisherWorkers, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		rdb:           client,
		groupName:     GroupPublisherWorkers,
		consumerName:  consumerName,
		claimMinIdle:  defaultClaimMinIdle,
		claimInterval: defaultClaimInterval,
	}, nil
}

// Consume runs a blocking loop delivering notifications to handler. A handler
// error leaves the message unacked; the periodic pending sweep redelivers it
// once it has sat idle past the claim threshold. The first sweep runs before
// the first read, so a restarted process drains its predecessor's backlog.
func (c *Consumer) Consume(ctx context.Context, handler func(ObjectCreatedEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if time.Since(c.lastClaim) >= c.claimInterval {
			c.claimPending(ctx, handler)
			c.lastClaim = time.Now()
		}

		results, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupName,
			Consumer: c.consumerName,
			Streams:  []string{StreamStorageObjects, ">"},
			Count:    10,
			Block:    5000,
		}).Result()

		if err == redis.Nil {
			continue
		}
		if err != nil {
			// Blocking reads time out when no messages arrive within the
			// Block duration; that is normal, not an error.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("Failed to read from stream", "error", err)
			continue
		}

		for _, stream := range results {
			for _, message := range stream.Messages {
				c.process(ctx, message, handler)
			}
		}
	}
}

// claimPending sweeps the group's pending entries list and re-runs messages
// idle past claimMinIdle through the handler. This is the redelivery path for
// anything a consumer read but never acked.
func (c *Consumer) claimPending(ctx context.Context, handler func(ObjectCreatedEvent) error) {
	start := "0-0"
	for {
		messages, next, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   StreamStorageObjects,
			Group:    c.groupName,
			Consumer: c.consumerName,
			MinIdle:  c.claimMinIdle,
			Start:    start,
			Count:    10,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("Failed to claim pending messages", "error", err)
			}
			return
		}

		for _, message := range messages {
			slog.Info("Redelivering pending message", "message_id", message.ID)
			c.process(ctx, message, handler)
		}

		if len(messages) == 0 || next == "0-0" {
			return
		}
		start = next
	}
}

// process decodes and handles one message. Undecodable messages are parked on
// the dead-letter stream and acked so they cannot clog the pending list.
func (c *Consumer) process(ctx context.Context, message redis.XMessage, handler func(ObjectCreatedEvent) error) {
	payloadStr, ok := message.Values["payload"].(string)
	if !ok {
		slog.Error("Invalid message payload", "message_id", message.ID)
		c.deadLetter(ctx, message)
		return
	}

	var event ObjectCreatedEvent
	if err := json.Unmarshal([]byte(payloadStr), &event); err != nil {
		slog.Error("Failed to unmarshal event", "error", err, "message_id", message.ID)
		c.deadLetter(ctx, message)
		return
	}

	if err := handler(event); err != nil {
		slog.Error("Handler failed", "error", err, "key", event.Key)
		// Message stays in PEL; the pending sweep redelivers it
		return
	}

	if err := c.rdb.XAck(ctx, StreamStorageObjects, c.groupName, message.ID).Err(); err != nil {
		slog.Error("Failed to ACK message", "error", err, "message_id", message.ID)
	}
}

// deadLetter moves a poison message aside. The ack only happens after the
// copy lands, so a failed move leaves the original pending.
func (c *Consumer) deadLetter(ctx context.Context, message redis.XMessage) {
	err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamStorageObjectsDead,
		MaxLen: deadLetterStreamMaxLen,
		Approx: true,
		ID:     "*",
		Values: message.Values,
	}).Err()
	if err != nil {
		slog.Error("Failed to dead-letter message", "error", err, "message_id", message.ID)
		return
	}
	if err := c.rdb.XAck(ctx, StreamStorageObjects, c.groupName, message.ID).Err(); err != nil {
		slog.Error("Failed to ACK dead-lettered message", "error", err, "message_id", message.ID)
	}
}

// Close closes the Redis client connection
func (c *Consumer) Close() error {
	return c.rdb.Close()
}

// StartConsumer starts a stream consumer in a background goroutine and
// returns a stop function. The consumer name is derived from the hostname so
// a restarted process reclaims its own pending entries immediately instead
// of waiting out the idle threshold under a fresh identity.
func StartConsumer(redisURL string, handler func(ObjectCreatedEvent) error) (stop func(), err error) {
	name, err := os.Hostname()
	if err != nil || name == "" {
		name = uuid.NewString()[:8]
	}
	consumer, err := NewConsumer(redisURL, "publisher-"+name)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := consumer.Consume(ctx, handler); err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.Error("Stream consumer stopped with error", "error", err)
			}
		}
	}()

	slog.Info("Stream consumer started", "stream", StreamStorageObjects, "group", GroupPublisherWorkers, "consumer", consumer.consumerName)

	return func() {
		cancel()
		consumer.Close()
	}, nil
}
