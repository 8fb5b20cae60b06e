package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes object-created notifications to the storage stream.
// It satisfies the storage layer's notifier contract.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier with its own Redis connection
func NewNotifier(redisURL string) (*Notifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return NewNotifierWithClient(redis.NewClient(opts)), nil
}

// NewNotifierWithClient creates a Notifier over an existing client
func NewNotifierWithClient(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// ObjectCreated publishes an ObjectCreated:Put notification for a stored key
func (n *Notifier) ObjectCreated(ctx context.Context, bucket, key string) error {
	return n.Publish(ctx, ObjectCreatedEvent{
		EventName: EventObjectCreatedPut,
		Bucket:    bucket,
		Key:       key,
		EventTime: time.Now().UTC(),
	})
}

// Publish appends a notification to the storage stream
func (n *Notifier) Publish(ctx context.Context, event ObjectCreatedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := n.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamStorageObjects,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload":        string(payload),
			"published_at":   time.Now().Unix(),
			"schema_version": SchemaVersionV1,
		},
	})
	if result.Err() != nil {
		return fmt.Errorf("failed to publish to stream: %w", result.Err())
	}
	return nil
}

// Close closes the Redis client connection
func (n *Notifier) Close() error {
	return n.rdb.Close()
}
