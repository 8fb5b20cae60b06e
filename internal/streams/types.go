package streams

import "time"

// Stream name constants
const (
	StreamStorageObjects = "storage:objects"
	// StreamStorageObjectsDead holds messages the consumer could not decode
	StreamStorageObjectsDead = "storage:objects:dead"
)

// Consumer group constants
const (
	GroupPublisherWorkers = "publisher-workers"
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// EventObjectCreatedPut is the only event name the publisher acts on. The
// stream carries a broader subscription; anything else is filtered, not an
// error.
const EventObjectCreatedPut = "ObjectCreated:Put"

// ObjectCreatedEvent is a storage notification for a newly written object
type ObjectCreatedEvent struct {
	EventName string    `json:"event_name"`
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	EventTime time.Time `json:"event_time"`
}
