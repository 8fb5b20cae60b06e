package worker

import (
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskGenerateImages = "images:generate"
)

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client for task enqueueing.
// Must be called before any EnqueueX functions.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}
	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// EnqueueGenerateImages enqueues a manual image generation run. The scheduler
// enqueues the same task daily; uniqueness keeps a manual trigger from
// stacking on top of an in-flight scheduled run.
func EnqueueGenerateImages() error {
	task := asynq.NewTask(
		TaskGenerateImages,
		nil, // no payload - the handler reads the wall clock
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(time.Hour),
	)
	_, err := client.Enqueue(task)
	return err
}
