package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/allenac86/spooky-days-twitter/internal/config"
	"github.com/hibiken/asynq"
)

// StartScheduler creates and starts an Asynq Scheduler for the daily
// generation run. Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Parse timezone from config
	location, err := time.LoadLocation(cfg.GenerateTimezone)
	if err != nil {
		slog.Warn("Invalid timezone, using UTC", "timezone", cfg.GenerateTimezone, "error", err)
		location = time.UTC
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: location,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	// Register the daily generation task
	task := asynq.NewTask(
		TaskGenerateImages,
		nil, // Empty payload - handler reads today's date
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute), // Image generation is slow
		asynq.Retention(24*time.Hour),
		asynq.Unique(24*time.Hour), // Prevent duplicate if scheduler runs twice
	)

	entryID, err := scheduler.Register(cfg.GenerateSchedule, task)
	if err != nil {
		return nil, fmt.Errorf("failed to register generation schedule: %w", err)
	}

	// Start scheduler (non-blocking)
	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info(
		"Scheduler started",
		"schedule", cfg.GenerateSchedule,
		"timezone", cfg.GenerateTimezone,
		"entry_id", entryID,
	)

	// Return shutdown function
	return func() { scheduler.Shutdown() }, nil
}
