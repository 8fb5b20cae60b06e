// Package generator implements the scheduled image generation job: for every
// occasion on the current date, produce one image, upload it, and ledger it.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/allenac86/spooky-days-twitter/internal/calendar"
	"github.com/allenac86/spooky-days-twitter/internal/ledger"
	"github.com/allenac86/spooky-days-twitter/internal/storage"
)

// ImageService generates one image per prompt
type ImageService interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// ObjectStore is the slice of the bucket the generator needs
type ObjectStore interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// Ledger records upload status entries
type Ledger interface {
	Put(ctx context.Context, entry *ledger.Entry) error
}

// Result is the aggregate outcome reported to the invoking scheduler. There
// are no per-item results in it, only an HTTP-style status and message.
type Result struct {
	StatusCode int
	Body       string
}

// Config assembles a Generator
type Config struct {
	Store       ObjectStore
	Images      ImageService
	Ledger      Ledger
	CalendarKey string
	// ContinueOnError skips failed items and reports partial success instead
	// of aborting the whole batch
	ContinueOnError bool
	// Concurrency bounds the per-item fan-out; 1 means sequential
	Concurrency int
	ScratchDir  string
	Log         *slog.Logger
	Now         func() time.Time
}

// Generator is the daily image generation job
type Generator struct {
	store           ObjectStore
	images          ImageService
	ledger          Ledger
	calendarKey     string
	continueOnError bool
	concurrency     int
	scratchDir      string
	log             *slog.Logger
	now             func() time.Time
}

// New validates dependencies and builds a Generator
func New(cfg Config) (*Generator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if cfg.Images == nil {
		return nil, fmt.Errorf("image service is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if cfg.CalendarKey == "" {
		return nil, fmt.Errorf("calendar key is required")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Generator{
		store:           cfg.Store,
		images:          cfg.Images,
		ledger:          cfg.Ledger,
		calendarKey:     cfg.CalendarKey,
		continueOnError: cfg.ContinueOnError,
		concurrency:     cfg.Concurrency,
		scratchDir:      cfg.ScratchDir,
		log:             cfg.Log.With("job", "generator"),
		now:             cfg.Now,
	}, nil
}

type batchItem struct {
	index    int
	occasion string
	prompt   string
	image    []byte
}

// Run executes one generation run for the given wall-clock date. Every error
// is caught here and converted to a generic failure status; nothing retries.
func (g *Generator) Run(ctx context.Context, now time.Time) Result {
	body, err := g.run(ctx, now)
	if err != nil {
		g.log.Error("Generation run failed", "error", err)
		return Result{StatusCode: http.StatusInternalServerError, Body: "error generating images"}
	}
	return Result{StatusCode: http.StatusOK, Body: body}
}

func (g *Generator) run(ctx context.Context, now time.Time) (string, error) {
	month := calendar.MonthName(now.Month())
	day := strconv.Itoa(now.Day())

	raw, err := g.store.GetObject(ctx, g.calendarKey)
	if err != nil {
		return "", fmt.Errorf("failed to load calendar: %w", err)
	}
	cal, err := calendar.Parse(raw)
	if err != nil {
		return "", err
	}

	// A date absent from the calendar aborts the run loudly; it is not
	// treated as "zero occasions today".
	occasions, err := cal.OccasionsFor(month, day)
	if err != nil {
		return "", err
	}

	g.log.Info("Generation run started", "month", month, "day", day, "occasions", len(occasions))

	batch, genFailed, err := g.generateBatch(ctx, cal, occasions)
	if err != nil {
		return "", err
	}

	persistFailed, err := g.persistBatch(ctx, month, day, batch)
	if err != nil {
		return "", err
	}

	failed := genFailed + persistFailed
	if failed == 0 {
		return "images generated and uploaded", nil
	}
	succeeded := len(occasions) - failed
	if succeeded == 0 {
		return "", fmt.Errorf("all %d occasions failed", len(occasions))
	}
	return fmt.Sprintf("generated %d of %d occasions (%d failed)", succeeded, len(occasions), failed), nil
}

// generateBatch produces the in-memory image batch. In the default
// all-or-nothing mode the first failure aborts the run before anything is
// uploaded.
func (g *Generator) generateBatch(ctx context.Context, cal *calendar.Calendar, occasions []string) ([]batchItem, int, error) {
	batch := make([]batchItem, len(occasions))
	var failed int
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, occasion := range occasions {
		i, occasion := i, occasion
		eg.Go(func() error {
			prompt := cal.PromptFor(occasion)
			image, err := g.images.Generate(egCtx, prompt)
			if err != nil {
				if g.continueOnError {
					g.log.Warn("Skipping occasion after generation failure", "occasion", occasion, "error", err)
					mu.Lock()
					failed++
					mu.Unlock()
					return nil
				}
				return fmt.Errorf("failed to generate image for %q: %w", occasion, err)
			}
			batch[i] = batchItem{index: i, occasion: occasion, prompt: prompt, image: image}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}

	items := make([]batchItem, 0, len(batch))
	for _, item := range batch {
		if item.image != nil {
			items = append(items, item)
		}
	}
	g.log.Info("Images generated, saving to scratch filesystem", "count", len(items))
	return items, failed, nil
}

// persistBatch writes each generated image to scratch, uploads it, and
// ledgers it. Aborting on first failure leaves earlier items uploaded and
// ledgered; there is no compensation.
func (g *Generator) persistBatch(ctx context.Context, month, day string, batch []batchItem) (int, error) {
	var failed int
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for _, item := range batch {
		item := item
		eg.Go(func() error {
			if err := g.persistItem(egCtx, month, day, item); err != nil {
				if g.continueOnError {
					g.log.Warn("Skipping occasion after persist failure", "occasion", item.occasion, "error", err)
					mu.Lock()
					failed++
					mu.Unlock()
					return nil
				}
				return err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	return failed, nil
}

func (g *Generator) persistItem(ctx context.Context, month, day string, item batchItem) error {
	key := storage.BuildKey(month, day, item.index, item.occasion)
	jobID := storage.JobIDFromKey(key)

	scratchPath := filepath.Join(g.scratchDir, jobID)
	if err := os.WriteFile(scratchPath, item.image, 0o644); err != nil {
		return fmt.Errorf("failed to write scratch file for %q: %w", item.occasion, err)
	}
	defer os.Remove(scratchPath)
	g.log.Info("Image saved to scratch filesystem", "path", scratchPath)

	if err := g.store.PutObject(ctx, key, item.image, "image/jpeg"); err != nil {
		return fmt.Errorf("failed to upload %q: %w", key, err)
	}

	request, err := json.Marshal(map[string]interface{}{
		"occasion": item.occasion,
		"prompt":   item.prompt,
		"index":    item.index,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request record: %w", err)
	}

	entry := &ledger.Entry{
		JobID:     jobID,
		Timestamp: g.now().Unix(),
		Status:    ledger.StatusUploaded,
		Request:   datatypes.JSON(request),
	}
	if err := g.ledger.Put(ctx, entry); err != nil {
		return fmt.Errorf("failed to ledger %q: %w", jobID, err)
	}

	g.log.Info("Image uploaded and ledgered", "key", key, "job_id", jobID)
	return nil
}
