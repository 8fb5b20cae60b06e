// Package publisher implements the storage-triggered posting job: download a
// newly stored image, post it with a derived caption, and patch the ledger.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/allenac86/spooky-days-twitter/internal/caption"
	"github.com/allenac86/spooky-days-twitter/internal/ledger"
	"github.com/allenac86/spooky-days-twitter/internal/storage"
	"github.com/allenac86/spooky-days-twitter/internal/streams"
)

// ObjectStore is the slice of the bucket the publisher needs
type ObjectStore interface {
	DownloadToPath(ctx context.Context, key, localPath string) error
}

// Poster is the social posting service
type Poster interface {
	UploadMedia(ctx context.Context, path string) (string, error)
	CreatePost(ctx context.Context, text string, mediaIDs []string) error
}

// Ledger is the slice of the record store the publisher needs
type Ledger interface {
	Latest(ctx context.Context, jobID string) (*ledger.Entry, error)
	Claim(ctx context.Context, jobID string, timestamp int64) error
	MarkPosted(ctx context.Context, jobID string, timestamp int64, caption string) error
}

// Result is the per-invocation outcome reported to the notification
// dispatcher
type Result struct {
	StatusCode int
	Body       string
}

// Publisher is the storage-triggered posting job
type Publisher struct {
	store      ObjectStore
	poster     Poster
	ledger     Ledger
	scratchDir string
	log        *slog.Logger
}

// New validates dependencies and builds a Publisher
func New(store ObjectStore, poster Poster, led Ledger, scratchDir string, log *slog.Logger) (*Publisher, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if poster == nil {
		return nil, fmt.Errorf("poster is required")
	}
	if led == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		store:      store,
		poster:     poster,
		ledger:     led,
		scratchDir: scratchDir,
		log:        log.With("job", "publisher"),
	}, nil
}

// Handle processes one storage notification. Steps are wrapped independently
// with distinct failure messages; nothing retries or rolls back prior steps.
func (p *Publisher) Handle(ctx context.Context, event streams.ObjectCreatedEvent) Result {
	// The stream carries a broader subscription; other event types are an
	// expected occurrence and are filtered, not crashed on.
	if event.EventName != streams.EventObjectCreatedPut {
		return Result{
			StatusCode: http.StatusInternalServerError,
			Body:       "event triggered by something other than an object upload",
		}
	}

	jobID := storage.JobIDFromKey(event.Key)
	text := caption.ForKey(event.Key)
	localPath := filepath.Join(p.scratchDir, jobID)
	log := p.log.With("job_id", jobID)
	log.Info("Publishing stored image", "key", event.Key, "caption", text)

	if err := p.store.DownloadToPath(ctx, event.Key, localPath); err != nil {
		log.Error("Failed to download image", "error", err)
		return Result{StatusCode: http.StatusInternalServerError, Body: "error downloading image from storage"}
	}
	defer os.Remove(localPath)

	// Claim the ledger entry before posting. The conditional transition is
	// what keeps a redelivered notification from posting twice.
	entry, err := p.ledger.Latest(ctx, jobID)
	if err != nil {
		log.Error("Failed to look up ledger entry", "error", err)
		return Result{StatusCode: http.StatusInternalServerError, Body: "error looking up ledger record"}
	}
	if err := p.ledger.Claim(ctx, entry.JobID, entry.Timestamp); err != nil {
		if errors.Is(err, ledger.ErrAlreadyClaimed) {
			log.Info("Duplicate delivery, skipping", "status", entry.Status)
			return Result{StatusCode: http.StatusOK, Body: "duplicate delivery; already posted"}
		}
		log.Error("Failed to claim ledger entry", "error", err)
		return Result{StatusCode: http.StatusInternalServerError, Body: "error claiming ledger record"}
	}

	if err := p.post(ctx, text, localPath); err != nil {
		// The entry stays at "posting": the claim happened but no post went
		// out. Surfaced here for monitoring; there is no rollback.
		log.Error("Failed to post after claiming ledger entry", "error", err, "status", ledger.StatusPosting)
		return Result{StatusCode: http.StatusInternalServerError, Body: "error posting tweet"}
	}
	log.Info("Tweet posted", "caption", text)

	if err := p.ledger.MarkPosted(ctx, entry.JobID, entry.Timestamp, text); err != nil {
		// Posted but not ledgered: the post is live while the ledger still
		// says "posting". The documented terminal inconsistent state of the
		// post/ledger hand-off.
		log.Error("Posted but failed to update ledger entry", "error", err)
		return Result{StatusCode: http.StatusInternalServerError, Body: "error updating ledger record"}
	}

	return Result{StatusCode: http.StatusOK, Body: "tweet posted and ledger record updated successfully!"}
}

func (p *Publisher) post(ctx context.Context, text, localPath string) error {
	mediaID, err := p.poster.UploadMedia(ctx, localPath)
	if err != nil {
		return fmt.Errorf("media upload failed: %w", err)
	}
	if err := p.poster.CreatePost(ctx, text, []string{mediaID}); err != nil {
		return fmt.Errorf("post creation failed: %w", err)
	}
	return nil
}
