// Package storage wraps the image bucket. Successful uploads emit an
// object-created notification, which is the only trigger path between the
// generator and the publisher.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ErrNotFound is returned when the requested object does not exist
var ErrNotFound = errors.New("object not found")

// Notifier receives an object-created notification after a successful upload
type Notifier interface {
	ObjectCreated(ctx context.Context, bucket, key string) error
}

// ObjectInfo describes a stored object for listing callers
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// Options configures the bucket connection
type Options struct {
	Bucket string
	// EmulatorHost switches the client to an unauthenticated local emulator
	EmulatorHost string
	// PublicBaseURL overrides the public object URL base
	PublicBaseURL string
}

// Store is the image bucket client
type Store struct {
	client        *gcs.Client
	bucket        string
	publicBaseURL string
	notifier      Notifier
	log           *slog.Logger
}

// New connects to the image bucket. notifier may be nil for read-only callers.
func New(ctx context.Context, opts Options, notifier Notifier, log *slog.Logger) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	var clientOpts []option.ClientOption
	if opts.EmulatorHost != "" {
		endpoint := strings.TrimRight(strings.TrimSpace(opts.EmulatorHost), "/")
		os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	} else {
		clientOpts = append(clientOpts, option.WithScopes(gcs.ScopeReadWrite))
	}

	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	publicBaseURL := strings.TrimRight(opts.PublicBaseURL, "/")
	if publicBaseURL == "" {
		publicBaseURL = "https://storage.googleapis.com"
	}

	return &Store{
		client:        client,
		bucket:        opts.Bucket,
		publicBaseURL: publicBaseURL,
		notifier:      notifier,
		log:           log.With("component", "storage"),
	}, nil
}

// GetObject reads an object fully into memory
func (s *Store) GetObject(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// PutObject writes an object and emits an object-created notification once
// the write is durable. A notification failure fails the put: a stored image
// nobody hears about would never be published.
func (s *Store) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object %s: %w", key, err)
	}

	s.log.Info("Object uploaded", "bucket", s.bucket, "key", key, "bytes", len(data))

	if s.notifier != nil {
		if err := s.notifier.ObjectCreated(ctx, s.bucket, key); err != nil {
			return fmt.Errorf("failed to notify object created for %s: %w", key, err)
		}
	}
	return nil
}

// DownloadToPath copies an object to a local scratch path
func (s *Store) DownloadToPath(ctx context.Context, key, localPath string) error {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("failed to open object %s: %w", key, err)
	}
	defer r.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to download object %s: %w", key, err)
	}
	return nil
}

// ListObjects lists objects under a prefix, skipping directory placeholders
func (s *Store) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		objects = append(objects, ObjectInfo{
			Key:          attrs.Name,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
		})
	}
	return objects, nil
}

// ObjectURL returns the public URL for an object
func (s *Store) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key)
}

// Close releases the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}
