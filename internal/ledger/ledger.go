// Package ledger is the per-artifact status record store. Writes append, the
// read path always takes the newest entry by timestamp, and the publisher
// patches the entry it read. Entries are never deleted; retention is handled
// by external lifecycle policy.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry status constants
const (
	StatusPending  = "pending"
	StatusUploaded = "uploaded"
	StatusPosting  = "posting"
	StatusPosted   = "posted"
)

// ErrNotFound is returned when no entry exists for a job ID
var ErrNotFound = errors.New("ledger entry not found")

// ErrAlreadyClaimed is returned when an entry has already left the uploaded
// state, which on the publish path means a duplicate delivery.
var ErrAlreadyClaimed = errors.New("ledger entry already claimed")

// Entry is one status record for a stored artifact. JobID is the storage key
// minus the images/ prefix; Timestamp is seconds since epoch, set at creation.
// Multiple entries may share a JobID with different timestamps.
type Entry struct {
	JobID     string         `gorm:"column:job_id;primaryKey"`
	Timestamp int64          `gorm:"primaryKey;autoIncrement:false"`
	Status    string         `gorm:"not null;index"`
	Caption   string         `gorm:"not null;default:''"`
	Request   datatypes.JSON `gorm:"type:jsonb"`
}

// TableName sets the ledger table name
func (Entry) TableName() string {
	return "ledger_entries"
}

// Store persists ledger entries
type Store struct {
	db *gorm.DB
}

// NewStore creates a ledger store backed by the given database
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Put appends an entry. It never needs to know a prior state.
func (s *Store) Put(ctx context.Context, entry *Entry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create ledger entry for %s: %w", entry.JobID, err)
	}
	return nil
}

// Latest returns the most recent entry for a job ID by timestamp
func (s *Store) Latest(ctx context.Context, jobID string) (*Entry, error) {
	var entry Entry
	err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("timestamp DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to query ledger for %s: %w", jobID, err)
	}
	return &entry, nil
}

// Claim transitions an entry from uploaded to posting. The condition on the
// current status is what makes notification redelivery safe: only one claim
// per entry can ever succeed. Returns ErrAlreadyClaimed when the entry exists
// but has already been claimed or posted, ErrNotFound when it does not exist.
func (s *Store) Claim(ctx context.Context, jobID string, timestamp int64) error {
	tx := s.db.WithContext(ctx).
		Model(&Entry{}).
		Where("job_id = ? AND timestamp = ? AND status = ?", jobID, timestamp, StatusUploaded).
		Update("status", StatusPosting)
	if tx.Error != nil {
		return fmt.Errorf("failed to claim ledger entry for %s: %w", jobID, tx.Error)
	}
	if tx.RowsAffected > 0 {
		return nil
	}

	var entry Entry
	err := s.db.WithContext(ctx).
		Where("job_id = ? AND timestamp = ?", jobID, timestamp).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if err != nil {
		return fmt.Errorf("failed to query ledger for %s: %w", jobID, err)
	}
	return fmt.Errorf("%w: %s is %s", ErrAlreadyClaimed, jobID, entry.Status)
}

// MarkPosted transitions a claimed entry to posted and attaches the caption
func (s *Store) MarkPosted(ctx context.Context, jobID string, timestamp int64, caption string) error {
	tx := s.db.WithContext(ctx).
		Model(&Entry{}).
		Where("job_id = ? AND timestamp = ? AND status = ?", jobID, timestamp, StatusPosting).
		Updates(map[string]interface{}{
			"status":  StatusPosted,
			"caption": caption,
		})
	if tx.Error != nil {
		return fmt.Errorf("failed to mark ledger entry posted for %s: %w", jobID, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: no posting entry for %s at %d", ErrNotFound, jobID, timestamp)
	}
	return nil
}
