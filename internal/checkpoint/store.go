package checkpoint

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("checkpoint: database handle is required")
	errMissingIDProvider = errors.New("checkpoint: id provider is required")
	// ErrMissingBatchID indicates an append without a batch reference.
	ErrMissingBatchID = errors.New("checkpoint: batch id is required")
)

// StoreConfig describes the dependencies required by the checkpoint store.
type StoreConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
}

// Store owns the append-only checkpoint log.
type Store struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
}

// NewStore constructs a checkpoint store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{db: cfg.Database, clock: clock, idProvider: cfg.IDProvider}, nil
}

// Append persists a scan event. A server-side identifier is always assigned,
// the timestamp defaults to now when absent, and the scanner role defaults to
// distributor. The caller is responsible for verifying the batch exists first.
func (s *Store) Append(ctx context.Context, record Checkpoint) (Checkpoint, error) {
	if strings.TrimSpace(record.BatchID) == "" {
		return Checkpoint{}, ErrMissingBatchID
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return Checkpoint{}, err
	}
	record.CheckpointID = id

	if record.Timestamp.IsZero() {
		record.Timestamp = s.clock().UTC()
	}
	if strings.TrimSpace(record.ScannerRole) == "" {
		record.ScannerRole = RoleDistributor
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return Checkpoint{}, err
	}
	return record, nil
}

// ListByBatch returns every checkpoint for the batch in scan order.
func (s *Store) ListByBatch(ctx context.Context, batchID string) ([]Checkpoint, error) {
	var records []Checkpoint
	if err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("timestamp ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListByRole returns the most recent checkpoints produced by the given
// scanner role, newest first, capped at limit.
func (s *Store) ListByRole(ctx context.Context, scannerRole string, limit int) ([]Checkpoint, error) {
	var records []Checkpoint
	if err := s.db.WithContext(ctx).
		Where("scanner_role = ?", scannerRole).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountByBatch recounts the stored checkpoints for a batch. This is the
// authoritative figure when the batch's denormalized counter has drifted.
func (s *Store) CountByBatch(ctx context.Context, batchID string) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&Checkpoint{}).
		Where("batch_id = ?", batchID).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
