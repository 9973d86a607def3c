package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates no batch exists for the requested identifier.
	ErrNotFound = errors.New("batch: not found")
	// ErrDuplicateBatchID indicates a create collided with an existing batch.
	ErrDuplicateBatchID = errors.New("batch: duplicate batch id")

	errMissingDatabase = errors.New("batch: database handle is required")
)

// StoreConfig describes the dependencies required by the batch store.
type StoreConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Store owns the batch lifecycle: creation by producers and the atomic
// counter-and-location update applied on checkpoint ingestion.
type Store struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewStore constructs a batch store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{db: cfg.Database, clock: clock}, nil
}

// Create persists a new batch. Status, location and the checkpoint counter are
// forced to their initial values regardless of caller input.
func (s *Store) Create(ctx context.Context, record Batch) (Batch, error) {
	if err := record.Validate(); err != nil {
		return Batch{}, err
	}

	record.Status = StatusAtFarm
	record.CurrentLocation = defaultLocation
	record.Checkpoints = 0
	record.HasIssues = false
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.clock().UTC()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Batch
		err := tx.Where("batch_id = ?", record.BatchID).Take(&existing).Error
		if err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateBatchID, record.BatchID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return Batch{}, err
	}
	return record, nil
}

// FindByBatchID returns the batch for the external identifier.
func (s *Store) FindByBatchID(ctx context.Context, batchID string) (Batch, error) {
	var record Batch
	err := s.db.WithContext(ctx).Where("batch_id = ?", batchID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Batch{}, fmt.Errorf("%w: %s", ErrNotFound, batchID)
	}
	if err != nil {
		return Batch{}, err
	}
	return record, nil
}

// IncrementCheckpointAndRelocate bumps the checkpoint counter and overwrites
// the current location and status in a single UPDATE. The increment happens in
// SQL, never via read-modify-write, so concurrent ingestions cannot lose counts.
func (s *Store) IncrementCheckpointAndRelocate(ctx context.Context, batchID, location, status string) (Batch, error) {
	result := s.db.WithContext(ctx).Model(&Batch{}).
		Where("batch_id = ?", batchID).
		Updates(map[string]interface{}{
			"checkpoints":      gorm.Expr("checkpoints + ?", 1),
			"current_location": location,
			"status":           status,
		})
	if result.Error != nil {
		return Batch{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Batch{}, fmt.Errorf("%w: %s", ErrNotFound, batchID)
	}
	return s.FindByBatchID(ctx, batchID)
}

// ListByProducer returns every batch owned by the producer email.
func (s *Store) ListByProducer(ctx context.Context, producerEmail string) ([]Batch, error) {
	var records []Batch
	if err := s.db.WithContext(ctx).
		Where("producer_email = ?", producerEmail).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListAll returns every batch, newest first.
func (s *Store) ListAll(ctx context.Context) ([]Batch, error) {
	var records []Batch
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
