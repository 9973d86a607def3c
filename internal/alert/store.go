package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// IDProvider issues identifiers for created alerts.
type IDProvider interface {
	NewID() (string, error)
}

var (
	errMissingDatabase   = errors.New("alert: database handle is required")
	errMissingIDProvider = errors.New("alert: id provider is required")
	// ErrNotFound indicates no alert exists for the requested identifier.
	ErrNotFound = errors.New("alert: not found")
	// ErrMissingMessage indicates an alert without a message body.
	ErrMissingMessage = errors.New("alert: message is required")
)

// StoreConfig describes the dependencies required by the alert store.
type StoreConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
}

// Store owns anomaly notices.
type Store struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
}

// NewStore constructs an alert store.
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

// Create persists an anomaly notice, defaulting type, severity and time.
func (s *Store) Create(ctx context.Context, record Alert) (Alert, error) {
	if strings.TrimSpace(record.Message) == "" {
		return Alert{}, ErrMissingMessage
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return Alert{}, err
	}
	record.AlertID = id

	if record.Type == "" {
		record.Type = TypeTemperature
	}
	if record.Severity == "" {
		record.Severity = SeverityMedium
	}
	if record.Time.IsZero() {
		record.Time = s.clock().UTC()
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return Alert{}, err
	}
	return record, nil
}

// ListAll returns every alert, newest first.
func (s *Store) ListAll(ctx context.Context) ([]Alert, error) {
	var records []Alert
	if err := s.db.WithContext(ctx).
		Order("time DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// MarkResolved flags an alert as handled. The full resolution workflow lives
// outside this service; only the flag flip is supported here.
func (s *Store) MarkResolved(ctx context.Context, alertID string) error {
	result := s.db.WithContext(ctx).Model(&Alert{}).
		Where("alert_id = ?", alertID).
		Update("resolved", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, alertID)
	}
	return nil
}
