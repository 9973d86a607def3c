package batch

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status values a batch moves through on its way to the consumer.
const (
	StatusAtFarm      = "At Farm"
	StatusInTransit   = "In Transit"
	StatusAtWarehouse = "At Warehouse"
	StatusDelivered   = "Delivered"
)

const (
	defaultLocation     = "Farm"
	maxIdentifierLength = 190
)

var (
	// ErrInvalidBatchID indicates that a batch identifier is empty or exceeds storage bounds.
	ErrInvalidBatchID = errors.New("batch: invalid batch id")
	// ErrInvalidQuantity indicates a non-positive batch quantity.
	ErrInvalidQuantity = errors.New("batch: quantity must be positive")
)

// ID represents a validated external batch identifier.
type ID string

// NewID validates raw input and returns a batch ID.
func NewID(rawInput string) (ID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidBatchID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidBatchID, maxIdentifierLength)
	}
	return ID(trimmed), nil
}

// String returns the underlying string identifier.
func (id ID) String() string {
	return string(id)
}

// Batch models a tracked quantity of a single product type moving through the
// supply chain. The external batchId is the primary key; there is no separate
// internal surrogate identifier.
type Batch struct {
	BatchID         string    `gorm:"column:batch_id;primaryKey;size:190;not null" json:"batchId"`
	ProductType     string    `gorm:"column:product_type;size:190;not null" json:"productType"`
	Quantity        float64   `gorm:"column:quantity;not null" json:"quantity"`
	ProductionDate  string    `gorm:"column:production_date;size:32" json:"productionDate"`
	ExpiryDate      string    `gorm:"column:expiry_date;size:32" json:"expiryDate"`
	Status          string    `gorm:"column:status;size:32;not null;default:'At Farm'" json:"status"`
	Checkpoints     int64     `gorm:"column:checkpoints;not null;default:0" json:"checkpoints"`
	CurrentLocation string    `gorm:"column:current_location;size:190;not null;default:'Farm'" json:"currentLocation"`
	ProducerEmail   string    `gorm:"column:producer_email;size:320;index:idx_batches_producer" json:"producerEmail"`
	Producer        string    `gorm:"column:producer;size:320" json:"producer"`
	FSSAILicense    string    `gorm:"column:fssai_license;size:64" json:"fssaiLicense"`
	HasIssues       bool      `gorm:"column:has_issues;not null;default:false" json:"hasIssues"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime;index:idx_batches_created" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Batch) TableName() string {
	return "batches"
}

// Validate checks the fields a producer must supply before the batch is stored.
func (b Batch) Validate() error {
	if _, err := NewID(b.BatchID); err != nil {
		return err
	}
	if b.Quantity <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidQuantity, b.Quantity)
	}
	if strings.TrimSpace(b.ProductType) == "" {
		return errors.New("batch: product type is required")
	}
	return nil
}
