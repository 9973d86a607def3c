package checkpoint

import (
	"fmt"
	"time"
)

// Scanner roles recognised on a checkpoint.
const (
	RoleProducer    = "producer"
	RoleDistributor = "distributor"
	RoleWarehouse   = "warehouse"
	RoleGovernment  = "government"
)

// Location is the GPS fix captured by a scanner.
type Location struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// Label renders the coordinate pair the way batch records and projections
// display it: four decimal places, comma joined.
func (l Location) Label() string {
	return fmt.Sprintf("%.4f, %.4f", l.Latitude, l.Longitude)
}

// Checkpoint is one immutable scan event in a batch's journey. Rows are only
// ever appended; nothing updates or deletes them.
type Checkpoint struct {
	CheckpointID string    `gorm:"column:checkpoint_id;primaryKey;size:190;not null" json:"checkpointId"`
	BatchID      string    `gorm:"column:batch_id;size:190;not null;index:idx_checkpoints_batch_time,priority:1" json:"batchId"`
	Latitude     float64   `gorm:"column:latitude;not null" json:"latitude"`
	Longitude    float64   `gorm:"column:longitude;not null" json:"longitude"`
	Accuracy     *float64  `gorm:"column:accuracy" json:"accuracy,omitempty"`
	Timestamp    time.Time `gorm:"column:timestamp;not null;index:idx_checkpoints_batch_time,priority:2;index:idx_checkpoints_role_time,priority:2" json:"timestamp"`
	ScannerRole  string    `gorm:"column:scanner_role;size:32;not null;default:'distributor';index:idx_checkpoints_role_time,priority:1" json:"scannerRole"`
	Temperature  *float64  `gorm:"column:temperature" json:"temperature,omitempty"`
}

// TableName provides the explicit table binding for GORM.
func (Checkpoint) TableName() string {
	return "checkpoints"
}

// Location reassembles the stored coordinate columns.
func (c Checkpoint) Location() Location {
	return Location{Latitude: c.Latitude, Longitude: c.Longitude, Accuracy: c.Accuracy}
}
