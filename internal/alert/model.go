package alert

import "time"

// Alert categories raised against a batch.
const (
	TypeTemperature = "temperature"
	TypeHoarding    = "hoarding"
	TypeScalping    = "scalping"
	TypeFraud       = "fraud"
)

// Severity bands.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert is a system-generated notice that a checkpoint's readings breached a
// safety policy. Created by the ingestion pipeline, mutated only by the
// resolution workflow.
type Alert struct {
	AlertID  string    `gorm:"column:alert_id;primaryKey;size:190;not null" json:"alertId"`
	Message  string    `gorm:"column:message;type:text;not null" json:"message"`
	BatchID  string    `gorm:"column:batch_id;size:190;index:idx_alerts_batch" json:"batchId"`
	Type     string    `gorm:"column:type;size:32;not null;default:'temperature'" json:"type"`
	Severity string    `gorm:"column:severity;size:16;not null;default:'medium'" json:"severity"`
	Resolved bool      `gorm:"column:resolved;not null;default:false" json:"resolved"`
	Time     time.Time `gorm:"column:time;not null;index:idx_alerts_time" json:"time"`
}

// TableName provides the explicit table binding for GORM.
func (Alert) TableName() string {
	return "alerts"
}
