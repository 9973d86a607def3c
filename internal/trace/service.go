package trace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/foodtrace/backend/internal/alert"
	"github.com/foodtrace/backend/internal/anomaly"
	"github.com/foodtrace/backend/internal/batch"
	"github.com/foodtrace/backend/internal/checkpoint"
)

var (
	// ErrMissingBatchID indicates a record request without a batch reference.
	ErrMissingBatchID = errors.New("trace: batch id is required")

	errMissingBatchStore      = errors.New("batch store is required")
	errMissingCheckpointStore = errors.New("checkpoint store is required")
	errMissingAlertStore      = errors.New("alert store is required")
	noOpLogger                = zap.NewNop()
)

// ServiceError carries a dotted operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew       = "trace.service.new"
	opRecordCheckpoint = "trace.record_checkpoint"
	opBatchDetail      = "trace.batch_detail"
	opRecent           = "trace.recent_checkpoints"
	opAuditBatches     = "trace.audit_batches"
	opVerify           = "trace.verify_batch"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the collaborators the traceability service needs.
type ServiceConfig struct {
	Batches     *batch.Store
	Checkpoints *checkpoint.Store
	Alerts      *alert.Store
	Logger      *zap.Logger
}

// Service orchestrates checkpoint ingestion and the read-side projections
// consumed by the mobile client and the government audit views.
type Service struct {
	batches     *batch.Store
	checkpoints *checkpoint.Store
	alerts      *alert.Store
	logger      *zap.Logger
}

// NewService constructs the traceability service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Batches == nil {
		return nil, newServiceError(opServiceNew, "missing_batch_store", errMissingBatchStore)
	}
	if cfg.Checkpoints == nil {
		return nil, newServiceError(opServiceNew, "missing_checkpoint_store", errMissingCheckpointStore)
	}
	if cfg.Alerts == nil {
		return nil, newServiceError(opServiceNew, "missing_alert_store", errMissingAlertStore)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		batches:     cfg.Batches,
		checkpoints: cfg.Checkpoints,
		alerts:      cfg.Alerts,
		logger:      logger,
	}, nil
}

// RecordRequest is the input supplied by a scanner when it logs a checkpoint.
type RecordRequest struct {
	BatchID     string
	Location    checkpoint.Location
	Timestamp   *time.Time
	ScannerRole string
	Temperature *float64
}

// CheckpointResult is the composite response returned after an ingestion.
type CheckpointResult struct {
	Success         bool    `json:"success"`
	CheckpointID    string  `json:"checkpointId"`
	BatchID         string  `json:"batchId"`
	ProductType     string  `json:"productType"`
	AnomalyDetected bool    `json:"anomalyDetected"`
	AnomalyType     *string `json:"anomalyType"`
	AnomalyDetails  *string `json:"anomalyDetails"`
}

// RecordCheckpoint runs the ingestion pipeline: verify the batch exists,
// append the checkpoint, atomically bump the batch's counter and location,
// evaluate the readings against policy and raise an alert on a breach.
//
// Nothing is persisted when the batch is missing; a checkpoint must never
// reference a batch that does not exist. The later writes are independent,
// deliberately untransacted steps: a failed batch update leaves the appended
// checkpoint valid and only the derived counter stale, which the audit view
// and the startup reconciliation both correct by recounting.
func (s *Service) RecordCheckpoint(ctx context.Context, request RecordRequest) (CheckpointResult, error) {
	if strings.TrimSpace(request.BatchID) == "" {
		s.logError(opRecordCheckpoint, "missing_batch_id", ErrMissingBatchID)
		return CheckpointResult{}, newServiceError(opRecordCheckpoint, "missing_batch_id", ErrMissingBatchID)
	}

	found, err := s.batches.FindByBatchID(ctx, request.BatchID)
	if err != nil {
		s.logError(opRecordCheckpoint, "batch_lookup_failed", err, zap.String("batch_id", request.BatchID))
		return CheckpointResult{}, newServiceError(opRecordCheckpoint, "batch_lookup_failed", err)
	}

	record := checkpoint.Checkpoint{
		BatchID:     request.BatchID,
		Latitude:    request.Location.Latitude,
		Longitude:   request.Location.Longitude,
		Accuracy:    request.Location.Accuracy,
		ScannerRole: request.ScannerRole,
		Temperature: request.Temperature,
	}
	if request.Timestamp != nil {
		record.Timestamp = request.Timestamp.UTC()
	}

	stored, err := s.checkpoints.Append(ctx, record)
	if err != nil {
		s.logError(opRecordCheckpoint, "checkpoint_append_failed", err, zap.String("batch_id", request.BatchID))
		return CheckpointResult{}, newServiceError(opRecordCheckpoint, "checkpoint_append_failed", err)
	}

	if _, err := s.batches.IncrementCheckpointAndRelocate(ctx, request.BatchID, request.Location.Label(), batch.StatusInTransit); err != nil {
		s.logError(opRecordCheckpoint, "batch_update_failed", err, zap.String("batch_id", request.BatchID))
		return CheckpointResult{}, newServiceError(opRecordCheckpoint, "batch_update_failed", err)
	}

	verdict := anomaly.Evaluate(stored, found)
	if verdict.Detected {
		if _, err := s.alerts.Create(ctx, alert.Alert{
			Message:  verdict.Details,
			BatchID:  request.BatchID,
			Type:     alert.TypeTemperature,
			Severity: verdict.Severity,
			Time:     stored.Timestamp,
		}); err != nil {
			s.logError(opRecordCheckpoint, "alert_create_failed", err, zap.String("batch_id", request.BatchID))
			return CheckpointResult{}, newServiceError(opRecordCheckpoint, "alert_create_failed", err)
		}
		s.logger.Info("anomaly detected",
			zap.String("batch_id", request.BatchID),
			zap.String("type", verdict.Type),
			zap.String("severity", verdict.Severity))
	}

	result := CheckpointResult{
		Success:         true,
		CheckpointID:    stored.CheckpointID,
		BatchID:         request.BatchID,
		ProductType:     found.ProductType,
		AnomalyDetected: verdict.Detected,
	}
	if verdict.Detected {
		anomalyType := verdict.Type
		anomalyDetails := verdict.Details
		result.AnomalyType = &anomalyType
		result.AnomalyDetails = &anomalyDetails
	}
	return result, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("trace service error", attrs...)
}
