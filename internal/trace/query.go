package trace

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/foodtrace/backend/internal/alert"
	"github.com/foodtrace/backend/internal/batch"
	"github.com/foodtrace/backend/internal/checkpoint"
)

// localizedTimeLayout matches the rendering the mobile client expects for
// journey timelines.
const localizedTimeLayout = "1/2/2006, 3:04:05 PM"

// DefaultRecentLimit caps the distributor scan-history feed.
const DefaultRecentLimit = 20

// CheckpointView is one formatted journey entry on the batch detail screen.
type CheckpointView struct {
	Location  string `json:"location"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	Scanner   string `json:"scanner"`
}

// BatchDetail is a batch joined with its formatted journey.
type BatchDetail struct {
	batch.Batch
	Checkpoints []CheckpointView `json:"checkpoints"`
}

// GetBatchWithCheckpoints assembles the batch detail projection.
func (s *Service) GetBatchWithCheckpoints(ctx context.Context, batchID string) (BatchDetail, error) {
	found, err := s.batches.FindByBatchID(ctx, batchID)
	if err != nil {
		s.logError(opBatchDetail, "batch_lookup_failed", err, zap.String("batch_id", batchID))
		return BatchDetail{}, newServiceError(opBatchDetail, "batch_lookup_failed", err)
	}

	records, err := s.checkpoints.ListByBatch(ctx, batchID)
	if err != nil {
		s.logError(opBatchDetail, "checkpoint_list_failed", err, zap.String("batch_id", batchID))
		return BatchDetail{}, newServiceError(opBatchDetail, "checkpoint_list_failed", err)
	}

	views := make([]CheckpointView, 0, len(records))
	for _, record := range records {
		views = append(views, CheckpointView{
			Location:  record.Location().Label(),
			Latitude:  strconv.FormatFloat(record.Latitude, 'f', -1, 64),
			Longitude: strconv.FormatFloat(record.Longitude, 'f', -1, 64),
			Timestamp: record.Timestamp.Local().Format(localizedTimeLayout),
			Status:    statusForScanner(record.ScannerRole),
			Scanner:   record.ScannerRole,
		})
	}

	return BatchDetail{Batch: found, Checkpoints: views}, nil
}

// RecentCheckpoint is one entry in the distributor scan-history feed.
type RecentCheckpoint struct {
	BatchID     string    `json:"batchId"`
	ProductType string    `json:"productType"`
	Location    string    `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
	Anomaly     bool      `json:"anomaly"`
}

// GetRecentDistributorCheckpoints returns the latest distributor scans
// enriched with each batch's product type. The anomaly flag is always false:
// verdicts are not retained on the checkpoint record.
func (s *Service) GetRecentDistributorCheckpoints(ctx context.Context, limit int) ([]RecentCheckpoint, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	records, err := s.checkpoints.ListByRole(ctx, checkpoint.RoleDistributor, limit)
	if err != nil {
		s.logError(opRecent, "checkpoint_list_failed", err)
		return nil, newServiceError(opRecent, "checkpoint_list_failed", err)
	}

	feed := make([]RecentCheckpoint, 0, len(records))
	for _, record := range records {
		productType := "Unknown"
		if found, err := s.batches.FindByBatchID(ctx, record.BatchID); err == nil {
			productType = found.ProductType
		}
		feed = append(feed, RecentCheckpoint{
			BatchID:     record.BatchID,
			ProductType: productType,
			Location:    record.Location().Label(),
			Timestamp:   record.Timestamp,
			Anomaly:     false,
		})
	}
	return feed, nil
}

// GetAllBatchesWithCheckpointCounts lists every batch, newest first, with the
// checkpoint total recounted from the checkpoint log. The recount, not the
// batch's denormalized counter, is authoritative for audit views.
func (s *Service) GetAllBatchesWithCheckpointCounts(ctx context.Context) ([]batch.Batch, error) {
	records, err := s.batches.ListAll(ctx)
	if err != nil {
		s.logError(opAuditBatches, "batch_list_failed", err)
		return nil, newServiceError(opAuditBatches, "batch_list_failed", err)
	}

	for i := range records {
		total, err := s.checkpoints.CountByBatch(ctx, records[i].BatchID)
		if err != nil {
			s.logError(opAuditBatches, "checkpoint_count_failed", err, zap.String("batch_id", records[i].BatchID))
			return nil, newServiceError(opAuditBatches, "checkpoint_count_failed", err)
		}
		records[i].Checkpoints = total
	}
	return records, nil
}

// ListAlerts returns every anomaly notice, newest first.
func (s *Service) ListAlerts(ctx context.Context) ([]alert.Alert, error) {
	notices, err := s.alerts.ListAll(ctx)
	if err != nil {
		s.logError(opAuditBatches, "alert_list_failed", err)
		return nil, newServiceError(opAuditBatches, "alert_list_failed", err)
	}
	return notices, nil
}

// VerifiedCheckpoint is one journey entry on the consumer verification screen.
type VerifiedCheckpoint struct {
	Location  string `json:"location"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// VerifyResult is the consumer-facing authenticity projection. isAuthentic is
// true for any found batch; no cryptographic attestation exists.
type VerifyResult struct {
	BatchID        string               `json:"batchId"`
	IsAuthentic    bool                 `json:"isAuthentic"`
	ProductType    string               `json:"productType"`
	Producer       string               `json:"producer"`
	Quantity       string               `json:"quantity"`
	ProductionDate string               `json:"productionDate"`
	ExpiryDate     string               `json:"expiryDate"`
	FSSAILicense   string               `json:"fssaiLicense"`
	Checkpoints    []VerifiedCheckpoint `json:"checkpoints"`
}

// VerifyBatch assembles the authenticity projection a consumer sees after
// scanning a batch's QR code.
func (s *Service) VerifyBatch(ctx context.Context, batchID string) (VerifyResult, error) {
	found, err := s.batches.FindByBatchID(ctx, batchID)
	if err != nil {
		s.logError(opVerify, "batch_lookup_failed", err, zap.String("batch_id", batchID))
		return VerifyResult{}, newServiceError(opVerify, "batch_lookup_failed", err)
	}

	records, err := s.checkpoints.ListByBatch(ctx, batchID)
	if err != nil {
		s.logError(opVerify, "checkpoint_list_failed", err, zap.String("batch_id", batchID))
		return VerifyResult{}, newServiceError(opVerify, "checkpoint_list_failed", err)
	}

	views := make([]VerifiedCheckpoint, 0, len(records))
	for _, record := range records {
		views = append(views, VerifiedCheckpoint{
			Location:  fmt.Sprintf("Lat: %.4f, Lng: %.4f", record.Latitude, record.Longitude),
			Timestamp: record.Timestamp.Local().Format(localizedTimeLayout),
			Status:    statusForScanner(record.ScannerRole),
		})
	}

	producer := found.Producer
	if producer == "" {
		producer = found.ProducerEmail
	}
	productionDate := found.ProductionDate
	if productionDate == "" {
		productionDate = found.CreatedAt.Format("2006-01-02")
	}
	expiryDate := found.ExpiryDate
	if expiryDate == "" {
		expiryDate = "N/A"
	}
	license := found.FSSAILicense
	if license == "" {
		license = "N/A"
	}

	return VerifyResult{
		BatchID:        found.BatchID,
		IsAuthentic:    true,
		ProductType:    found.ProductType,
		Producer:       producer,
		Quantity:       fmt.Sprintf("%v kg", found.Quantity),
		ProductionDate: productionDate,
		ExpiryDate:     expiryDate,
		FSSAILicense:   license,
		Checkpoints:    views,
	}, nil
}

// statusForScanner maps a scanner role to the journey status the client
// renders: a distributor scan means the batch is moving, anything else is a
// plain checkpoint.
func statusForScanner(scannerRole string) string {
	if scannerRole == checkpoint.RoleDistributor {
		return batch.StatusInTransit
	}
	return "Checkpoint"
}
