package trace

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/foodtrace/backend/internal/alert"
	"github.com/foodtrace/backend/internal/batch"
	"github.com/foodtrace/backend/internal/checkpoint"
)

type staticIDGenerator struct {
	ids   []string
	index int
}

func (g *staticIDGenerator) NewID() (string, error) {
	if g.index >= len(g.ids) {
		return "", errors.New("exhausted ids")
	}
	id := g.ids[g.index]
	g.index++
	return id, nil
}

func newTestService(t *testing.T, ids []string) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:trace_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&batch.Batch{}, &checkpoint.Checkpoint{}, &alert.Alert{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	generator := &staticIDGenerator{ids: ids}
	clock := func() time.Time { return time.Unix(1700000600, 0).UTC() }

	batches, err := batch.NewStore(batch.StoreConfig{Database: db, Clock: clock})
	if err != nil {
		t.Fatalf("failed to build batch store: %v", err)
	}
	checkpoints, err := checkpoint.NewStore(checkpoint.StoreConfig{Database: db, Clock: clock, IDProvider: generator})
	if err != nil {
		t.Fatalf("failed to build checkpoint store: %v", err)
	}
	alerts, err := alert.NewStore(alert.StoreConfig{Database: db, Clock: clock, IDProvider: generator})
	if err != nil {
		t.Fatalf("failed to build alert store: %v", err)
	}

	service, err := NewService(ServiceConfig{
		Batches:     batches,
		Checkpoints: checkpoints,
		Alerts:      alerts,
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, db
}

func seedBatch(t *testing.T, service *Service, batchID, productType string) {
	t.Helper()
	if _, err := service.batches.Create(context.Background(), batch.Batch{
		BatchID:       batchID,
		ProductType:   productType,
		Quantity:      500,
		ProducerEmail: "farmer@example.com",
	}); err != nil {
		t.Fatalf("failed to seed batch: %v", err)
	}
}

func floatPtr(value float64) *float64 {
	return &value
}

func timePtr(value time.Time) *time.Time {
	return &value
}
