package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodtrace/backend/internal/alert"
	"github.com/foodtrace/backend/internal/auth"
	"github.com/foodtrace/backend/internal/batch"
	"github.com/foodtrace/backend/internal/checkpoint"
	"github.com/foodtrace/backend/internal/database"
	"github.com/foodtrace/backend/internal/server"
	"github.com/foodtrace/backend/internal/trace"
	"github.com/foodtrace/backend/internal/users"
)

func buildHandler(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	databasePath := fmt.Sprintf("file:integration_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := database.OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	tokens := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("integration-secret"),
		Issuer:        "foodtrace-auth",
		Audience:      "foodtrace-api",
	})
	accounts, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build accounts: %v", err)
	}

	idProvider := checkpoint.NewUUIDProvider()
	batches, err := batch.NewStore(batch.StoreConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build batch store: %v", err)
	}
	checkpoints, err := checkpoint.NewStore(checkpoint.StoreConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to build checkpoint store: %v", err)
	}
	alerts, err := alert.NewStore(alert.StoreConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to build alert store: %v", err)
	}
	traceService, err := trace.NewService(trace.ServiceConfig{
		Batches:     batches,
		Checkpoints: checkpoints,
		Alerts:      alerts,
	})
	if err != nil {
		t.Fatalf("failed to build trace service: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager: tokens,
		Accounts:     accounts,
		Batches:      batches,
		TraceService: traceService,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return handler
}

func do(t *testing.T, handler http.Handler, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}
	request := httptest.NewRequest(method, target, bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func registerAndGetToken(t *testing.T, handler http.Handler, email, role string) string {
	t.Helper()
	recorder := do(t, handler, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": "hunter2",
		"role":     role,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("register failed: %d %s", recorder.Code, recorder.Body.String())
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode token: %v", err)
	}
	return payload.Token
}

func TestFullTraceabilityFlow(t *testing.T) {
	handler := buildHandler(t)

	producerToken := registerAndGetToken(t, handler, "farmer@example.com", "producer")
	distributorToken := registerAndGetToken(t, handler, "distro@example.com", "distributor")
	governmentToken := registerAndGetToken(t, handler, "auditor@example.gov", "government")

	created := do(t, handler, http.MethodPost, "/batch/create", producerToken, map[string]interface{}{
		"batchId":      "BATCH-1",
		"productType":  "Tomatoes",
		"quantity":     500,
		"producer":     "Green Valley Farm",
		"fssaiLicense": "10012031000001",
	})
	if created.Code != http.StatusOK {
		t.Fatalf("batch create failed: %d %s", created.Code, created.Body.String())
	}

	// Warm scan trips the temperature policy, cold scan does not.
	warm := do(t, handler, http.MethodPost, "/checkpoint", distributorToken, map[string]interface{}{
		"batchId":     "BATCH-1",
		"location":    map[string]float64{"latitude": 13.08, "longitude": 80.27},
		"scannerRole": "distributor",
		"temperature": 15,
	})
	if warm.Code != http.StatusOK {
		t.Fatalf("warm scan failed: %d %s", warm.Code, warm.Body.String())
	}
	var warmResult trace.CheckpointResult
	if err := json.Unmarshal(warm.Body.Bytes(), &warmResult); err != nil {
		t.Fatalf("failed to decode warm scan: %v", err)
	}
	if !warmResult.AnomalyDetected {
		t.Fatalf("expected anomaly on warm scan")
	}

	cold := do(t, handler, http.MethodPost, "/checkpoint", distributorToken, map[string]interface{}{
		"batchId":     "BATCH-1",
		"location":    map[string]float64{"latitude": 13.1, "longitude": 80.3},
		"scannerRole": "distributor",
		"temperature": 8,
	})
	if cold.Code != http.StatusOK {
		t.Fatalf("cold scan failed: %d %s", cold.Code, cold.Body.String())
	}
	var coldResult trace.CheckpointResult
	if err := json.Unmarshal(cold.Body.Bytes(), &coldResult); err != nil {
		t.Fatalf("failed to decode cold scan: %v", err)
	}
	if coldResult.AnomalyDetected {
		t.Fatalf("expected no anomaly on cold scan")
	}

	detail := do(t, handler, http.MethodGet, "/batch/batchId/BATCH-1", "", nil)
	if detail.Code != http.StatusOK {
		t.Fatalf("batch detail failed: %d", detail.Code)
	}
	var detailPayload struct {
		Status      string `json:"status"`
		Checkpoints []struct {
			Status  string `json:"status"`
			Scanner string `json:"scanner"`
		} `json:"checkpoints"`
	}
	if err := json.Unmarshal(detail.Body.Bytes(), &detailPayload); err != nil {
		t.Fatalf("failed to decode detail: %v", err)
	}
	if detailPayload.Status != batch.StatusInTransit {
		t.Fatalf("expected batch in transit, got %q", detailPayload.Status)
	}
	if len(detailPayload.Checkpoints) != 2 {
		t.Fatalf("expected 2 checkpoints, got %d", len(detailPayload.Checkpoints))
	}

	govBatches := do(t, handler, http.MethodGet, "/government/batches", governmentToken, nil)
	if govBatches.Code != http.StatusOK {
		t.Fatalf("government batches failed: %d", govBatches.Code)
	}
	var audited []batch.Batch
	if err := json.Unmarshal(govBatches.Body.Bytes(), &audited); err != nil {
		t.Fatalf("failed to decode audited batches: %v", err)
	}
	if len(audited) != 1 || audited[0].Checkpoints != 2 {
		t.Fatalf("unexpected audited batches: %+v", audited)
	}

	govAlerts := do(t, handler, http.MethodGet, "/government/alerts", governmentToken, nil)
	if govAlerts.Code != http.StatusOK {
		t.Fatalf("government alerts failed: %d", govAlerts.Code)
	}
	var notices []alert.Alert
	if err := json.Unmarshal(govAlerts.Body.Bytes(), &notices); err != nil {
		t.Fatalf("failed to decode alerts: %v", err)
	}
	if len(notices) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(notices))
	}
	if notices[0].BatchID != "BATCH-1" || notices[0].Type != alert.TypeTemperature {
		t.Fatalf("unexpected alert: %+v", notices[0])
	}

	verified := do(t, handler, http.MethodGet, "/verify/BATCH-1", "", nil)
	if verified.Code != http.StatusOK {
		t.Fatalf("verify failed: %d", verified.Code)
	}
	var verifyResult trace.VerifyResult
	if err := json.Unmarshal(verified.Body.Bytes(), &verifyResult); err != nil {
		t.Fatalf("failed to decode verify result: %v", err)
	}
	if !verifyResult.IsAuthentic {
		t.Fatalf("expected authentic batch")
	}
	if verifyResult.Producer != "Green Valley Farm" {
		t.Fatalf("unexpected producer: %q", verifyResult.Producer)
	}
	if len(verifyResult.Checkpoints) != 2 {
		t.Fatalf("expected 2 verified checkpoints, got %d", len(verifyResult.Checkpoints))
	}

	recent := do(t, handler, http.MethodGet, "/checkpoint/recent", distributorToken, nil)
	if recent.Code != http.StatusOK {
		t.Fatalf("recent checkpoints failed: %d", recent.Code)
	}
	var feed []trace.RecentCheckpoint
	if err := json.Unmarshal(recent.Body.Bytes(), &feed); err != nil {
		t.Fatalf("failed to decode feed: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("expected 2 feed entries, got %d", len(feed))
	}
	if feed[0].ProductType != "Tomatoes" {
		t.Fatalf("expected enriched product type, got %q", feed[0].ProductType)
	}
}
