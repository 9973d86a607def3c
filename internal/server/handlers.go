package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodtrace/backend/internal/auth"
	"github.com/foodtrace/backend/internal/batch"
	"github.com/foodtrace/backend/internal/checkpoint"
	"github.com/foodtrace/backend/internal/trace"
)

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type tokenResponsePayload struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), request.Email, request.Password, request.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, _, err := h.tokens.IssueToken(c.Request.Context(), auth.Identity{Email: account.Email, Role: account.Role})
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, tokenResponsePayload{Token: token, Role: account.Role})
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	account, err := h.accounts.Authenticate(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, _, err := h.tokens.IssueToken(c.Request.Context(), auth.Identity{Email: account.Email, Role: account.Role})
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, tokenResponsePayload{Token: token, Role: account.Role})
}

type createBatchPayload struct {
	BatchID        string  `json:"batchId"`
	ProductType    string  `json:"productType"`
	Quantity       float64 `json:"quantity"`
	ProductionDate string  `json:"productionDate"`
	ExpiryDate     string  `json:"expiryDate"`
	Producer       string  `json:"producer"`
	FSSAILicense   string  `json:"fssaiLicense"`
}

func (h *httpHandler) handleCreateBatch(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var request createBatchPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.batches.Create(c.Request.Context(), batch.Batch{
		BatchID:        request.BatchID,
		ProductType:    request.ProductType,
		Quantity:       request.Quantity,
		ProductionDate: request.ProductionDate,
		ExpiryDate:     request.ExpiryDate,
		Producer:       request.Producer,
		FSSAILicense:   request.FSSAILicense,
		ProducerEmail:  identity.Email,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, created)
}

func (h *httpHandler) handleProducerBatches(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	batches, err := h.batches.ListByProducer(c.Request.Context(), identity.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, batches)
}

type recordCheckpointPayload struct {
	BatchID     string              `json:"batchId"`
	Location    checkpoint.Location `json:"location"`
	Timestamp   *time.Time          `json:"timestamp"`
	ScannerRole string              `json:"scannerRole"`
	Temperature *float64            `json:"temperature"`
}

func (h *httpHandler) handleRecordCheckpoint(c *gin.Context) {
	var request recordCheckpointPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.traceService.RecordCheckpoint(c.Request.Context(), trace.RecordRequest{
		BatchID:     request.BatchID,
		Location:    request.Location,
		Timestamp:   request.Timestamp,
		ScannerRole: request.ScannerRole,
		Temperature: request.Temperature,
	})
	if err != nil {
		if errors.Is(err, batch.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Batch not found: %s", request.BatchID)})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleRecentCheckpoints(c *gin.Context) {
	feed, err := h.traceService.GetRecentDistributorCheckpoints(c.Request.Context(), trace.DefaultRecentLimit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, feed)
}

func (h *httpHandler) handleBatchDetail(c *gin.Context) {
	detail, err := h.traceService.GetBatchWithCheckpoints(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		if errors.Is(err, batch.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *httpHandler) handleGovernmentBatches(c *gin.Context) {
	batches, err := h.traceService.GetAllBatchesWithCheckpointCounts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, batches)
}

func (h *httpHandler) handleGovernmentAlerts(c *gin.Context) {
	alerts, err := h.traceService.ListAlerts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alerts)
}

func (h *httpHandler) handleVerify(c *gin.Context) {
	result, err := h.traceService.VerifyBatch(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		if errors.Is(err, batch.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
