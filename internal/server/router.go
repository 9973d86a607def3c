package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodtrace/backend/internal/auth"
	"github.com/foodtrace/backend/internal/batch"
	"github.com/foodtrace/backend/internal/checkpoint"
	"github.com/foodtrace/backend/internal/trace"
	"github.com/foodtrace/backend/internal/users"
)

const identityContextKey = "foodtrace_identity"

const defaultRequestTimeout = 5 * time.Second

var (
	errMissingTokenManager = errors.New("token manager dependency required")
	errMissingAccounts     = errors.New("accounts service dependency required")
	errMissingBatchStore   = errors.New("batch store dependency required")
	errMissingTraceService = errors.New("trace service dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// TokenManager issues bearer tokens at login and validates them on protected
// routes.
type TokenManager interface {
	IssueToken(ctx context.Context, identity auth.Identity) (string, int64, error)
	ValidateToken(token string) (auth.Identity, error)
}

// Dependencies wires the HTTP surface to its collaborators.
type Dependencies struct {
	TokenManager   TokenManager
	Accounts       *users.Service
	Batches        *batch.Store
	TraceService   *trace.Service
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// NewHTTPHandler builds the gin router for the traceability API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Accounts == nil {
		return nil, errMissingAccounts
	}
	if deps.Batches == nil {
		return nil, errMissingBatchStore
	}
	if deps.TraceService == nil {
		return nil, errMissingTraceService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	router.Use(boundRequest(timeout))

	handler := &httpHandler{
		tokens:       deps.TokenManager,
		accounts:     deps.Accounts,
		batches:      deps.Batches,
		traceService: deps.TraceService,
		logger:       logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)
	router.GET("/batch/batchId/:batchId", handler.handleBatchDetail)
	router.GET("/verify/:batchId", handler.handleVerify)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/batch/create", handler.handleCreateBatch)
	protected.GET("/batch/producer/batches", handler.handleProducerBatches)
	protected.POST("/checkpoint", handler.handleRecordCheckpoint)
	protected.GET("/checkpoint/recent", handler.handleRecentCheckpoints)
	protected.GET("/government/batches", handler.handleGovernmentBatches)
	protected.GET("/government/alerts", handler.handleGovernmentAlerts)

	return router, nil
}

// boundRequest caps every request at the configured timeout so a wedged store
// surfaces an error instead of hanging the scanner.
func boundRequest(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

type httpHandler struct {
	tokens       TokenManager
	accounts     *users.Service
	batches      *batch.Store
	traceService *trace.Service
	logger       *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	identity, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(identityContextKey, identity)
	c.Next()
}

func identityFromContext(c *gin.Context) (auth.Identity, bool) {
	value, exists := c.Get(identityContextKey)
	if !exists {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok
}

// respondError maps service failures onto the HTTP taxonomy: validation 400,
// not found 404, duplicates 409, credential failures 401, timeouts 504 and
// everything else 500 with the message surfaced.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trace.ErrMissingBatchID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "batchId is required"})
	case errors.Is(err, batch.ErrInvalidBatchID),
		errors.Is(err, batch.ErrInvalidQuantity),
		errors.Is(err, checkpoint.ErrMissingBatchID),
		errors.Is(err, users.ErrMissingCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, batch.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, batch.ErrDuplicateBatchID), errors.Is(err, users.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, users.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
