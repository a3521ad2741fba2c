package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/fanvault/reconciler/internal/api/middleware"
	"github.com/fanvault/reconciler/internal/api/rest/dto"
	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/reconcile"
)

// maxAssetIDsPerRequest bounds the fan-out a single request can trigger
const maxAssetIDsPerRequest = 50

// Handler defines the interface for REST API handlers
type Handler interface {
	// ReconcileBalances resolves a user's candidate addresses and reconciles
	// their asset balances across them
	// POST /api/v1/balances/reconcile
	ReconcileBalances(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	engine         reconcile.Engine
	requestTimeout time.Duration
}

// NewHandler creates a new REST API handler over the reconciliation engine
func NewHandler(engine reconcile.Engine, requestTimeout time.Duration) Handler {
	if requestTimeout <= 0 {
		requestTimeout = 25 * time.Second
	}
	return &handler{
		engine:         engine,
		requestTimeout: requestTimeout,
	}
}

// ReconcileBalances resolves candidate addresses and reconciles balances
func (h *handler) ReconcileBalances(c *gin.Context) {
	var req dto.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	// The authenticated subject stands in for an omitted user id. A request
	// with no identity at all is still well-formed; it reconciles against an
	// empty candidate set and yields zero balances.
	if req.UserID == "" {
		req.UserID = c.GetString(middleware.AUTH_SUBJECT_KEY)
	}

	if req.Address != "" && !common.IsHexAddress(req.Address) {
		respondValidationError(c, "address is not a valid hex address")
		return
	}
	if len(req.AssetIDs) == 0 {
		respondValidationError(c, "asset_ids must not be empty")
		return
	}
	if len(req.AssetIDs) > maxAssetIDsPerRequest {
		respondValidationError(c, "too many asset_ids")
		return
	}

	assetIDs := make([]domain.AssetID, 0, len(req.AssetIDs))
	for _, raw := range req.AssetIDs {
		assetID := domain.AssetID(raw)
		if !assetID.Valid() {
			respondValidationError(c, "asset_ids must be decimal numbers")
			return
		}
		assetIDs = append(assetIDs, assetID)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	result, err := h.engine.Reconcile(ctx, reconcile.Request{
		UserID:       req.UserID,
		SeedAddress:  req.Address,
		AssetIDs:     assetIDs,
		WithMetadata: req.WithMetadata,
		MaxIndex:     req.MaxIndex,
	})
	if err != nil {
		// A deadline with nothing discovered is still a server-side answer,
		// not a client fault
		if errors.Is(err, context.DeadlineExceeded) {
			respondInternalError(c, err, "Reconciliation timed out")
			return
		}
		respondInternalError(c, err, "Failed to reconcile balances")
		return
	}

	c.JSON(http.StatusOK, dto.NewReconcileResponse(result))
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
