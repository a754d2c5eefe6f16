package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/surgefund/backend/internal/auth"
	"github.com/surgefund/backend/internal/models"
	"github.com/surgefund/backend/internal/service"
	"github.com/surgefund/backend/internal/treasury"
	"github.com/surgefund/backend/internal/validation"
)

// Handlers exposes the escrow core over HTTP.
type Handlers struct {
	pools *service.PoolService
}

// NewHandlers creates the API handlers
func NewHandlers(pools *service.PoolService) *Handlers {
	return &Handlers{pools: pools}
}

// poolResponse augments the stored pool with the derived settled condition.
type poolResponse struct {
	*models.Pool
	Settled        bool   `json:"settled"`
	EffectiveState string `json:"effective_state"`
}

func (h *Handlers) poolView(c *gin.Context, pool *models.Pool) (poolResponse, error) {
	settled, err := h.pools.IsSettled(c.Request.Context(), pool)
	if err != nil {
		return poolResponse{}, err
	}
	state := string(pool.State)
	if settled {
		state = "settled"
	}
	return poolResponse{Pool: pool, Settled: settled, EffectiveState: state}, nil
}

// InitializeCounter handles POST /counter
func (h *Handlers) InitializeCounter(c *gin.Context) {
	principal, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	counter, err := h.pools.InitializeCounter(c.Request.Context(), principal)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": counter})
}

// NextPoolID handles POST /counter/next; it consumes a sequence slot
// without creating a pool.
func (h *Handlers) NextPoolID(c *gin.Context) {
	principal, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := h.pools.NextPoolID(c.Request.Context(), principal)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"pool_id": id}})
}

// CreatePool handles POST /pools
func (h *Handlers) CreatePool(c *gin.Context) {
	principal, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req struct {
		Name      string `json:"name" binding:"required"`
		Threshold string `json:"threshold" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validation.ValidateName(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	threshold, err := validation.ParseAmount(req.Threshold)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pool, err := h.pools.CreatePool(c.Request.Context(), principal, req.Name, threshold)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, err := h.poolView(c, pool)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": view})
}

// GetPool handles GET /pools/:address
func (h *Handlers) GetPool(c *gin.Context) {
	pool, err := h.pools.GetPool(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, err := h.poolView(c, pool)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

// ListPools handles GET /pools
func (h *Handlers) ListPools(c *gin.Context) {
	limit, offset := pagination(c)
	pools, err := h.pools.ListPools(c.Request.Context(), limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	views := make([]poolResponse, 0, len(pools))
	for _, pool := range pools {
		view, err := h.poolView(c, pool)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

// Contribute handles POST /pools/:address/contributions
func (h *Handlers) Contribute(c *gin.Context) {
	principal, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := validation.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.pools.Contribute(c.Request.Context(), c.Param("address"), principal, amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": receipt})
}

// Deploy handles POST /pools/:address/deploy
func (h *Handlers) Deploy(c *gin.Context) {
	principal, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req struct {
		AssetAddress   string `json:"asset_address" binding:"required"`
		AssetOutAmount string `json:"asset_out_amount" binding:"required"`
		MaxValueIn     string `json:"max_value_in" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validation.ValidateAddress(req.AssetAddress); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	assetOut, err := validation.ParseAmount(req.AssetOutAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	maxValueIn, err := validation.ParseAmount(req.MaxValueIn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pool, err := h.pools.Deploy(c.Request.Context(), c.Param("address"), principal, req.AssetAddress, assetOut, maxValueIn)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, err := h.poolView(c, pool)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

// Claim handles POST /pools/:address/claims
func (h *Handlers) Claim(c *gin.Context) {
	principal, ok := auth.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req struct {
		ReceiptAddress string `json:"receipt_address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assetAmount, valueAmount, err := h.pools.Claim(c.Request.Context(), c.Param("address"), req.ReceiptAddress, principal)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"asset_amount": assetAmount,
		"value_amount": valueAmount,
	}})
}

// ListReceipts handles GET /pools/:address/receipts
func (h *Handlers) ListReceipts(c *gin.Context) {
	limit, offset := pagination(c)
	receipts, err := h.pools.ListReceipts(c.Request.Context(), c.Param("address"), limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": receipts})
}

// GetReceipt handles GET /receipts/:address
func (h *Handlers) GetReceipt(c *gin.Context) {
	receipt, err := h.pools.GetReceipt(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": receipt})
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// respondServiceError maps core errors onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidThreshold),
		errors.Is(err, service.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPoolNotFound),
		errors.Is(err, service.ErrReceiptNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyInitialized),
		errors.Is(err, service.ErrAlreadyClaimed),
		errors.Is(err, service.ErrUninitialized):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrThresholdExceeded),
		errors.Is(err, treasury.ErrInsufficientFunds):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrExchangeFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		logrus.WithError(err).Error("Unhandled service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
