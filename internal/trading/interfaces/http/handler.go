// Package http 交易引擎接口
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/perptrading/internal/trading/application"
	"github.com/wyfcoding/perptrading/internal/trading/domain"
)

type Handler struct {
	service *application.TradingService
}

func NewHandler(service *application.TradingService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/trading")
	{
		g.POST("/products", h.AddProduct)
		g.PUT("/products/:id/rates", h.UpdateProductRates)
		g.GET("/products/:id", h.GetProduct)
		g.POST("/orders", h.SubmitOrder)
		g.POST("/orders/close", h.SubmitCloseOrder)
		g.POST("/orders/stop", h.SubmitStopOrder)
		g.POST("/orders/take", h.SubmitTakeOrder)
		g.GET("/positions", h.GetPosition)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotWired):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrNoPosition),
		errors.Is(err, domain.ErrNoPendingOrder):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedCurrency), errors.Is(err, domain.ErrProductExists),
		errors.Is(err, domain.ErrOrderExists), errors.Is(err, domain.ErrMarginRequired),
		errors.Is(err, domain.ErrSizeRequired), errors.Is(err, domain.ErrMaxLeverage),
		errors.Is(err, domain.ErrStopTooSmall), errors.Is(err, domain.ErrStopTooBig),
		errors.Is(err, domain.ErrTakeTooSmall), errors.Is(err, domain.ErrStopAlreadySet),
		errors.Is(err, domain.ErrTakeAlreadySet):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type AddProductReq struct {
	Caller               string `json:"caller" binding:"required"`
	ProductID            string `json:"product_id" binding:"required"`
	MaxLeverage          string `json:"max_leverage" binding:"required"`
	LiquidationThreshold string `json:"liquidation_threshold" binding:"required"`
	Fee                  string `json:"fee"`
	Interest             string `json:"interest"`
}

func (h *Handler) AddProduct(c *gin.Context) {
	var req AddProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	maxLeverage, err := decimal.NewFromString(req.MaxLeverage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_leverage"})
		return
	}
	threshold, err := decimal.NewFromString(req.LiquidationThreshold)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid liquidation_threshold"})
		return
	}
	fee, _ := decimal.NewFromString(req.Fee)
	interest, _ := decimal.NewFromString(req.Interest)

	err = h.service.AddProduct(c.Request.Context(), common.HexToAddress(req.Caller), domain.ProductID(req.ProductID), domain.Product{
		MaxLeverage:          maxLeverage,
		LiquidationThreshold: threshold,
		Fee:                  fee,
		Interest:             interest,
	})
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": domain.ProductID(req.ProductID).Hex()})
}

type UpdateRatesReq struct {
	Caller   string `json:"caller" binding:"required"`
	Fee      string `json:"fee" binding:"required"`
	Interest string `json:"interest" binding:"required"`
}

func (h *Handler) UpdateProductRates(c *gin.Context) {
	var req UpdateRatesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fee, err := decimal.NewFromString(req.Fee)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fee"})
		return
	}
	interest, err := decimal.NewFromString(req.Interest)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid interest"})
		return
	}

	id := domain.ProductID(c.Param("id"))
	if err := h.service.UpdateProductRates(c.Request.Context(), common.HexToAddress(req.Caller), id, fee, interest); err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.service.GetProduct(c.Request.Context(), domain.ProductID(c.Param("id")))
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, product)
}

type SubmitOrderReq struct {
	Account   string `json:"account" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
	Currency  string `json:"currency"`
	IsLong    bool   `json:"is_long"`
	Margin    string `json:"margin" binding:"required"`
	Size      string `json:"size" binding:"required"`
}

func (h *Handler) SubmitOrder(c *gin.Context) {
	var req SubmitOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	margin, err := decimal.NewFromString(req.Margin)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid margin"})
		return
	}
	size, err := decimal.NewFromString(req.Size)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size"})
		return
	}

	err = h.service.SubmitOrder(c.Request.Context(),
		common.HexToAddress(req.Account), domain.ProductID(req.ProductID),
		common.HexToAddress(req.Currency), req.IsLong, margin, size)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

type SubmitCloseOrderReq struct {
	Account   string `json:"account" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
	Currency  string `json:"currency"`
	IsLong    bool   `json:"is_long"`
	Size      string `json:"size" binding:"required"`
}

func (h *Handler) SubmitCloseOrder(c *gin.Context) {
	var req SubmitCloseOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	size, err := decimal.NewFromString(req.Size)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size"})
		return
	}

	err = h.service.SubmitCloseOrder(c.Request.Context(),
		common.HexToAddress(req.Account), domain.ProductID(req.ProductID),
		common.HexToAddress(req.Currency), req.IsLong, size)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

type SubmitTriggerReq struct {
	Account   string `json:"account" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
	Currency  string `json:"currency"`
	IsLong    bool   `json:"is_long"`
	Trigger   string `json:"trigger" binding:"required"`
}

func (h *Handler) SubmitStopOrder(c *gin.Context) {
	h.submitTrigger(c, h.service.SubmitStopOrder)
}

func (h *Handler) SubmitTakeOrder(c *gin.Context) {
	h.submitTrigger(c, h.service.SubmitTakeOrder)
}

func (h *Handler) submitTrigger(c *gin.Context, submit func(ctx context.Context, account common.Address, productID common.Hash, currency common.Address, isLong bool, trigger decimal.Decimal) error) {
	var req SubmitTriggerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trigger, err := decimal.NewFromString(req.Trigger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trigger"})
		return
	}

	err = submit(c.Request.Context(),
		common.HexToAddress(req.Account), domain.ProductID(req.ProductID),
		common.HexToAddress(req.Currency), req.IsLong, trigger)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) GetPosition(c *gin.Context) {
	account := common.HexToAddress(c.Query("account"))
	productID := domain.ProductID(c.Query("product_id"))
	currency := common.HexToAddress(c.Query("currency"))
	isLong := c.Query("is_long") == "true"

	position, err := h.service.GetPosition(c.Request.Context(), account, productID, currency, isLong)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, position)
}
