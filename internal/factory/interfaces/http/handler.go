// Package http 币种接入机构接口
package http

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/perptrading/internal/factory/application"
	"github.com/wyfcoding/perptrading/internal/factory/domain"
	pooldomain "github.com/wyfcoding/perptrading/internal/pool/domain"
	regdomain "github.com/wyfcoding/perptrading/internal/registry/domain"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/factory")
	{
		g.POST("/tokens", h.AddToken)
		g.PUT("/tokens/:currency/router", h.SetRouterForPoolAndRewards)
		g.PUT("/tokens/:currency/pool-params", h.SetParamsPool)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, regdomain.ErrNotOwner), errors.Is(err, regdomain.ErrNotOwnerOrFactory):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrZeroCurrency),
		errors.Is(err, regdomain.ErrPoolAlreadyExists),
		errors.Is(err, regdomain.ErrParifiRewardsAlreadyExist),
		errors.Is(err, regdomain.ErrPoolRewardsAlreadyExist),
		errors.Is(err, regdomain.ErrCurrencyAlreadyAdded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotWired):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type AddTokenReq struct {
	Caller   string `json:"caller" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	Decimals uint8  `json:"decimals" binding:"required"`
	Param    string `json:"param"`
}

func (h *Handler) AddToken(c *gin.Context) {
	var req AddTokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	param, _ := decimal.NewFromString(req.Param)
	err := h.service.AddToken(c.Request.Context(),
		common.HexToAddress(req.Caller), common.HexToAddress(req.Currency), req.Decimals, param)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

type SetRouterReq struct {
	Caller string `json:"caller" binding:"required"`
	Router string `json:"router" binding:"required"`
}

func (h *Handler) SetRouterForPoolAndRewards(c *gin.Context) {
	var req SetRouterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.SetRouterForPoolAndRewards(c.Request.Context(),
		common.HexToAddress(req.Caller),
		common.HexToAddress(c.Param("currency")),
		common.HexToAddress(req.Router))
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

type SetParamsPoolReq struct {
	Caller                string `json:"caller" binding:"required"`
	MinDepositTime        int64  `json:"min_deposit_time"`
	UtilizationMultiplier string `json:"utilization_multiplier" binding:"required"`
	MaxParifi             string `json:"max_parifi"`
	WithdrawFee           string `json:"withdraw_fee"`
}

func (h *Handler) SetParamsPool(c *gin.Context) {
	var req SetParamsPoolReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	utilization, err := decimal.NewFromString(req.UtilizationMultiplier)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid utilization_multiplier"})
		return
	}
	maxParifi, _ := decimal.NewFromString(req.MaxParifi)
	withdrawFee, _ := decimal.NewFromString(req.WithdrawFee)

	err = h.service.SetParamsPool(c.Request.Context(),
		common.HexToAddress(req.Caller),
		common.HexToAddress(c.Param("currency")),
		pooldomain.Params{
			MinDepositTime:        req.MinDepositTime,
			UtilizationMultiplier: utilization,
			MaxParifi:             maxParifi,
			WithdrawFee:           withdrawFee,
		})
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}
