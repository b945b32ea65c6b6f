// Package http 价格中继网关接口，仅供可信签名者调用
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/perptrading/internal/oracle/application"
	"github.com/wyfcoding/perptrading/internal/oracle/domain"
	regdomain "github.com/wyfcoding/perptrading/internal/registry/domain"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/oracle")
	{
		g.POST("/settle/orders", h.SettleOrders)
		g.POST("/settle/stop-orders", h.SettleStopOrders)
		g.POST("/settle/take-orders", h.SettleTakeOrders)
		g.POST("/settle/limits", h.SettleLimits)
		g.PUT("/params", h.SetParams)
		g.GET("/params", h.GetParams)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, regdomain.ErrNotRelay):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrLengthMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// BatchReq 五个平行数组，逐下标描述一条结算项
type BatchReq struct {
	Caller     string   `json:"caller" binding:"required"`
	Accounts   []string `json:"accounts" binding:"required"`
	ProductIDs []string `json:"product_ids" binding:"required"`
	Currencies []string `json:"currencies" binding:"required"`
	IsLong     []bool   `json:"is_long" binding:"required"`
	Prices     []string `json:"prices" binding:"required"`
}

func (req *BatchReq) toBatch() (common.Address, application.Batch, error) {
	batch := application.Batch{
		Accounts:   make([]common.Address, len(req.Accounts)),
		ProductIDs: make([]common.Hash, len(req.ProductIDs)),
		Currencies: make([]common.Address, len(req.Currencies)),
		IsLong:     req.IsLong,
		Prices:     make([]decimal.Decimal, len(req.Prices)),
	}
	for i, a := range req.Accounts {
		batch.Accounts[i] = common.HexToAddress(a)
	}
	for i, p := range req.ProductIDs {
		batch.ProductIDs[i] = common.HexToHash(p)
	}
	for i, c := range req.Currencies {
		batch.Currencies[i] = common.HexToAddress(c)
	}
	for i, p := range req.Prices {
		price, err := decimal.NewFromString(p)
		if err != nil {
			return common.Address{}, application.Batch{}, err
		}
		batch.Prices[i] = price
	}
	return common.HexToAddress(req.Caller), batch, nil
}

func (h *Handler) SettleOrders(c *gin.Context) {
	h.settle(c, h.service.SettleOrders)
}

func (h *Handler) SettleStopOrders(c *gin.Context) {
	h.settle(c, h.service.SettleStopOrders)
}

func (h *Handler) SettleTakeOrders(c *gin.Context) {
	h.settle(c, h.service.SettleTakeOrders)
}

func (h *Handler) SettleLimits(c *gin.Context) {
	h.settle(c, h.service.SettleLimits)
}

func (h *Handler) settle(c *gin.Context, settle func(ctx context.Context, caller common.Address, batch application.Batch) error) {
	var req BatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller, batch, err := req.toBatch()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := settle(c.Request.Context(), caller, batch); err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

type SetParamsReq struct {
	Caller             string `json:"caller" binding:"required"`
	RequestsPerFunding uint64 `json:"requests_per_funding"`
	CostPerRequest     string `json:"cost_per_request"`
}

func (h *Handler) SetParams(c *gin.Context) {
	var req SetParamsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cost, _ := decimal.NewFromString(req.CostPerRequest)
	err := h.service.SetParams(c.Request.Context(), common.HexToAddress(req.Caller), application.Params{
		RequestsPerFunding: req.RequestsPerFunding,
		CostPerRequest:     cost,
	})
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) GetParams(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Params())
}
