// Package http 注册表接口：模块装配与币种接入状态查询
package http

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/perptrading/internal/registry/application"
	"github.com/wyfcoding/perptrading/internal/registry/domain"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/registry")
	{
		g.PUT("/contracts", h.SetContracts)
		g.GET("/contracts", h.GetContracts)
		g.GET("/currencies/:currency", h.GetCurrency)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotOwner), errors.Is(err, domain.ErrNotOwnerOrFactory):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

type SetContractsReq struct {
	Caller     string `json:"caller" binding:"required"`
	Treasury   string `json:"treasury"`
	Trading    string `json:"trading"`
	Pool       string `json:"pool"`
	Oracle     string `json:"oracle"`
	DarkOracle string `json:"dark_oracle"`
	Factory    string `json:"factory"`
}

func (h *Handler) SetContracts(c *gin.Context) {
	var req SetContractsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.SetContracts(c.Request.Context(), common.HexToAddress(req.Caller), domain.Contracts{
		Treasury:   common.HexToAddress(req.Treasury),
		Trading:    common.HexToAddress(req.Trading),
		Pool:       common.HexToAddress(req.Pool),
		Oracle:     common.HexToAddress(req.Oracle),
		DarkOracle: common.HexToAddress(req.DarkOracle),
		Factory:    common.HexToAddress(req.Factory),
	})
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) GetContracts(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Contracts())
}

func (h *Handler) GetCurrency(c *gin.Context) {
	currency := common.HexToAddress(c.Param("currency"))
	entry, err := h.service.Entry(c.Request.Context(), currency)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	state, err := h.service.OnboardingState(c.Request.Context(), currency)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry, "state": state.String()})
}
