// Package interfaces 投资组合服务接口层
package interfaces

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
	"github.com/wyfcoding/tradingbot/internal/portfolio/application"
	"github.com/wyfcoding/tradingbot/internal/portfolio/domain"
)

// HTTPHandler 组合汇总 HTTP 处理器
type HTTPHandler struct {
	service *application.PortfolioService
}

// NewHTTPHandler 创建处理器
func NewHTTPHandler(service *application.PortfolioService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/portfolio")
	{
		g.GET("/overview", h.Overview)
		g.GET("/bots/:id", h.BotFigures)
		g.GET("/history", h.History)
		g.POST("/snapshot", h.TakeSnapshot)
	}
}

// OverviewResponse 汇总视图响应
type OverviewResponse struct {
	Cash                float64 `json:"cash"`
	PortfolioValue      float64 `json:"portfolioValue"`
	TotalReturns        float64 `json:"totalReturns"`
	TotalReturnsPercent float64 `json:"totalReturnsPercent"`
	BotCount            int     `json:"botCount"`
	LastUpdated         string  `json:"lastUpdated"`
}

func toOverviewResponse(o *domain.Overview) OverviewResponse {
	return OverviewResponse{
		Cash:                o.Cash.InexactFloat64(),
		PortfolioValue:      o.PortfolioValue.InexactFloat64(),
		TotalReturns:        o.TotalReturns.InexactFloat64(),
		TotalReturnsPercent: o.TotalReturnsPct,
		BotCount:            o.BotCount,
		LastUpdated:         o.LastUpdated.Format(time.RFC3339),
	}
}

// Overview 全量机器人的资金汇总
func (h *HTTPHandler) Overview(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toOverviewResponse(overview))
}

// BotFigures 单个机器人的资金明细
func (h *HTTPHandler) BotFigures(c *gin.Context) {
	figures, err := h.service.BotFigures(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, botdomain.ErrBotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"botId":         figures.BotID,
		"symbol":        figures.Symbol,
		"availableCash": figures.AvailableCash.InexactFloat64(),
		"stockValue":    figures.StockValue.InexactFloat64(),
		"totalValue":    figures.TotalValue.InexactFloat64(),
		"totalReturns":  figures.TotalReturns.InexactFloat64(),
		"stale":         figures.Stale,
	})
}

// History 最近的组合快照
func (h *HTTPHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))

	snapshots, err := h.service.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, 0, len(snapshots))
	for _, s := range snapshots {
		items = append(items, gin.H{
			"snapshotDate":        s.SnapshotDate.Format("2006-01-02"),
			"cash":                s.Cash.InexactFloat64(),
			"portfolioValue":      s.PortfolioValue.InexactFloat64(),
			"totalReturns":        s.TotalReturns.InexactFloat64(),
			"totalReturnsPercent": s.TotalReturnsPct,
			"botCount":            s.BotCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": items, "total": len(items)})
}

// TakeSnapshot 手动触发当日快照
func (h *HTTPHandler) TakeSnapshot(c *gin.Context) {
	snapshot, err := h.service.TakeSnapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"snapshotDate": snapshot.SnapshotDate.Format("2006-01-02"),
	})
}
