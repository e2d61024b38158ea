// Package interfaces 策略执行服务接口层
package interfaces

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
	"github.com/wyfcoding/tradingbot/internal/execution/application"
	"github.com/wyfcoding/tradingbot/internal/execution/domain"
)

// HTTPHandler 调度触发与机器人启停的 HTTP 处理器
type HTTPHandler struct {
	service *application.ExecutionService
	reports domain.ReportRepository
}

// NewHTTPHandler 创建处理器
func NewHTTPHandler(service *application.ExecutionService, reports domain.ReportRepository) *HTTPHandler {
	return &HTTPHandler{service: service, reports: reports}
}

// RegisterRoutes 注册路由。定时触发端点要求共享密钥鉴权。
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup, auth gin.HandlerFunc) {
	executions := r.Group("/executions")
	{
		executions.POST("/dispatch/:horizon", auth, h.Dispatch)
		executions.POST("/dispatch", h.DispatchAll)
	}

	bots := r.Group("/bots")
	{
		bots.POST("/:id/start", h.StartBot)
		bots.POST("/:id/stop", h.StopBot)
		bots.GET("/:id/reports", h.ListReports)
	}
}

// Dispatch 执行单个时间周期的调度，由外部定时任务触发
func (h *HTTPHandler) Dispatch(c *gin.Context) {
	horizon, err := botdomain.ParseTimeHorizon(c.Param("horizon"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.service.Dispatch(c.Request.Context(), horizon)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"timeHorizon": summary.TimeHorizon,
		"attempted":   summary.Attempted,
		"succeeded":   summary.Succeeded,
		"failed":      summary.Failed,
		"timestamp":   summary.Timestamp.Format(time.RFC3339),
	})
}

// DispatchAll 手动触发全部时间周期的调度
func (h *HTTPHandler) DispatchAll(c *gin.Context) {
	summary, err := h.service.DispatchAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "dispatched " + strconv.Itoa(summary.Attempted) + " bots, " +
			strconv.Itoa(summary.Succeeded) + " succeeded, " +
			strconv.Itoa(summary.Failed) + " failed",
	})
}

// StartBot 试运行后激活机器人
func (h *HTTPHandler) StartBot(c *gin.Context) {
	bot, err := h.service.StartBot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondStartError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBotResponse(bot))
}

// StopBot 停用机器人
func (h *HTTPHandler) StopBot(c *gin.Context) {
	bot, err := h.service.StopBot(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, botdomain.ErrBotNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, botdomain.ErrBotNotActive):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, toBotResponse(bot))
}

// ListReports 机器人的执行记录
func (h *HTTPHandler) ListReports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	reports, err := h.reports.FindByBotID(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, 0, len(reports))
	for _, r := range reports {
		items = append(items, gin.H{
			"botId":       r.BotID,
			"symbol":      r.Symbol,
			"timeHorizon": r.TimeHorizon,
			"action":      r.Action,
			"quantity":    r.Quantity.InexactFloat64(),
			"price":       r.Price.InexactFloat64(),
			"success":     r.Success,
			"error":       r.ErrorMessage,
			"dryRun":      r.DryRun,
			"durationMs":  r.DurationMs,
			"executedAt":  r.ExecutedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"reports": items, "total": len(items)})
}

func (h *HTTPHandler) respondStartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, botdomain.ErrBotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, botdomain.ErrBotAlreadyActive):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrDryRunFailed):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   domain.ErrDryRunFailed.Error(),
			"details": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func toBotResponse(bot *botdomain.Bot) gin.H {
	resp := gin.H{
		"botId":           bot.BotID,
		"symbol":          bot.Symbol,
		"fundAllocation":  bot.FundAllocation.InexactFloat64(),
		"status":          bot.Status.String(),
		"timeHorizon":     string(bot.TimeHorizon),
		"strategyId":      bot.StrategyID,
		"realizedReturns": bot.RealizedReturns.InexactFloat64(),
	}
	if bot.LastExecutedAt != nil {
		resp["lastExecutedAt"] = bot.LastExecutedAt.Format(time.RFC3339)
	}
	return resp
}
