// Package interfaces 回测服务接口层
package interfaces

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/tradingbot/internal/backtest/application"
	"github.com/wyfcoding/tradingbot/internal/backtest/domain"
)

// HTTPHandler 回测提交、查询与实时事件流的 HTTP 处理器
type HTTPHandler struct {
	service *application.BacktestService
}

// NewHTTPHandler 创建处理器
func NewHTTPHandler(service *application.BacktestService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/backtests")
	{
		g.POST("", h.Start)
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.POST("/:id/cancel", h.Cancel)
		g.GET("/:id/events", h.StreamEvents)
	}
}

// Start 提交回测
func (h *HTTPHandler) Start(c *gin.Context) {
	var cmd application.StartCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.service.Start(c.Request.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidDateRange),
			errors.Is(err, application.ErrInvalidCapital),
			errors.Is(err, application.ErrInvalidStrategy):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, toRunResponse(run))
}

// Get 查询单个回测运行
func (h *HTTPHandler) Get(c *gin.Context) {
	run, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toRunResponse(run))
}

// List 最近的回测运行
func (h *HTTPHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		items = append(items, toRunResponse(run))
	}
	c.JSON(http.StatusOK, gin.H{"runs": items, "total": len(items)})
}

// Cancel 取消进行中的回测
func (h *HTTPHandler) Cancel(c *gin.Context) {
	err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRunNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrRunTerminal), errors.Is(err, domain.ErrRunNotRunnable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// StreamEvents 以 SSE 推送指定运行的实时事件。
// 总线是同步投递，回调只做入队，慢客户端丢事件而不是拖慢模拟。
func (h *HTTPHandler) StreamEvents(c *gin.Context) {
	runID := c.Param("id")

	events := make(chan domain.Event, 64)
	unsubscribe := h.service.SubscribeRun(runID, func(event domain.Event) {
		select {
		case events <- event:
		default:
		}
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case event := <-events:
			c.SSEvent(string(event.Type), event)
			if event.Type == domain.EventCompleted || event.Type == domain.EventFailed {
				return false
			}
			return true
		case <-c.Request.Context().Done():
			return false
		case <-time.After(30 * time.Second):
			c.SSEvent("heartbeat", gin.H{"ts": time.Now().Unix()})
			return true
		}
	})
}

func toRunResponse(run *domain.BacktestRun) gin.H {
	resp := gin.H{
		"runId":          run.RunID,
		"symbol":         run.Symbol,
		"strategyId":     run.StrategyID,
		"startDate":      run.StartDate.Format("2006-01-02"),
		"endDate":        run.EndDate.Format("2006-01-02"),
		"initialCapital": run.InitialCapital.InexactFloat64(),
		"status":         string(run.Status),
		"createdAt":      run.CreatedAt.Format(time.RFC3339),
	}
	if run.Status.Terminal() {
		resp["finalEquity"] = run.FinalEquity.InexactFloat64()
		resp["totalReturn"] = run.TotalReturn.InexactFloat64()
		resp["totalReturnPct"] = run.TotalReturnPct
		resp["maxDrawdownPct"] = run.MaxDrawdownPct
		resp["totalTrades"] = run.TotalTrades
	}
	if run.ErrorMessage != "" {
		resp["error"] = run.ErrorMessage
	}
	return resp
}
