// Package interfaces 机器人车队接口层
package interfaces

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/tradingbot/internal/bot/application"
	"github.com/wyfcoding/tradingbot/internal/bot/domain"
)

// HTTPHandler HTTP 接口处理器
type HTTPHandler struct {
	commandService *application.CommandService
	queryService   *application.QueryService
}

// NewHTTPHandler 创建 HTTP 处理器
func NewHTTPHandler(
	commandService *application.CommandService,
	queryService *application.QueryService,
) *HTTPHandler {
	return &HTTPHandler{
		commandService: commandService,
		queryService:   queryService,
	}
}

// RegisterRoutes 注册路由
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	bots := r.Group("/bots")
	{
		bots.POST("", h.CreateBot)
		bots.GET("", h.ListBots)
		bots.GET("/:id", h.GetBot)
		bots.PUT("/:id/allocation", h.UpdateAllocation)
		bots.DELETE("/:id", h.DeleteBot)
		bots.GET("/:id/position", h.GetPosition)
		bots.GET("/:id/trades", h.ListTrades)
	}
}

// BotResponse 机器人响应体
type BotResponse struct {
	BotID           string     `json:"botId"`
	Name            string     `json:"name"`
	Symbol          string     `json:"symbol"`
	FundAllocation  float64    `json:"fundAllocation"`
	Status          string     `json:"status"`
	TimeHorizon     string     `json:"timeHorizon"`
	StrategyID      string     `json:"strategyId"`
	StrategyParams  string     `json:"strategyParams"`
	RealizedReturns float64    `json:"realizedReturns"`
	LastExecutedAt  *time.Time `json:"lastExecutedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// ToBotResponse 领域对象转响应体
func ToBotResponse(bot *domain.Bot) BotResponse {
	return BotResponse{
		BotID:           bot.BotID,
		Name:            bot.Name,
		Symbol:          bot.Symbol,
		FundAllocation:  bot.FundAllocation.InexactFloat64(),
		Status:          bot.Status.String(),
		TimeHorizon:     string(bot.TimeHorizon),
		StrategyID:      bot.StrategyID,
		StrategyParams:  bot.StrategyParams,
		RealizedReturns: bot.RealizedReturns.InexactFloat64(),
		LastExecutedAt:  bot.LastExecutedAt,
		CreatedAt:       bot.CreatedAt,
	}
}

// CreateBotRequest 创建机器人请求
type CreateBotRequest struct {
	Name           string  `json:"name" binding:"required"`
	Symbol         string  `json:"symbol" binding:"required"`
	StrategyID     string  `json:"strategyId" binding:"required"`
	StrategyParams string  `json:"strategyParams" binding:"required"`
	FundAllocation float64 `json:"fundAllocation" binding:"required,gt=0"`
	TimeHorizon    string  `json:"timeHorizon" binding:"required"`
}

// CreateBot 创建机器人
func (h *HTTPHandler) CreateBot(c *gin.Context) {
	var req CreateBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	horizon, err := domain.ParseTimeHorizon(req.TimeHorizon)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bot, err := h.commandService.CreateBot(c.Request.Context(), application.CreateBotCommand{
		Name:           req.Name,
		Symbol:         req.Symbol,
		StrategyID:     req.StrategyID,
		StrategyParams: req.StrategyParams,
		FundAllocation: decimal.NewFromFloat(req.FundAllocation),
		TimeHorizon:    horizon,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateBot) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		// 策略条件解码失败属于请求错误
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, ToBotResponse(bot))
}

// ListBots 列出机器人
func (h *HTTPHandler) ListBots(c *gin.Context) {
	bots, err := h.queryService.ListBots(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]BotResponse, 0, len(bots))
	for _, bot := range bots {
		resp = append(resp, ToBotResponse(bot))
	}
	c.JSON(http.StatusOK, resp)
}

// GetBot 获取机器人
func (h *HTTPHandler) GetBot(c *gin.Context) {
	bot, err := h.queryService.GetBot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ToBotResponse(bot))
}

// UpdateAllocationRequest 更新资金请求
type UpdateAllocationRequest struct {
	FundAllocation float64 `json:"fundAllocation" binding:"required,gt=0"`
}

// UpdateAllocation 更新分配资金
func (h *HTTPHandler) UpdateAllocation(c *gin.Context) {
	var req UpdateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bot, err := h.commandService.UpdateAllocation(
		c.Request.Context(), c.Param("id"), decimal.NewFromFloat(req.FundAllocation))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ToBotResponse(bot))
}

// DeleteBot 删除机器人
func (h *HTTPHandler) DeleteBot(c *gin.Context) {
	if err := h.commandService.DeleteBot(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// PositionResponse 持仓响应体
type PositionResponse struct {
	BotID        string  `json:"botId"`
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	TotalCost    float64 `json:"totalCost"`
	MarketValue  float64 `json:"marketValue"`
	UnrealizedPL float64 `json:"unrealizedPL"`
}

// GetPosition 获取机器人持仓
func (h *HTTPHandler) GetPosition(c *gin.Context) {
	position, err := h.queryService.GetPosition(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PositionResponse{
		BotID:        position.BotID,
		Symbol:       position.Symbol,
		Quantity:     position.Quantity.InexactFloat64(),
		TotalCost:    position.TotalCost.InexactFloat64(),
		MarketValue:  position.MarketValue.InexactFloat64(),
		UnrealizedPL: position.UnrealizedPL.InexactFloat64(),
	})
}

// TradeResponse 成交响应体
type TradeResponse struct {
	TradeID    string    `json:"tradeId"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	RealizedPL float64   `json:"realizedPL"`
	ExecutedAt time.Time `json:"executedAt"`
}

// ListTrades 列出机器人成交
func (h *HTTPHandler) ListTrades(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	trades, err := h.queryService.ListTrades(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]TradeResponse, 0, len(trades))
	for _, t := range trades {
		resp = append(resp, TradeResponse{
			TradeID:    t.TradeID,
			Symbol:     t.Symbol,
			Side:       string(t.Side),
			Quantity:   t.Quantity.InexactFloat64(),
			Price:      t.Price.InexactFloat64(),
			RealizedPL: t.RealizedPL.InexactFloat64(),
			ExecutedAt: t.ExecutedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// respondError 按错误种类映射状态码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrBotNotFound), errors.Is(err, domain.ErrPositionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrDuplicateBot):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
