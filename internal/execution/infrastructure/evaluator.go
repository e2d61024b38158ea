// Package infrastructure 策略执行服务基础设施层
package infrastructure

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
	"github.com/wyfcoding/tradingbot/internal/execution/domain"
)

// EvaluatorClient 策略评估服务的 HTTP 客户端
type EvaluatorClient struct {
	client *resty.Client
}

// NewEvaluatorClient 创建评估客户端
func NewEvaluatorClient(baseURL string) *EvaluatorClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	return &EvaluatorClient{client: client}
}

type evaluateRequest struct {
	BotID       string                    `json:"bot_id"`
	Symbol      string                    `json:"symbol"`
	StrategyID  string                    `json:"strategy_id"`
	TimeHorizon string                    `json:"time_horizon"`
	Config      *botdomain.StrategyConfig `json:"config"`
}

type evaluateResponse struct {
	Action   string  `json:"action"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Reason   string  `json:"reason"`
}

// Evaluate 调用评估服务，返回交易决策
func (c *EvaluatorClient) Evaluate(ctx context.Context, bot *botdomain.Bot, config *botdomain.StrategyConfig) (*domain.Decision, error) {
	var result evaluateResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(evaluateRequest{
			BotID:       bot.BotID,
			Symbol:      bot.Symbol,
			StrategyID:  bot.StrategyID,
			TimeHorizon: string(bot.TimeHorizon),
			Config:      config,
		}).
		SetResult(&result).
		Post("/v1/evaluate")
	if err != nil {
		return nil, fmt.Errorf("evaluator request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("evaluator returned status %d", resp.StatusCode())
	}

	return &domain.Decision{
		Action:   domain.Action(result.Action),
		Quantity: decimal.NewFromFloat(result.Quantity),
		Price:    decimal.NewFromFloat(result.Price),
		Reason:   result.Reason,
	}, nil
}
