// Package domain 策略执行服务领域层
package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
)

// Action 策略决策动作
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Decision 策略评估结果
type Decision struct {
	Action   Action          `json:"action"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Reason   string          `json:"reason"`
}

// Tradeable 是否是需要下单的决策
func (d *Decision) Tradeable() bool {
	return d != nil && d.Action != ActionHold && d.Quantity.IsPositive()
}

// Order 提交给券商网关的订单
type Order struct {
	BotID    string          `json:"bot_id"`
	Symbol   string          `json:"symbol"`
	Side     Action          `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	DryRun   bool            `json:"dry_run"`
}

// Fill 券商回报的成交
type Fill struct {
	OrderID    string          `json:"order_id"`
	Symbol     string          `json:"symbol"`
	Side       Action          `json:"side"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// StrategyEvaluator 策略评估接口
type StrategyEvaluator interface {
	Evaluate(ctx context.Context, bot *botdomain.Bot, config *botdomain.StrategyConfig) (*Decision, error)
}

// BrokerGateway 券商下单接口
type BrokerGateway interface {
	PlaceOrder(ctx context.Context, order *Order) (*Fill, error)
}

// PipelineResult 单个机器人一次流水线的结果
type PipelineResult struct {
	Bot      *botdomain.Bot
	Decision *Decision
	Fill     *Fill
	Err      error
	Duration time.Duration
}

// Succeeded 流水线是否成功结束
func (r *PipelineResult) Succeeded() bool {
	return r.Err == nil
}

// Pipeline 评估加下单的执行流水线。
// 超时按调用方配置统一约束，超时视为普通失败。
type Pipeline struct {
	evaluator StrategyEvaluator
	gateway   BrokerGateway
	timeout   time.Duration
	logger    *slog.Logger
}

// NewPipeline 创建执行流水线
func NewPipeline(evaluator StrategyEvaluator, gateway BrokerGateway, timeout time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		evaluator: evaluator,
		gateway:   gateway,
		timeout:   timeout,
		logger:    logger,
	}
}

// Run 执行单个机器人的流水线：评估策略，必要时下单。
// 不回写任何存储状态，结果交由调用方落库。
func (p *Pipeline) Run(ctx context.Context, bot *botdomain.Bot, dryRun bool) *PipelineResult {
	start := time.Now()
	result := &PipelineResult{Bot: bot}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	config, err := botdomain.DecodeStrategyConfig(bot.StrategyParams)
	if err != nil {
		result.Err = fmt.Errorf("decode strategy config: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	decision, err := p.evaluator.Evaluate(ctx, bot, config)
	if err != nil {
		result.Err = fmt.Errorf("evaluate strategy: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	result.Decision = decision

	if decision.Tradeable() {
		fill, err := p.gateway.PlaceOrder(ctx, &Order{
			BotID:    bot.BotID,
			Symbol:   bot.Symbol,
			Side:     decision.Action,
			Quantity: decision.Quantity,
			DryRun:   dryRun,
		})
		if err != nil {
			result.Err = fmt.Errorf("place order: %w", err)
			result.Duration = time.Since(start)
			return result
		}
		result.Fill = fill
	}

	result.Duration = time.Since(start)
	p.logger.Debug("流水线执行完成",
		"bot_id", bot.BotID,
		"symbol", bot.Symbol,
		"action", string(decision.Action),
		"dry_run", dryRun,
		"duration", result.Duration)
	return result
}
