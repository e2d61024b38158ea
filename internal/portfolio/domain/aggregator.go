// Package domain 投资组合服务领域层
package domain

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
)

// PriceResolver 现价解析接口，由行情服务的降级链实现
type PriceResolver interface {
	Resolve(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// PositionLookup 持仓查询接口
type PositionLookup interface {
	FindByBotAndSymbol(ctx context.Context, botID, symbol string) (*botdomain.Position, error)
}

// Overview 全量机器人的资金汇总视图
type Overview struct {
	Cash            decimal.Decimal `json:"cash"`
	PortfolioValue  decimal.Decimal `json:"portfolio_value"`
	TotalReturns    decimal.Decimal `json:"total_returns"`
	TotalReturnsPct float64         `json:"total_returns_pct"`
	BotCount        int             `json:"bot_count"`
	LastUpdated     time.Time       `json:"last_updated"`
}

// BotFigures 单个机器人的资金明细
type BotFigures struct {
	BotID         string          `json:"bot_id"`
	Symbol        string          `json:"symbol"`
	AvailableCash decimal.Decimal `json:"available_cash"`
	StockValue    decimal.Decimal `json:"stock_value"`
	TotalValue    decimal.Decimal `json:"total_value"`
	TotalReturns  decimal.Decimal `json:"total_returns"`
	Stale         bool            `json:"stale"`
}

// Aggregator 组合聚合器。只读计算，不修改任何存储状态。
type Aggregator struct {
	resolver  PriceResolver
	positions PositionLookup
	logger    *slog.Logger
}

// NewAggregator 创建聚合器
func NewAggregator(resolver PriceResolver, positions PositionLookup, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		resolver:  resolver,
		positions: positions,
		logger:    logger,
	}
}

// Aggregate 汇总全部机器人的资金视图。
// 单个机器人的价格解析失败时回退到持仓上次持久化的市值，
// 绝不因此中断整体汇总。
func (a *Aggregator) Aggregate(ctx context.Context, bots []*botdomain.Bot) (*Overview, error) {
	totalCash := decimal.Zero
	totalValue := decimal.Zero
	totalReturns := decimal.Zero
	totalAllocation := decimal.Zero

	for _, bot := range bots {
		figures, err := a.aggregateBot(ctx, bot)
		if err != nil {
			return nil, err
		}
		totalCash = totalCash.Add(figures.AvailableCash)
		totalValue = totalValue.Add(figures.TotalValue)
		totalReturns = totalReturns.Add(figures.TotalReturns)
		totalAllocation = totalAllocation.Add(bot.FundAllocation)
	}

	pct := 0.0
	if totalAllocation.IsPositive() {
		pct = totalReturns.Div(totalAllocation).InexactFloat64()
	}

	return &Overview{
		Cash:            totalCash,
		PortfolioValue:  totalValue,
		TotalReturns:    totalReturns,
		TotalReturnsPct: pct,
		BotCount:        len(bots),
		LastUpdated:     time.Now(),
	}, nil
}

// AggregateBot 计算单个机器人的资金明细
func (a *Aggregator) AggregateBot(ctx context.Context, bot *botdomain.Bot) (*BotFigures, error) {
	return a.aggregateBot(ctx, bot)
}

func (a *Aggregator) aggregateBot(ctx context.Context, bot *botdomain.Bot) (*BotFigures, error) {
	position, err := a.positions.FindByBotAndSymbol(ctx, bot.BotID, bot.Symbol)
	if err != nil {
		if !errors.Is(err, botdomain.ErrPositionNotFound) {
			return nil, err
		}
		position = botdomain.NewPosition(bot.BotID, bot.Symbol)
	}

	stockValue := decimal.Zero
	unrealizedPL := decimal.Zero
	totalCost := position.TotalCost
	stale := false

	if position.Quantity.IsPositive() {
		price, perr := a.resolver.Resolve(ctx, bot.Symbol)
		if perr != nil {
			// 价格不可用，降级使用上次持久化的市值与浮动盈亏
			stockValue = position.MarketValue
			unrealizedPL = position.UnrealizedPL
			stale = true
			a.logger.Warn("价格解析失败，使用持仓历史市值",
				"bot_id", bot.BotID,
				"symbol", bot.Symbol,
				"error", perr)
		} else {
			stockValue = position.Quantity.Mul(price)
			unrealizedPL = stockValue.Sub(totalCost)
		}
	}

	availableCash := bot.FundAllocation.Add(bot.RealizedReturns).Sub(totalCost)
	botReturns := bot.RealizedReturns.Add(unrealizedPL)
	botValue := bot.FundAllocation.Add(bot.RealizedReturns).Add(unrealizedPL)

	return &BotFigures{
		BotID:         bot.BotID,
		Symbol:        bot.Symbol,
		AvailableCash: availableCash,
		StockValue:    stockValue,
		TotalValue:    botValue,
		TotalReturns:  botReturns,
		Stale:         stale,
	}, nil
}
