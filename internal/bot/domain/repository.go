package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BotRepository 机器人仓储接口
type BotRepository interface {
	Create(ctx context.Context, bot *Bot) error
	Save(ctx context.Context, bot *Bot) error
	FindByBotID(ctx context.Context, botID string) (*Bot, error)
	FindAll(ctx context.Context) ([]*Bot, error)
	// FindActiveByHorizon 返回指定周期下所有启用的机器人
	FindActiveByHorizon(ctx context.Context, horizon TimeHorizon) ([]*Bot, error)
	Delete(ctx context.Context, botID string) error
}

// PositionRepository 持仓仓储接口
type PositionRepository interface {
	Save(ctx context.Context, position *Position) error
	FindByBotAndSymbol(ctx context.Context, botID, symbol string) (*Position, error)
	Delete(ctx context.Context, position *Position) error
}

// TradeRepository 成交仓储接口
type TradeRepository interface {
	Save(ctx context.Context, trade *Trade) error
	FindByBotID(ctx context.Context, botID string, limit int) ([]*Trade, error)
}

// SettlementRepository 成交结算，在单个事务内更新持仓、累计收益与成交记录。
// 持仓归零时删除持仓行并将平仓盈亏并入机器人的已实现收益。
type SettlementRepository interface {
	ApplyFill(ctx context.Context, botID string, side TradeSide, qty, price decimal.Decimal, executedAt time.Time) (*Trade, error)
}
