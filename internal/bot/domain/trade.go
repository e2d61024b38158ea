package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TradeSide 买卖方向
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Trade 成交记录
type Trade struct {
	gorm.Model
	TradeID  string          `gorm:"column:trade_id;type:varchar(36);uniqueIndex;not null"`
	BotID    string          `gorm:"column:bot_id;type:varchar(36);index;not null"`
	Symbol   string          `gorm:"column:symbol;type:varchar(20);not null"`
	Side     TradeSide       `gorm:"column:side;type:varchar(4);not null"`
	Quantity decimal.Decimal `gorm:"column:quantity;type:decimal(32,18);not null"`
	Price    decimal.Decimal `gorm:"column:price;type:decimal(32,18);not null"`
	// RealizedPL 本笔成交实现的盈亏，买入为 0
	RealizedPL decimal.Decimal `gorm:"column:realized_pl;type:decimal(32,18);not null;default:0"`
	ExecutedAt time.Time       `gorm:"column:executed_at;not null"`
}

// TableName 表名
func (Trade) TableName() string {
	return "trades"
}
