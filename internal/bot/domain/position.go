package domain

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Position 持仓实体，(bot_id, symbol) 至多一行
type Position struct {
	gorm.Model
	BotID  string `gorm:"column:bot_id;type:varchar(36);uniqueIndex:idx_bot_symbol;not null"`
	Symbol string `gorm:"column:symbol;type:varchar(20);uniqueIndex:idx_bot_symbol;not null"`
	// Quantity 持仓数量，始终 >= 0
	Quantity decimal.Decimal `gorm:"column:quantity;type:decimal(32,18);not null"`
	// TotalCost 持仓总成本
	TotalCost decimal.Decimal `gorm:"column:total_cost;type:decimal(32,18);not null"`
	// MarketValue 最近一次估值的市值
	MarketValue decimal.Decimal `gorm:"column:market_value;type:decimal(32,18);not null;default:0"`
	// UnrealizedPL 最近一次估值的未实现盈亏
	UnrealizedPL decimal.Decimal `gorm:"column:unrealized_pl;type:decimal(32,18);not null;default:0"`
}

// TableName 表名
func (Position) TableName() string {
	return "positions"
}

// NewPosition 创建空持仓
func NewPosition(botID, symbol string) *Position {
	return &Position{
		BotID:        botID,
		Symbol:       symbol,
		Quantity:     decimal.Zero,
		TotalCost:    decimal.Zero,
		MarketValue:  decimal.Zero,
		UnrealizedPL: decimal.Zero,
	}
}

// ApplyFill 将一笔成交并入持仓，返回本次平仓实现的盈亏。
// 买入增加数量与成本；卖出按均价释放成本，差额即已实现盈亏。
// 数量或价格非正的成交直接拒绝，网关侧的畸形回报不得污染账本。
func (p *Position) ApplyFill(side TradeSide, qty, price decimal.Decimal) (decimal.Decimal, error) {
	if !qty.IsPositive() || !price.IsPositive() {
		return decimal.Zero, ErrInvalidFill
	}

	if side == TradeSideBuy {
		p.Quantity = p.Quantity.Add(qty)
		p.TotalCost = p.TotalCost.Add(qty.Mul(price))
		return decimal.Zero, nil
	}

	if qty.GreaterThan(p.Quantity) {
		return decimal.Zero, ErrInsufficientQuantity
	}

	avgCost := p.TotalCost.Div(p.Quantity)
	releasedCost := avgCost.Mul(qty)
	realized := price.Mul(qty).Sub(releasedCost)

	p.Quantity = p.Quantity.Sub(qty)
	p.TotalCost = p.TotalCost.Sub(releasedCost)
	if p.Quantity.IsZero() {
		p.TotalCost = decimal.Zero
	}
	return realized, nil
}

// Revalue 按当前价刷新市值与未实现盈亏
func (p *Position) Revalue(price decimal.Decimal) {
	p.MarketValue = p.Quantity.Mul(price)
	p.UnrealizedPL = p.MarketValue.Sub(p.TotalCost)
}

// Closed 数量归零即视为已平仓
func (p *Position) Closed() bool {
	return p.Quantity.IsZero()
}
