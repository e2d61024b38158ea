package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PortfolioSnapshot 组合快照，按日记录全量机器人的资金汇总
type PortfolioSnapshot struct {
	gorm.Model
	SnapshotDate    time.Time       `gorm:"column:snapshot_date;type:date;uniqueIndex;not null" json:"snapshot_date"`
	Cash            decimal.Decimal `gorm:"column:cash;type:decimal(32,18);not null;default:0" json:"cash"`
	PortfolioValue  decimal.Decimal `gorm:"column:portfolio_value;type:decimal(32,18);not null;default:0" json:"portfolio_value"`
	TotalReturns    decimal.Decimal `gorm:"column:total_returns;type:decimal(32,18);not null;default:0" json:"total_returns"`
	TotalReturnsPct float64         `gorm:"column:total_returns_pct;type:decimal(10,6);not null;default:0" json:"total_returns_pct"`
	BotCount        int             `gorm:"column:bot_count;not null;default:0" json:"bot_count"`
}

// TableName 指定表名
func (PortfolioSnapshot) TableName() string {
	return "portfolio_snapshots"
}

// NewSnapshot 由汇总视图生成当日快照
func NewSnapshot(overview *Overview, date time.Time) *PortfolioSnapshot {
	return &PortfolioSnapshot{
		SnapshotDate:    date.Truncate(24 * time.Hour),
		Cash:            overview.Cash,
		PortfolioValue:  overview.PortfolioValue,
		TotalReturns:    overview.TotalReturns,
		TotalReturnsPct: overview.TotalReturnsPct,
		BotCount:        overview.BotCount,
	}
}

// SnapshotRepository 快照仓储接口
type SnapshotRepository interface {
	// Save 写入或覆盖当日快照
	Save(ctx context.Context, snapshot *PortfolioSnapshot) error
	// FindRecent 按日期倒序返回最近的若干快照
	FindRecent(ctx context.Context, limit int) ([]*PortfolioSnapshot, error)
}
