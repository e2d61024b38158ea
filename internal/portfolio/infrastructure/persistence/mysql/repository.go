// Package mysql 投资组合服务持久化实现
package mysql

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/wyfcoding/tradingbot/internal/portfolio/domain"
	"github.com/wyfcoding/tradingbot/pkg/db"
)

type snapshotRepository struct {
	db *db.DB
}

// NewSnapshotRepository 创建快照仓储
func NewSnapshotRepository(database *db.DB) domain.SnapshotRepository {
	return &snapshotRepository{db: database}
}

// Save 按快照日期 Upsert，同一天重复汇总时覆盖旧值
func (r *snapshotRepository) Save(ctx context.Context, snapshot *domain.PortfolioSnapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_date"}},
		UpdateAll: true,
	}).Create(snapshot).Error
}

func (r *snapshotRepository) FindRecent(ctx context.Context, limit int) ([]*domain.PortfolioSnapshot, error) {
	var snapshots []*domain.PortfolioSnapshot
	err := r.db.WithContext(ctx).
		Order("snapshot_date DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}
