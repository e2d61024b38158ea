// Package mysql 回测服务持久化实现
package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/tradingbot/internal/backtest/domain"
	"github.com/wyfcoding/tradingbot/pkg/db"
)

type runRepository struct {
	db *db.DB
}

// NewRunRepository 创建回测运行仓储
func NewRunRepository(database *db.DB) domain.RunRepository {
	return &runRepository{db: database}
}

func (r *runRepository) Create(ctx context.Context, run *domain.BacktestRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *runRepository) Save(ctx context.Context, run *domain.BacktestRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *runRepository) FindByRunID(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	var run domain.BacktestRun
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

func (r *runRepository) FindRecent(ctx context.Context, limit int) ([]*domain.BacktestRun, error) {
	var runs []*domain.BacktestRun
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
