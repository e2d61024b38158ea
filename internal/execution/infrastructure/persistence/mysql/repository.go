// Package mysql 策略执行服务持久化实现
package mysql

import (
	"context"

	"github.com/wyfcoding/tradingbot/internal/execution/domain"
	"github.com/wyfcoding/tradingbot/pkg/db"
)

type reportRepository struct {
	db *db.DB
}

// NewReportRepository 创建执行记录仓储
func NewReportRepository(database *db.DB) domain.ReportRepository {
	return &reportRepository{db: database}
}

func (r *reportRepository) Save(ctx context.Context, report *domain.ExecutionReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) FindByBotID(ctx context.Context, botID string, limit int) ([]*domain.ExecutionReport, error) {
	var reports []*domain.ExecutionReport
	err := r.db.WithContext(ctx).
		Where("bot_id = ?", botID).
		Order("executed_at DESC").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}
