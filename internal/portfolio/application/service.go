// Package application 投资组合服务应用层
package application

import (
	"context"
	"log/slog"
	"time"

	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
	"github.com/wyfcoding/tradingbot/internal/portfolio/domain"
)

// PortfolioService 组合汇总应用服务
type PortfolioService struct {
	aggregator *domain.Aggregator
	bots       botdomain.BotRepository
	snapshots  domain.SnapshotRepository
	logger     *slog.Logger
}

// NewPortfolioService 创建组合汇总服务
func NewPortfolioService(
	aggregator *domain.Aggregator,
	bots botdomain.BotRepository,
	snapshots domain.SnapshotRepository,
	logger *slog.Logger,
) *PortfolioService {
	return &PortfolioService{
		aggregator: aggregator,
		bots:       bots,
		snapshots:  snapshots,
		logger:     logger,
	}
}

// Overview 汇总全部机器人的资金视图，纯只读
func (s *PortfolioService) Overview(ctx context.Context) (*domain.Overview, error) {
	bots, err := s.bots.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.aggregator.Aggregate(ctx, bots)
}

// BotFigures 单个机器人的资金明细
func (s *PortfolioService) BotFigures(ctx context.Context, botID string) (*domain.BotFigures, error) {
	bot, err := s.bots.FindByBotID(ctx, botID)
	if err != nil {
		return nil, err
	}
	return s.aggregator.AggregateBot(ctx, bot)
}

// TakeSnapshot 汇总并落库当日快照
func (s *PortfolioService) TakeSnapshot(ctx context.Context) (*domain.PortfolioSnapshot, error) {
	overview, err := s.Overview(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := domain.NewSnapshot(overview, time.Now().UTC())
	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		return nil, err
	}

	s.logger.Info("组合快照已落库",
		"snapshot_date", snapshot.SnapshotDate.Format("2006-01-02"),
		"portfolio_value", snapshot.PortfolioValue.String(),
		"bot_count", snapshot.BotCount)
	return snapshot, nil
}

// RunSnapshotLoop 周期性落库组合快照，阻塞直到 ctx 取消。
// 同一自然日内的多次快照按日期列覆盖，保留的是当日最后一次汇总。
func (s *PortfolioService) RunSnapshotLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("组合快照循环已启动", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("组合快照循环已停止")
			return
		case <-ticker.C:
			if _, err := s.TakeSnapshot(ctx); err != nil {
				s.logger.Error("周期快照失败", "error", err)
			}
		}
	}
}

// History 按日期倒序返回最近的快照
func (s *PortfolioService) History(ctx context.Context, limit int) ([]*domain.PortfolioSnapshot, error) {
	if limit <= 0 || limit > 365 {
		limit = 30
	}
	return s.snapshots.FindRecent(ctx, limit)
}
