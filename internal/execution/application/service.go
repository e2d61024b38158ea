// Package application 策略执行服务应用层
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
	"github.com/wyfcoding/tradingbot/internal/execution/domain"
	"github.com/wyfcoding/tradingbot/pkg/metrics"
)

// Summary 一次调度的汇总结果
type Summary struct {
	TimeHorizon string    `json:"time_horizon"`
	Attempted   int       `json:"attempted"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Timestamp   time.Time `json:"timestamp"`
}

// ExecutionService 调度应用服务。
// 流水线本身不回写存储，全部落库动作集中在这里。
type ExecutionService struct {
	dispatcher *domain.Dispatcher
	bots       botdomain.BotRepository
	settlement botdomain.SettlementRepository
	reports    domain.ReportRepository
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewExecutionService 创建调度服务
func NewExecutionService(
	dispatcher *domain.Dispatcher,
	bots botdomain.BotRepository,
	settlement botdomain.SettlementRepository,
	reports domain.ReportRepository,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ExecutionService {
	return &ExecutionService{
		dispatcher: dispatcher,
		bots:       bots,
		settlement: settlement,
		reports:    reports,
		metrics:    m,
		logger:     logger,
	}
}

// Dispatch 执行指定时间周期下全部活跃机器人的流水线。
// 没有活跃机器人时立即返回空汇总。
func (s *ExecutionService) Dispatch(ctx context.Context, horizon botdomain.TimeHorizon) (*Summary, error) {
	bots, err := s.bots.FindActiveByHorizon(ctx, horizon)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TimeHorizon: string(horizon),
		Timestamp:   time.Now(),
	}
	if s.metrics != nil {
		s.metrics.DispatchTotal.WithLabelValues(string(horizon)).Inc()
	}
	if len(bots) == 0 {
		return summary, nil
	}

	results := s.dispatcher.Dispatch(ctx, bots)
	now := time.Now()
	for _, result := range results {
		summary.Attempted++
		if s.settleResult(ctx, result, now) {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		s.saveReport(ctx, result, string(horizon), false, now)
	}

	s.logger.Info("调度完成",
		"time_horizon", string(horizon),
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed)
	return summary, nil
}

// DispatchAll 依次调度全部时间周期
func (s *ExecutionService) DispatchAll(ctx context.Context) (*Summary, error) {
	total := &Summary{
		TimeHorizon: "ALL",
		Timestamp:   time.Now(),
	}
	for _, horizon := range botdomain.AllHorizons() {
		summary, err := s.Dispatch(ctx, horizon)
		if err != nil {
			return nil, fmt.Errorf("dispatch %s: %w", horizon, err)
		}
		total.Attempted += summary.Attempted
		total.Succeeded += summary.Succeeded
		total.Failed += summary.Failed
	}
	return total, nil
}

// StartBot 激活机器人。先同步执行一次试运行流水线，
// 试运行失败则中止激活，机器人保持非活跃状态。
func (s *ExecutionService) StartBot(ctx context.Context, botID string) (*botdomain.Bot, error) {
	bot, err := s.bots.FindByBotID(ctx, botID)
	if err != nil {
		return nil, err
	}
	if bot.IsActive() {
		return nil, botdomain.ErrBotAlreadyActive
	}

	now := time.Now()
	result := s.dispatcher.DryRun(ctx, bot)
	s.saveReport(ctx, result, string(bot.TimeHorizon), true, now)
	if result.Err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDryRunFailed, result.Err.Error())
	}

	if err := bot.Activate(); err != nil {
		return nil, err
	}
	bot.MarkExecuted(now)
	if err := s.bots.Save(ctx, bot); err != nil {
		return nil, err
	}

	s.logger.Info("机器人已激活", "bot_id", bot.BotID, "symbol", bot.Symbol)
	return bot, nil
}

// StopBot 停用机器人
func (s *ExecutionService) StopBot(ctx context.Context, botID string) (*botdomain.Bot, error) {
	bot, err := s.bots.FindByBotID(ctx, botID)
	if err != nil {
		return nil, err
	}
	if err := bot.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.bots.Save(ctx, bot); err != nil {
		return nil, err
	}

	s.logger.Info("机器人已停用", "bot_id", bot.BotID, "symbol", bot.Symbol)
	return bot, nil
}

// settleResult 落库单个流水线结果：成交清算与执行时间推进
func (s *ExecutionService) settleResult(ctx context.Context, result *domain.PipelineResult, now time.Time) bool {
	if s.metrics != nil {
		s.metrics.PipelineDuration.Observe(result.Duration.Seconds())
	}
	if result.Err != nil {
		if s.metrics != nil {
			s.metrics.PipelineFailuresTotal.Inc()
		}
		return false
	}

	if result.Fill != nil {
		_, err := s.settlement.ApplyFill(ctx,
			result.Bot.BotID,
			botdomain.TradeSide(result.Fill.Side),
			result.Fill.Quantity,
			result.Fill.Price,
			result.Fill.ExecutedAt)
		if err != nil {
			s.logger.Error("成交清算失败",
				"bot_id", result.Bot.BotID,
				"symbol", result.Bot.Symbol,
				"error", err)
			if s.metrics != nil {
				s.metrics.PipelineFailuresTotal.Inc()
			}
			return false
		}
	}

	result.Bot.MarkExecuted(now)
	if err := s.bots.Save(ctx, result.Bot); err != nil {
		s.logger.Error("更新执行时间失败", "bot_id", result.Bot.BotID, "error", err)
		return false
	}
	return true
}

func (s *ExecutionService) saveReport(ctx context.Context, result *domain.PipelineResult, horizon string, dryRun bool, executedAt time.Time) {
	report := domain.NewReport(result, horizon, dryRun, executedAt)
	if err := s.reports.Save(ctx, report); err != nil {
		s.logger.Error("保存执行记录失败", "bot_id", result.Bot.BotID, "error", err)
	}
}
