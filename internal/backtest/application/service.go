// Package application 回测服务应用层
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/tradingbot/internal/backtest/domain"
	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
	"github.com/wyfcoding/tradingbot/pkg/metrics"
)

// 错误定义
var (
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrInvalidCapital   = errors.New("initial capital must be positive")
	ErrInvalidStrategy  = errors.New("invalid strategy config")
)

// StartCommand 提交回测的命令
type StartCommand struct {
	Symbol         string          `json:"symbol" binding:"required"`
	StrategyID     string          `json:"strategyId" binding:"required"`
	StrategyParams json.RawMessage `json:"strategyParams" binding:"required"`
	StartDate      string          `json:"startDate" binding:"required"`
	EndDate        string          `json:"endDate" binding:"required"`
	InitialCapital float64         `json:"initialCapital" binding:"required"`
}

// BacktestService 回测应用服务。
// 提交后模拟在后台运行，取消通过撤销运行上下文实现。
type BacktestService struct {
	engine  *domain.Engine
	runs    domain.RunRepository
	bus     *domain.EventBus
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewBacktestService 创建回测服务
func NewBacktestService(
	engine *domain.Engine,
	runs domain.RunRepository,
	bus *domain.EventBus,
	m *metrics.Metrics,
	logger *slog.Logger,
) *BacktestService {
	s := &BacktestService{
		engine:  engine,
		runs:    runs,
		bus:     bus,
		metrics: m,
		logger:  logger,
		cancels: make(map[string]context.CancelFunc),
	}
	if m != nil {
		bus.SubscribeAll(func(event domain.Event) {
			m.BacktestEventsTotal.WithLabelValues(string(event.Type)).Inc()
		})
	}
	return s
}

// Start 校验并创建回测运行，模拟在后台执行
func (s *BacktestService) Start(ctx context.Context, cmd StartCommand) (*domain.BacktestRun, error) {
	startDate, err := time.Parse("2006-01-02", cmd.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q", ErrInvalidDateRange, cmd.StartDate)
	}
	endDate, err := time.Parse("2006-01-02", cmd.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: end date %q", ErrInvalidDateRange, cmd.EndDate)
	}
	if !endDate.After(startDate) {
		return nil, fmt.Errorf("%w: end date must be after start date", ErrInvalidDateRange)
	}

	capital := decimal.NewFromFloat(cmd.InitialCapital)
	if !capital.IsPositive() {
		return nil, ErrInvalidCapital
	}

	config, err := botdomain.DecodeStrategyConfig(string(cmd.StrategyParams))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStrategy, err.Error())
	}
	params, err := config.Encode()
	if err != nil {
		return nil, err
	}

	run := domain.NewBacktestRun(uuid.New().String(), cmd.Symbol, cmd.StrategyID, params, startDate, endDate, capital)
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[run.RunID] = cancel
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.RunningBacktests.Inc()
	}

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.cancels, run.RunID)
			s.mu.Unlock()
			cancel()
			if s.metrics != nil {
				s.metrics.RunningBacktests.Dec()
			}
		}()

		if err := s.engine.Run(runCtx, run); err != nil {
			s.logger.Error("回测运行结束于错误", "run_id", run.RunID, "error", err)
		}
	}()

	s.logger.Info("回测已提交",
		"run_id", run.RunID,
		"symbol", run.Symbol,
		"strategy_id", run.StrategyID)
	return run, nil
}

// Get 查询回测运行
func (s *BacktestService) Get(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	return s.runs.FindByRunID(ctx, runID)
}

// List 按创建时间倒序返回最近的回测运行
func (s *BacktestService) List(ctx context.Context, limit int) ([]*domain.BacktestRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	return s.runs.FindRecent(ctx, limit)
}

// Cancel 取消进行中的回测
func (s *BacktestService) Cancel(ctx context.Context, runID string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[runID]
	s.mu.Unlock()

	if ok {
		cancel()
		s.logger.Info("回测取消请求已下发", "run_id", runID)
		return nil
	}

	// 不在运行中，区分不存在与已终态
	run, err := s.runs.FindByRunID(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status.Terminal() {
		return domain.ErrRunTerminal
	}
	return domain.ErrRunNotRunnable
}

// SubscribeRun 订阅指定运行的事件，供 SSE 等实时通道使用
func (s *BacktestService) SubscribeRun(runID string, callback domain.Callback) domain.Unsubscribe {
	return s.bus.SubscribeRun(runID, callback)
}
