package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 错误定义
var (
	ErrRunNotFound    = errors.New("backtest run not found")
	ErrRunNotRunnable = errors.New("backtest run is not in a runnable state")
	ErrRunTerminal    = errors.New("backtest run already finished")
)

// RunStatus 回测运行状态
type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// Terminal 是否是终态
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// BacktestRun 回测运行聚合根。
// 状态只沿 PENDING → RUNNING → COMPLETED|FAILED 流转。
type BacktestRun struct {
	gorm.Model
	RunID          string          `gorm:"column:run_id;type:varchar(36);uniqueIndex;not null" json:"run_id"`
	Symbol         string          `gorm:"column:symbol;type:varchar(20);index;not null" json:"symbol"`
	StrategyID     string          `gorm:"column:strategy_id;type:varchar(64);not null" json:"strategy_id"`
	StrategyParams string          `gorm:"column:strategy_params;type:json" json:"strategy_params"`
	StartDate      time.Time       `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EndDate        time.Time       `gorm:"column:end_date;type:date;not null" json:"end_date"`
	InitialCapital decimal.Decimal `gorm:"column:initial_capital;type:decimal(32,18);not null" json:"initial_capital"`
	Status         RunStatus       `gorm:"column:status;type:varchar(16);index;not null" json:"status"`
	FinalEquity    decimal.Decimal `gorm:"column:final_equity;type:decimal(32,18);not null;default:0" json:"final_equity"`
	TotalReturn    decimal.Decimal `gorm:"column:total_return;type:decimal(32,18);not null;default:0" json:"total_return"`
	TotalReturnPct float64         `gorm:"column:total_return_pct;type:decimal(10,6);not null;default:0" json:"total_return_pct"`
	MaxDrawdownPct float64         `gorm:"column:max_drawdown_pct;type:decimal(10,6);not null;default:0" json:"max_drawdown_pct"`
	TotalTrades    int             `gorm:"column:total_trades;not null;default:0" json:"total_trades"`
	EquityCurve    string          `gorm:"column:equity_curve;type:json" json:"equity_curve"`
	ErrorMessage   string          `gorm:"column:error_message;type:varchar(512)" json:"error_message"`
	StartedAt      *time.Time      `gorm:"column:started_at" json:"started_at"`
	FinishedAt     *time.Time      `gorm:"column:finished_at" json:"finished_at"`
}

// TableName 指定表名
func (BacktestRun) TableName() string {
	return "backtest_runs"
}

// NewBacktestRun 创建待执行的回测运行
func NewBacktestRun(runID, symbol, strategyID, strategyParams string, startDate, endDate time.Time, initialCapital decimal.Decimal) *BacktestRun {
	return &BacktestRun{
		RunID:          runID,
		Symbol:         symbol,
		StrategyID:     strategyID,
		StrategyParams: strategyParams,
		StartDate:      startDate,
		EndDate:        endDate,
		InitialCapital: initialCapital,
		Status:         RunPending,
	}
}

// MarkRunning PENDING 进入 RUNNING
func (r *BacktestRun) MarkRunning(now time.Time) error {
	if r.Status != RunPending {
		return fmt.Errorf("%w: status=%s", ErrRunNotRunnable, r.Status)
	}
	r.Status = RunRunning
	r.StartedAt = &now
	return nil
}

// MarkCompleted RUNNING 进入 COMPLETED，记录最终权益指标
func (r *BacktestRun) MarkCompleted(now time.Time, finalEquity, totalReturn decimal.Decimal, totalReturnPct, maxDrawdownPct float64, totalTrades int, equityCurve string) error {
	if r.Status != RunRunning {
		return fmt.Errorf("%w: status=%s", ErrRunNotRunnable, r.Status)
	}
	r.Status = RunCompleted
	r.FinalEquity = finalEquity
	r.TotalReturn = totalReturn
	r.TotalReturnPct = totalReturnPct
	r.MaxDrawdownPct = maxDrawdownPct
	r.TotalTrades = totalTrades
	r.EquityCurve = equityCurve
	r.FinishedAt = &now
	return nil
}

// MarkFailed 进入 FAILED。未开始的运行也可以直接标记失败。
func (r *BacktestRun) MarkFailed(now time.Time, message string) error {
	if r.Status.Terminal() {
		return fmt.Errorf("%w: status=%s", ErrRunTerminal, r.Status)
	}
	r.Status = RunFailed
	r.ErrorMessage = message
	r.FinishedAt = &now
	return nil
}

// RunRepository 回测运行仓储接口
type RunRepository interface {
	Create(ctx context.Context, run *BacktestRun) error
	Save(ctx context.Context, run *BacktestRun) error
	FindByRunID(ctx context.Context, runID string) (*BacktestRun, error)
	FindRecent(ctx context.Context, limit int) ([]*BacktestRun, error)
}
