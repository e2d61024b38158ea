package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
	marketdomain "github.com/wyfcoding/tradingbot/internal/marketdata/domain"
)

type equityPoint struct {
	Timestamp string  `json:"timestamp"`
	Equity    float64 `json:"equity"`
}

// Engine 历史回测模拟引擎。
// 事件序列固定为 started → (progress | trade_executed | equity_update)* →
// (completed | failed)，取消经由 status_changed 体现，此后该运行不再发事件。
type Engine struct {
	history          marketdomain.HistoryProvider
	bus              *EventBus
	runs             RunRepository
	progressInterval int
	logger           *slog.Logger
}

// NewEngine 创建回测引擎
func NewEngine(history marketdomain.HistoryProvider, bus *EventBus, runs RunRepository, progressInterval int, logger *slog.Logger) *Engine {
	if progressInterval <= 0 {
		progressInterval = 10
	}
	return &Engine{
		history:          history,
		bus:              bus,
		runs:             runs,
		progressInterval: progressInterval,
		logger:           logger,
	}
}

// Run 执行一次回测模拟直到终态。阻塞调用，由调用方决定并发方式。
func (e *Engine) Run(ctx context.Context, run *BacktestRun) error {
	start := time.Now()

	config, err := botdomain.DecodeStrategyConfig(run.StrategyParams)
	if err != nil {
		return e.fail(ctx, run, "invalid strategy config", err)
	}

	bars, err := e.history.Bars(ctx, run.Symbol, run.StartDate, run.EndDate)
	if err != nil {
		return e.fail(ctx, run, "load historical bars", err)
	}
	if len(bars) == 0 {
		return e.fail(ctx, run, "no historical data for range", nil)
	}

	if err := e.markRunning(ctx, run); err != nil {
		return err
	}

	e.bus.Publish(NewEvent(EventStarted, run.RunID, StartedData{
		RunID:      run.RunID,
		Symbol:     run.Symbol,
		StrategyID: run.StrategyID,
		StartDate:  run.StartDate.Format("2006-01-02"),
		EndDate:    run.EndDate.Format("2006-01-02"),
	}))

	rules := NewRuleEngine(config)

	cash := run.InitialCapital
	quantity := decimal.Zero
	costBasis := decimal.Zero
	totalTrades := 0
	peak := run.InitialCapital
	maxDrawdownPct := 0.0
	curve := []equityPoint{}

	for i, bar := range bars {
		if ctx.Err() != nil {
			return e.cancel(run)
		}

		price := bar.Close

		if quantity.IsZero() && rules.ShouldBuy(bars, i) {
			quantity = cash.Div(price)
			costBasis = cash
			cash = decimal.Zero
			totalTrades++
			e.publishTrade(run, "BUY", quantity, price, nil, bar.Timestamp)
		} else if quantity.IsPositive() && rules.ShouldSell(bars, i) {
			proceeds := quantity.Mul(price)
			realized := proceeds.Sub(costBasis)
			e.publishTrade(run, "SELL", quantity, price, &sellOutcome{
				realizedPL:   realized,
				realizedBase: costBasis,
			}, bar.Timestamp)
			cash = proceeds
			quantity = decimal.Zero
			costBasis = decimal.Zero
			totalTrades++
		}

		equity := cash.Add(quantity.Mul(price))
		if equity.GreaterThan(peak) {
			peak = equity
		}
		drawdownPct := 0.0
		if peak.IsPositive() {
			drawdownPct = peak.Sub(equity).Div(peak).InexactFloat64() * 100
		}
		if drawdownPct > maxDrawdownPct {
			maxDrawdownPct = drawdownPct
		}

		if (i+1)%e.progressInterval == 0 || i == len(bars)-1 {
			curve = append(curve, equityPoint{
				Timestamp: FormatTimestamp(bar.Timestamp),
				Equity:    equity.InexactFloat64(),
			})
			e.bus.Publish(NewEvent(EventProgress, run.RunID, ProgressData{
				RunID:            run.RunID,
				BarsProcessed:    i + 1,
				TotalBars:        len(bars),
				ProgressPct:      float64(i+1) / float64(len(bars)) * 100,
				CurrentEquity:    equity.InexactFloat64(),
				CurrentTimestamp: FormatTimestamp(bar.Timestamp),
			}))
			e.bus.Publish(NewEvent(EventEquityUpdate, run.RunID, EquityUpdateData{
				RunID:       run.RunID,
				Timestamp:   FormatTimestamp(bar.Timestamp),
				Cash:        cash.InexactFloat64(),
				StockValue:  quantity.Mul(price).InexactFloat64(),
				TotalEquity: equity.InexactFloat64(),
				DrawdownPct: drawdownPct,
			}))
		}
	}

	finalPrice := bars[len(bars)-1].Close
	finalEquity := cash.Add(quantity.Mul(finalPrice))
	totalReturn := finalEquity.Sub(run.InitialCapital)
	totalReturnPct := 0.0
	if run.InitialCapital.IsPositive() {
		totalReturnPct = totalReturn.Div(run.InitialCapital).InexactFloat64() * 100
	}

	curveJSON, err := json.Marshal(curve)
	if err != nil {
		return e.fail(ctx, run, "encode equity curve", err)
	}

	now := time.Now()
	if err := run.MarkCompleted(now, finalEquity, totalReturn, totalReturnPct, maxDrawdownPct, totalTrades, string(curveJSON)); err != nil {
		return err
	}
	if err := e.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		return fmt.Errorf("persist completed run: %w", err)
	}

	e.bus.Publish(NewEvent(EventCompleted, run.RunID, CompletedData{
		RunID:          run.RunID,
		FinalEquity:    finalEquity.InexactFloat64(),
		TotalReturn:    totalReturn.InexactFloat64(),
		TotalReturnPct: totalReturnPct,
		TotalTrades:    totalTrades,
		ExecutionTime:  time.Since(start).String(),
	}))
	e.publishStatusChanged(run.RunID, RunRunning, RunCompleted, now)

	e.logger.Info("回测完成",
		"run_id", run.RunID,
		"symbol", run.Symbol,
		"bars", len(bars),
		"trades", totalTrades,
		"final_equity", finalEquity.String(),
		"duration", time.Since(start))
	return nil
}

type sellOutcome struct {
	realizedPL   decimal.Decimal
	realizedBase decimal.Decimal
}

func (e *Engine) publishTrade(run *BacktestRun, side string, quantity, price decimal.Decimal, outcome *sellOutcome, at time.Time) {
	data := TradeExecutedData{
		RunID:         run.RunID,
		TradeID:       uuid.New().String(),
		Side:          side,
		Symbol:        run.Symbol,
		Quantity:      quantity.InexactFloat64(),
		ExecutedPrice: price.InexactFloat64(),
		Timestamp:     FormatTimestamp(at),
	}
	if outcome != nil {
		pl := outcome.realizedPL.InexactFloat64()
		data.RealizedPL = &pl
		if outcome.realizedBase.IsPositive() {
			plPct := outcome.realizedPL.Div(outcome.realizedBase).InexactFloat64() * 100
			data.RealizedPLPct = &plPct
		}
	}
	e.bus.Publish(NewEvent(EventTradeExecuted, run.RunID, data))
}

func (e *Engine) markRunning(ctx context.Context, run *BacktestRun) error {
	now := time.Now()
	oldStatus := run.Status
	if err := run.MarkRunning(now); err != nil {
		return err
	}
	if err := e.runs.Save(ctx, run); err != nil {
		return fmt.Errorf("persist running state: %w", err)
	}
	e.publishStatusChanged(run.RunID, oldStatus, RunRunning, now)
	return nil
}

// cancel 取消路径。只发 status_changed，之后该运行不再发任何事件。
func (e *Engine) cancel(run *BacktestRun) error {
	now := time.Now()
	oldStatus := run.Status
	if err := run.MarkFailed(now, "cancelled by user"); err != nil {
		return err
	}
	if err := e.runs.Save(context.Background(), run); err != nil {
		return fmt.Errorf("persist cancelled run: %w", err)
	}
	e.publishStatusChanged(run.RunID, oldStatus, RunFailed, now)

	e.logger.Info("回测已取消", "run_id", run.RunID)
	return nil
}

func (e *Engine) fail(ctx context.Context, run *BacktestRun, message string, cause error) error {
	now := time.Now()
	oldStatus := run.Status
	details := ""
	if cause != nil {
		details = cause.Error()
	}

	if err := run.MarkFailed(now, message); err != nil {
		return err
	}
	if err := e.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		return fmt.Errorf("persist failed run: %w", err)
	}

	e.bus.Publish(NewEvent(EventFailed, run.RunID, FailedData{
		RunID:        run.RunID,
		Error:        message,
		ErrorDetails: details,
	}))
	e.publishStatusChanged(run.RunID, oldStatus, RunFailed, now)

	e.logger.Error("回测失败", "run_id", run.RunID, "error", message, "cause", details)
	if cause != nil {
		return fmt.Errorf("%s: %w", message, cause)
	}
	return fmt.Errorf("%s", message)
}

func (e *Engine) publishStatusChanged(runID string, oldStatus, newStatus RunStatus, at time.Time) {
	e.bus.Publish(NewEvent(EventStatusChanged, runID, StatusChangedData{
		RunID:     runID,
		OldStatus: string(oldStatus),
		NewStatus: string(newStatus),
		Timestamp: FormatTimestamp(at),
	}))
}
