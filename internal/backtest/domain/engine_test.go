package domain

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	marketdomain "github.com/wyfcoding/tradingbot/internal/marketdata/domain"
)

const engineTestParams = `{
	"schema_version": 1,
	"buy": [{"kind": "price_below", "price": "100"}],
	"sell": [{"kind": "price_above", "price": "120"}]
}`

type stubHistory struct {
	bars []marketdomain.Bar
	err  error
}

func (s *stubHistory) Bars(ctx context.Context, symbol string, start, end time.Time) ([]marketdomain.Bar, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bars, nil
}

type memoryRunRepo struct {
	runs map[string]*BacktestRun
}

func newMemoryRunRepo() *memoryRunRepo {
	return &memoryRunRepo{runs: map[string]*BacktestRun{}}
}

func (m *memoryRunRepo) Create(ctx context.Context, run *BacktestRun) error {
	m.runs[run.RunID] = run
	return nil
}

func (m *memoryRunRepo) Save(ctx context.Context, run *BacktestRun) error {
	m.runs[run.RunID] = run
	return nil
}

func (m *memoryRunRepo) FindByRunID(ctx context.Context, runID string) (*BacktestRun, error) {
	run, ok := m.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

func (m *memoryRunRepo) FindRecent(ctx context.Context, limit int) ([]*BacktestRun, error) {
	all := make([]*BacktestRun, 0, len(m.runs))
	for _, run := range m.runs {
		all = append(all, run)
	}
	return all, nil
}

func barsFromCloses(closes ...float64) []marketdomain.Bar {
	bars := make([]marketdomain.Bar, 0, len(closes))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		price := decimal.NewFromFloat(c)
		bars = append(bars, marketdomain.Bar{
			Symbol:    "AAPL",
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    decimal.NewFromInt(1000),
		})
	}
	return bars
}

func engineTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRun() *BacktestRun {
	return NewBacktestRun("run-1", "AAPL", "sma-basic", engineTestParams,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(1000))
}

func TestEngineCompletesProfitableRun(t *testing.T) {
	history := &stubHistory{bars: barsFromCloses(105, 95, 110, 125, 115)}
	repo := newMemoryRunRepo()
	bus := NewEventBus()
	engine := NewEngine(history, bus, repo, 2, engineTestLogger())

	var events []Event
	bus.SubscribeRun("run-1", func(e Event) { events = append(events, e) })

	run := newTestRun()
	require.NoError(t, repo.Create(context.Background(), run))
	require.NoError(t, engine.Run(context.Background(), run))

	assert.Equal(t, RunCompleted, run.Status)
	assert.Equal(t, 2, run.TotalTrades)
	// 95 买入，125 卖出：1000 * 125/95
	expected := decimal.NewFromInt(1000).Mul(decimal.NewFromInt(125)).Div(decimal.NewFromInt(95))
	assert.InDelta(t, expected.InexactFloat64(), run.FinalEquity.InexactFloat64(), 1e-6)
	assert.Greater(t, run.TotalReturnPct, 0.0)
	assert.NotEmpty(t, run.EquityCurve)
	assert.NotNil(t, run.FinishedAt)

	require.NotEmpty(t, events)
	assert.Equal(t, EventStarted, events[0].Type)

	counts := map[EventType]int{}
	for _, e := range events {
		counts[e.Type]++
	}
	assert.Equal(t, 2, counts[EventTradeExecuted])
	assert.Equal(t, 1, counts[EventCompleted])
	assert.Zero(t, counts[EventFailed])
	assert.GreaterOrEqual(t, counts[EventProgress], 1)
	assert.GreaterOrEqual(t, counts[EventEquityUpdate], 1)

	// completed 之后只剩 status_changed
	last := events[len(events)-1]
	assert.Equal(t, EventStatusChanged, last.Type)
	assert.Equal(t, string(RunCompleted), last.Data.(StatusChangedData).NewStatus)
}

func TestEngineFailsOnEmptyHistory(t *testing.T) {
	history := &stubHistory{bars: nil}
	repo := newMemoryRunRepo()
	bus := NewEventBus()
	engine := NewEngine(history, bus, repo, 2, engineTestLogger())

	var failures []Event
	bus.SubscribeType(EventFailed, func(e Event) { failures = append(failures, e) })

	run := newTestRun()
	require.NoError(t, repo.Create(context.Background(), run))
	err := engine.Run(context.Background(), run)
	require.Error(t, err)

	assert.Equal(t, RunFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "no historical data")
	require.Len(t, failures, 1)
}

func TestEngineCancellation(t *testing.T) {
	history := &stubHistory{bars: barsFromCloses(105, 95, 110, 125, 115)}
	repo := newMemoryRunRepo()
	bus := NewEventBus()
	engine := NewEngine(history, bus, repo, 2, engineTestLogger())

	var types []EventType
	bus.SubscribeRun("run-1", func(e Event) { types = append(types, e.Type) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := newTestRun()
	require.NoError(t, repo.Create(context.Background(), run))
	require.NoError(t, engine.Run(ctx, run))

	assert.Equal(t, RunFailed, run.Status)
	assert.Equal(t, "cancelled by user", run.ErrorMessage)

	// 取消只通过 status_changed 体现，不发 failed 事件
	assert.NotContains(t, types, EventFailed)
	assert.NotContains(t, types, EventCompleted)
	assert.Equal(t, EventStatusChanged, types[len(types)-1])
}

func TestRunStatusTransitions(t *testing.T) {
	run := newTestRun()
	now := time.Now()

	assert.Error(t, run.MarkCompleted(now, decimal.Zero, decimal.Zero, 0, 0, 0, "[]"), "cannot complete before running")

	require.NoError(t, run.MarkRunning(now))
	assert.Error(t, run.MarkRunning(now), "running is not re-enterable")

	require.NoError(t, run.MarkCompleted(now, decimal.NewFromInt(1100), decimal.NewFromInt(100), 10, 2, 4, "[]"))
	assert.ErrorIs(t, run.MarkFailed(now, "late failure"), ErrRunTerminal)
}
