package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
	"github.com/wyfcoding/tradingbot/internal/execution/domain"
)

const validParams = `{"schema_version":1,"buy":[{"kind":"price_below","price":"150"}]}`

type mockBotRepo struct {
	bots map[string]*botdomain.Bot
}

func (m *mockBotRepo) Create(ctx context.Context, bot *botdomain.Bot) error {
	m.bots[bot.BotID] = bot
	return nil
}

func (m *mockBotRepo) Save(ctx context.Context, bot *botdomain.Bot) error {
	m.bots[bot.BotID] = bot
	return nil
}

func (m *mockBotRepo) FindByBotID(ctx context.Context, botID string) (*botdomain.Bot, error) {
	bot, ok := m.bots[botID]
	if !ok {
		return nil, botdomain.ErrBotNotFound
	}
	return bot, nil
}

func (m *mockBotRepo) FindAll(ctx context.Context) ([]*botdomain.Bot, error) {
	all := make([]*botdomain.Bot, 0, len(m.bots))
	for _, bot := range m.bots {
		all = append(all, bot)
	}
	return all, nil
}

func (m *mockBotRepo) FindActiveByHorizon(ctx context.Context, horizon botdomain.TimeHorizon) ([]*botdomain.Bot, error) {
	active := []*botdomain.Bot{}
	for _, bot := range m.bots {
		if bot.IsActive() && bot.TimeHorizon == horizon {
			active = append(active, bot)
		}
	}
	return active, nil
}

func (m *mockBotRepo) Delete(ctx context.Context, botID string) error {
	delete(m.bots, botID)
	return nil
}

type mockSettlement struct {
	fills int
}

func (m *mockSettlement) ApplyFill(ctx context.Context, botID string, side botdomain.TradeSide, qty, price decimal.Decimal, executedAt time.Time) (*botdomain.Trade, error) {
	m.fills++
	return &botdomain.Trade{BotID: botID, Side: side, Quantity: qty, Price: price}, nil
}

type mockReports struct {
	reports []*domain.ExecutionReport
}

func (m *mockReports) Save(ctx context.Context, report *domain.ExecutionReport) error {
	m.reports = append(m.reports, report)
	return nil
}

func (m *mockReports) FindByBotID(ctx context.Context, botID string, limit int) ([]*domain.ExecutionReport, error) {
	return m.reports, nil
}

type scriptedEvaluator struct {
	failFor map[string]bool
	action  domain.Action
}

func (e *scriptedEvaluator) Evaluate(ctx context.Context, bot *botdomain.Bot, config *botdomain.StrategyConfig) (*domain.Decision, error) {
	if e.failFor[bot.BotID] {
		return nil, errors.New("evaluator unavailable")
	}
	action := e.action
	if action == "" {
		action = domain.ActionHold
	}
	return &domain.Decision{Action: action, Quantity: decimal.NewFromInt(1)}, nil
}

type scriptedGateway struct{}

func (g *scriptedGateway) PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Fill, error) {
	return &domain.Fill{
		OrderID:    "order-" + order.BotID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Quantity:   order.Quantity,
		Price:      decimal.NewFromInt(100),
		ExecutedAt: time.Now(),
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(evaluator domain.StrategyEvaluator, repo *mockBotRepo) (*ExecutionService, *mockSettlement, *mockReports) {
	pipeline := domain.NewPipeline(evaluator, &scriptedGateway{}, 5*time.Second, testLogger())
	dispatcher := domain.NewDispatcher(pipeline, testLogger())
	settlement := &mockSettlement{}
	reports := &mockReports{}
	service := NewExecutionService(dispatcher, repo, settlement, reports, nil, testLogger())
	return service, settlement, reports
}

func activeBot(botID string) *botdomain.Bot {
	bot := botdomain.NewBot(botID, botID, "AAPL", "sma-basic", validParams, decimal.NewFromInt(10000), botdomain.HorizonSwing)
	_ = bot.Activate()
	return bot
}

func TestDispatchSummaryCountsFailures(t *testing.T) {
	repo := &mockBotRepo{bots: map[string]*botdomain.Bot{}}
	for i := 1; i <= 5; i++ {
		bot := activeBot(fmt.Sprintf("bot-%d", i))
		repo.bots[bot.BotID] = bot
	}

	service, _, reports := newService(&scriptedEvaluator{failFor: map[string]bool{"bot-3": true}}, repo)

	summary, err := service.Dispatch(context.Background(), botdomain.HorizonSwing)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Attempted)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, reports.reports, 5)

	// 成功的机器人推进了最近执行时间，失败的没有
	for id, bot := range repo.bots {
		if id == "bot-3" {
			assert.Nil(t, bot.LastExecutedAt, "failed bot must not advance lastExecutedAt")
		} else {
			assert.NotNil(t, bot.LastExecutedAt)
		}
	}
}

// zeroQtyGateway 对指定机器人回报零数量成交，模拟网关侧的畸形回报
type zeroQtyGateway struct {
	zeroFor map[string]bool
}

func (g *zeroQtyGateway) PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Fill, error) {
	qty := order.Quantity
	if g.zeroFor[order.BotID] {
		qty = decimal.Zero
	}
	return &domain.Fill{
		OrderID:    "order-" + order.BotID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Quantity:   qty,
		Price:      decimal.NewFromInt(100),
		ExecutedAt: time.Now(),
	}, nil
}

// positionSettlement 通过真实持仓实体结算，畸形成交由领域层拒绝
type positionSettlement struct {
	fills int
}

func (m *positionSettlement) ApplyFill(ctx context.Context, botID string, side botdomain.TradeSide, qty, price decimal.Decimal, executedAt time.Time) (*botdomain.Trade, error) {
	position := botdomain.NewPosition(botID, "AAPL")
	realized, err := position.ApplyFill(side, qty, price)
	if err != nil {
		return nil, err
	}
	m.fills++
	return &botdomain.Trade{BotID: botID, Side: side, Quantity: qty, Price: price, RealizedPL: realized}, nil
}

func TestDispatchMalformedFillCountedFailed(t *testing.T) {
	repo := &mockBotRepo{bots: map[string]*botdomain.Bot{}}
	for i := 1; i <= 3; i++ {
		bot := activeBot(fmt.Sprintf("bot-%d", i))
		repo.bots[bot.BotID] = bot
	}

	gateway := &zeroQtyGateway{zeroFor: map[string]bool{"bot-2": true}}
	pipeline := domain.NewPipeline(&scriptedEvaluator{action: domain.ActionBuy}, gateway, 5*time.Second, testLogger())
	dispatcher := domain.NewDispatcher(pipeline, testLogger())
	settlement := &positionSettlement{}
	reports := &mockReports{}
	service := NewExecutionService(dispatcher, repo, settlement, reports, nil, testLogger())

	// 单个机器人的零数量回报只算该机器人失败，兄弟机器人照常结算
	summary, err := service.Dispatch(context.Background(), botdomain.HorizonSwing)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, settlement.fills)
	assert.Len(t, reports.reports, 3)

	assert.Nil(t, repo.bots["bot-2"].LastExecutedAt)
	assert.NotNil(t, repo.bots["bot-1"].LastExecutedAt)
	assert.NotNil(t, repo.bots["bot-3"].LastExecutedAt)
}

func TestDispatchZeroActiveBots(t *testing.T) {
	repo := &mockBotRepo{bots: map[string]*botdomain.Bot{}}
	service, settlement, reports := newService(&scriptedEvaluator{}, repo)

	summary, err := service.Dispatch(context.Background(), botdomain.HorizonLongTerm)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Attempted)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Zero(t, settlement.fills)
	assert.Empty(t, reports.reports)
}

func TestDispatchSettlesFills(t *testing.T) {
	repo := &mockBotRepo{bots: map[string]*botdomain.Bot{}}
	bot := activeBot("bot-1")
	repo.bots[bot.BotID] = bot

	service, settlement, _ := newService(&scriptedEvaluator{action: domain.ActionBuy}, repo)

	summary, err := service.Dispatch(context.Background(), botdomain.HorizonSwing)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, settlement.fills)
}

func TestStartBotDryRunFailureLeavesInactive(t *testing.T) {
	repo := &mockBotRepo{bots: map[string]*botdomain.Bot{}}
	bot := botdomain.NewBot("bot-1", "bot-1", "AAPL", "sma-basic", validParams, decimal.NewFromInt(10000), botdomain.HorizonSwing)
	repo.bots[bot.BotID] = bot

	service, _, _ := newService(&scriptedEvaluator{failFor: map[string]bool{"bot-1": true}}, repo)

	_, err := service.StartBot(context.Background(), "bot-1")
	assert.ErrorIs(t, err, domain.ErrDryRunFailed)
	assert.False(t, repo.bots["bot-1"].IsActive())
	assert.Nil(t, repo.bots["bot-1"].LastExecutedAt)
}

func TestStartBotActivatesAfterDryRun(t *testing.T) {
	repo := &mockBotRepo{bots: map[string]*botdomain.Bot{}}
	bot := botdomain.NewBot("bot-1", "bot-1", "AAPL", "sma-basic", validParams, decimal.NewFromInt(10000), botdomain.HorizonSwing)
	repo.bots[bot.BotID] = bot

	service, _, reports := newService(&scriptedEvaluator{}, repo)

	started, err := service.StartBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.True(t, started.IsActive())
	assert.NotNil(t, started.LastExecutedAt)
	require.Len(t, reports.reports, 1)
	assert.True(t, reports.reports[0].DryRun)
}

func TestStartBotAlreadyActive(t *testing.T) {
	repo := &mockBotRepo{bots: map[string]*botdomain.Bot{}}
	bot := activeBot("bot-1")
	repo.bots[bot.BotID] = bot

	service, _, reports := newService(&scriptedEvaluator{}, repo)

	_, err := service.StartBot(context.Background(), "bot-1")
	assert.ErrorIs(t, err, botdomain.ErrBotAlreadyActive)
	assert.Empty(t, reports.reports, "already active must not re-run the pipeline")
}

func TestStartBotNotFound(t *testing.T) {
	repo := &mockBotRepo{bots: map[string]*botdomain.Bot{}}
	service, _, _ := newService(&scriptedEvaluator{}, repo)

	_, err := service.StartBot(context.Background(), "missing")
	assert.ErrorIs(t, err, botdomain.ErrBotNotFound)
}

func TestStopBot(t *testing.T) {
	repo := &mockBotRepo{bots: map[string]*botdomain.Bot{}}
	bot := activeBot("bot-1")
	repo.bots[bot.BotID] = bot

	service, _, _ := newService(&scriptedEvaluator{}, repo)

	stopped, err := service.StopBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.False(t, stopped.IsActive())

	_, err = service.StopBot(context.Background(), "bot-1")
	assert.ErrorIs(t, err, botdomain.ErrBotNotActive)
}
