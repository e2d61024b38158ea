package domain

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
)

const validParams = `{"schema_version":1,"buy":[{"kind":"price_below","price":"150"}]}`

type stubEvaluator struct {
	failFor map[string]bool
	panicOn string
	action  Action
}

func (e *stubEvaluator) Evaluate(ctx context.Context, bot *botdomain.Bot, config *botdomain.StrategyConfig) (*Decision, error) {
	if e.panicOn == bot.BotID {
		panic("evaluator blew up")
	}
	if e.failFor[bot.BotID] {
		return nil, errors.New("evaluator unavailable")
	}
	action := e.action
	if action == "" {
		action = ActionHold
	}
	return &Decision{
		Action:   action,
		Quantity: decimal.NewFromInt(1),
		Price:    decimal.NewFromInt(100),
	}, nil
}

type stubGateway struct {
	orders []*Order
	err    error
}

func (g *stubGateway) PlaceOrder(ctx context.Context, order *Order) (*Fill, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.orders = append(g.orders, order)
	return &Fill{
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

func newActiveBot(botID string) *botdomain.Bot {
	bot := botdomain.NewBot(botID, botID, "AAPL", "sma-basic", validParams, decimal.NewFromInt(10000), botdomain.HorizonSwing)
	_ = bot.Activate()
	return bot
}

func newDispatcher(evaluator StrategyEvaluator, gateway BrokerGateway) *Dispatcher {
	pipeline := NewPipeline(evaluator, gateway, 5*time.Second, testLogger())
	return NewDispatcher(pipeline, testLogger())
}

func TestDispatchIsolatesSingleBotFailure(t *testing.T) {
	bots := make([]*botdomain.Bot, 0, 5)
	for i := 1; i <= 5; i++ {
		bots = append(bots, newActiveBot(fmt.Sprintf("bot-%d", i)))
	}

	evaluator := &stubEvaluator{failFor: map[string]bool{"bot-3": true}}
	d := newDispatcher(evaluator, &stubGateway{})

	results := d.Dispatch(context.Background(), bots)
	require.Len(t, results, 5)

	succeeded := 0
	failed := 0
	for _, result := range results {
		if result.Succeeded() {
			succeeded++
		} else {
			failed++
			assert.Equal(t, "bot-3", result.Bot.BotID)
		}
	}
	assert.Equal(t, 4, succeeded)
	assert.Equal(t, 1, failed)
}

func TestDispatchEmptyFleet(t *testing.T) {
	d := newDispatcher(&stubEvaluator{}, &stubGateway{})

	results := d.Dispatch(context.Background(), nil)
	assert.Empty(t, results)
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	bots := []*botdomain.Bot{newActiveBot("bot-1"), newActiveBot("bot-2")}
	evaluator := &stubEvaluator{panicOn: "bot-1"}
	d := newDispatcher(evaluator, &stubGateway{})

	results := d.Dispatch(context.Background(), bots)
	require.Len(t, results, 2)

	byID := map[string]*PipelineResult{}
	for _, result := range results {
		byID[result.Bot.BotID] = result
	}
	assert.ErrorContains(t, byID["bot-1"].Err, "pipeline panic")
	assert.NoError(t, byID["bot-2"].Err)
}

func TestPipelineHoldSkipsGateway(t *testing.T) {
	gateway := &stubGateway{}
	d := newDispatcher(&stubEvaluator{action: ActionHold}, gateway)

	results := d.Dispatch(context.Background(), []*botdomain.Bot{newActiveBot("bot-1")})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Nil(t, results[0].Fill)
	assert.Empty(t, gateway.orders)
}

func TestPipelineBuyPlacesOrder(t *testing.T) {
	gateway := &stubGateway{}
	d := newDispatcher(&stubEvaluator{action: ActionBuy}, gateway)

	results := d.Dispatch(context.Background(), []*botdomain.Bot{newActiveBot("bot-1")})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.NotNil(t, results[0].Fill)
	require.Len(t, gateway.orders, 1)
	assert.Equal(t, ActionBuy, gateway.orders[0].Side)
	assert.False(t, gateway.orders[0].DryRun)
}

func TestDryRunFlagsOrder(t *testing.T) {
	gateway := &stubGateway{}
	d := newDispatcher(&stubEvaluator{action: ActionBuy}, gateway)

	result := d.DryRun(context.Background(), newActiveBot("bot-1"))
	require.NoError(t, result.Err)
	require.Len(t, gateway.orders, 1)
	assert.True(t, gateway.orders[0].DryRun)
}

func TestPipelineRejectsInvalidStrategyParams(t *testing.T) {
	bot := botdomain.NewBot("bot-1", "bot-1", "AAPL", "sma-basic", `not json`, decimal.NewFromInt(10000), botdomain.HorizonSwing)
	d := newDispatcher(&stubEvaluator{}, &stubGateway{})

	result := d.DryRun(context.Background(), bot)
	assert.ErrorContains(t, result.Err, "decode strategy config")
}
