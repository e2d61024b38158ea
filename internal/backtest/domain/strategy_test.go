package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
)

func TestRuleEnginePriceLevels(t *testing.T) {
	cfg, err := botdomain.DecodeStrategyConfig(`{
		"schema_version": 1,
		"buy": [{"kind": "price_below", "price": "100"}],
		"sell": [{"kind": "price_above", "price": "120"}]
	}`)
	require.NoError(t, err)
	rules := NewRuleEngine(cfg)

	bars := barsFromCloses(105, 95, 125)

	assert.False(t, rules.ShouldBuy(bars, 0))
	assert.True(t, rules.ShouldBuy(bars, 1))
	assert.False(t, rules.ShouldSell(bars, 1))
	assert.True(t, rules.ShouldSell(bars, 2))
}

func TestRuleEngineAllBuyConditionsMustHold(t *testing.T) {
	cfg, err := botdomain.DecodeStrategyConfig(`{
		"schema_version": 1,
		"buy": [
			{"kind": "price_below", "price": "100"},
			{"kind": "price_above", "price": "90"}
		]
	}`)
	require.NoError(t, err)
	rules := NewRuleEngine(cfg)

	assert.True(t, rules.ShouldBuy(barsFromCloses(95), 0))
	assert.False(t, rules.ShouldBuy(barsFromCloses(85), 0), "one failed condition blocks the buy")
	assert.False(t, rules.ShouldBuy(barsFromCloses(105), 0))
}

func TestRuleEngineSMACrossover(t *testing.T) {
	cfg, err := botdomain.DecodeStrategyConfig(`{
		"schema_version": 1,
		"buy": [{"kind": "sma_crossover", "fast_period": 2, "slow_period": 4}]
	}`)
	require.NoError(t, err)
	rules := NewRuleEngine(cfg)

	// 前段下行让快线压在慢线下方，末根拉升触发金叉
	bars := barsFromCloses(110, 105, 100, 95, 90, 130)

	last := len(bars) - 1
	assert.True(t, rules.ShouldBuy(bars, last))
	assert.False(t, rules.ShouldBuy(bars, last-1))
	// 历史不足时不触发
	assert.False(t, rules.ShouldBuy(bars, 2))
}

func TestRuleEngineRSIThreshold(t *testing.T) {
	cfg, err := botdomain.DecodeStrategyConfig(`{
		"schema_version": 1,
		"buy": [{"kind": "rsi_threshold", "period": 3, "threshold": 30}],
		"sell": [{"kind": "rsi_threshold", "period": 3, "threshold": 70}]
	}`)
	require.NoError(t, err)
	rules := NewRuleEngine(cfg)

	falling := barsFromCloses(100, 96, 92, 88)
	assert.True(t, rules.ShouldBuy(falling, 3), "straight decline drives RSI to 0")

	rising := barsFromCloses(88, 92, 96, 100)
	assert.True(t, rules.ShouldSell(rising, 3), "straight rally drives RSI to 100")
	assert.False(t, rules.ShouldBuy(rising, 3))
}
