package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStrategyConfig(t *testing.T) {
	raw := `{
		"schema_version": 1,
		"buy": [
			{"kind": "price_below", "price": "150"},
			{"kind": "rsi_threshold", "period": 14, "threshold": 30}
		],
		"sell": [
			{"kind": "price_above", "price": "200"}
		]
	}`

	cfg, err := DecodeStrategyConfig(raw)
	require.NoError(t, err)
	assert.Len(t, cfg.Buy, 2)
	assert.Len(t, cfg.Sell, 1)
	assert.Equal(t, ConditionPriceBelow, cfg.Buy[0].Kind)
	assert.Equal(t, ConditionRSIThreshold, cfg.Buy[1].Kind)
}

func TestDecodeStrategyConfigRejectsUnknownVersion(t *testing.T) {
	_, err := DecodeStrategyConfig(`{"schema_version": 99, "buy": [{"kind": "price_below", "price": "150"}]}`)
	assert.ErrorContains(t, err, "schema version")
}

func TestDecodeStrategyConfigRejectsUnknownKind(t *testing.T) {
	_, err := DecodeStrategyConfig(`{"schema_version": 1, "buy": [{"kind": "macd_divergence"}]}`)
	assert.ErrorContains(t, err, "unknown condition kind")
}

func TestDecodeStrategyConfigRequiresBuyCondition(t *testing.T) {
	_, err := DecodeStrategyConfig(`{"schema_version": 1, "buy": [], "sell": [{"kind": "price_above", "price": "200"}]}`)
	assert.ErrorContains(t, err, "at least one buy condition")
}

func TestConditionValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name:    "price condition requires positive price",
			raw:     `{"schema_version": 1, "buy": [{"kind": "price_above", "price": "0"}]}`,
			wantErr: "price must be positive",
		},
		{
			name:    "sma fast period must be below slow",
			raw:     `{"schema_version": 1, "buy": [{"kind": "sma_crossover", "fast_period": 50, "slow_period": 20}]}`,
			wantErr: "fast_period",
		},
		{
			name:    "rsi threshold must be within range",
			raw:     `{"schema_version": 1, "buy": [{"kind": "rsi_threshold", "period": 14, "threshold": 120}]}`,
			wantErr: "threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeStrategyConfig(tt.raw)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestBotLifecycle(t *testing.T) {
	bot := NewBot("bot-1", "测试机器人", "AAPL", "sma-basic", `{}`, decimal.NewFromInt(10000), HorizonSwing)

	assert.False(t, bot.IsActive())
	require.NoError(t, bot.Activate())
	assert.True(t, bot.IsActive())
	assert.ErrorIs(t, bot.Activate(), ErrBotAlreadyActive)

	require.NoError(t, bot.Deactivate())
	assert.ErrorIs(t, bot.Deactivate(), ErrBotNotActive)
}

func TestParseTimeHorizon(t *testing.T) {
	horizon, err := ParseTimeHorizon("SWING")
	require.NoError(t, err)
	assert.Equal(t, HorizonSwing, horizon)

	_, err = ParseTimeHorizon("INTRADAY")
	assert.ErrorIs(t, err, ErrInvalidHorizon)
}
