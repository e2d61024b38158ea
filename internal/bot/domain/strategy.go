package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// StrategyConfigSchemaVersion 当前策略条件的 schema 版本
const StrategyConfigSchemaVersion = 1

// ConditionKind 策略条件种类（区分联合的标签）
type ConditionKind string

const (
	// ConditionPriceAbove 现价高于指定价位
	ConditionPriceAbove ConditionKind = "price_above"
	// ConditionPriceBelow 现价低于指定价位
	ConditionPriceBelow ConditionKind = "price_below"
	// ConditionSMACrossover 快慢均线交叉
	ConditionSMACrossover ConditionKind = "sma_crossover"
	// ConditionRSIThreshold RSI 穿越阈值
	ConditionRSIThreshold ConditionKind = "rsi_threshold"
)

// Condition 单个策略条件。字段按 Kind 取用，未用字段留零值。
type Condition struct {
	Kind ConditionKind `json:"kind"`
	// Price 价位，price_above / price_below 使用
	Price decimal.Decimal `json:"price,omitempty"`
	// FastPeriod/SlowPeriod 均线周期，sma_crossover 使用
	FastPeriod int `json:"fast_period,omitempty"`
	SlowPeriod int `json:"slow_period,omitempty"`
	// Period/Threshold RSI 周期与阈值，rsi_threshold 使用
	Period    int     `json:"period,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

// Validate 校验条件字段与 Kind 匹配
func (c *Condition) Validate() error {
	switch c.Kind {
	case ConditionPriceAbove, ConditionPriceBelow:
		if !c.Price.IsPositive() {
			return fmt.Errorf("condition %s: price must be positive", c.Kind)
		}
	case ConditionSMACrossover:
		if c.FastPeriod <= 0 || c.SlowPeriod <= 0 || c.FastPeriod >= c.SlowPeriod {
			return fmt.Errorf("condition %s: fast_period must be positive and less than slow_period", c.Kind)
		}
	case ConditionRSIThreshold:
		if c.Period <= 0 || c.Threshold <= 0 || c.Threshold >= 100 {
			return fmt.Errorf("condition %s: period and threshold (0..100) are required", c.Kind)
		}
	default:
		return fmt.Errorf("unknown condition kind: %q", c.Kind)
	}
	return nil
}

// StrategyConfig 策略条件集合，入库前解码一次并校验
type StrategyConfig struct {
	SchemaVersion int `json:"schema_version"`
	// Buy 买入条件（全部满足触发）
	Buy []Condition `json:"buy"`
	// Sell 卖出条件（任一满足触发）
	Sell []Condition `json:"sell"`
}

// DecodeStrategyConfig 从 JSON 解码策略条件，未知版本或条件种类为错误
func DecodeStrategyConfig(raw string) (*StrategyConfig, error) {
	var cfg StrategyConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("invalid strategy params: %w", err)
	}
	if cfg.SchemaVersion != StrategyConfigSchemaVersion {
		return nil, fmt.Errorf("unsupported strategy schema version: %d", cfg.SchemaVersion)
	}
	if len(cfg.Buy) == 0 {
		return nil, fmt.Errorf("strategy requires at least one buy condition")
	}
	for i := range cfg.Buy {
		if err := cfg.Buy[i].Validate(); err != nil {
			return nil, err
		}
	}
	for i := range cfg.Sell {
		if err := cfg.Sell[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Encode 序列化策略条件
func (c *StrategyConfig) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
