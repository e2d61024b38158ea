package domain

import (
	botdomain "github.com/wyfcoding/tradingbot/internal/bot/domain"
	marketdomain "github.com/wyfcoding/tradingbot/internal/marketdata/domain"
)

// RuleEngine 在历史 K 线上评估策略条件。
// 买入要求全部条件同时成立，卖出任一条件触发即可。
type RuleEngine struct {
	config *botdomain.StrategyConfig
}

// NewRuleEngine 创建规则引擎
func NewRuleEngine(config *botdomain.StrategyConfig) *RuleEngine {
	return &RuleEngine{config: config}
}

// ShouldBuy 第 i 根 K 线上是否满足全部买入条件
func (e *RuleEngine) ShouldBuy(bars []marketdomain.Bar, i int) bool {
	if len(e.config.Buy) == 0 {
		return false
	}
	for _, cond := range e.config.Buy {
		if !e.evaluate(cond, bars, i, true) {
			return false
		}
	}
	return true
}

// ShouldSell 第 i 根 K 线上是否有任一卖出条件触发
func (e *RuleEngine) ShouldSell(bars []marketdomain.Bar, i int) bool {
	for _, cond := range e.config.Sell {
		if e.evaluate(cond, bars, i, false) {
			return true
		}
	}
	return false
}

// evaluate 评估单个条件。均线交叉与 RSI 按买卖方向取反：
// 买入看金叉和超卖，卖出看死叉和超买。
func (e *RuleEngine) evaluate(cond botdomain.Condition, bars []marketdomain.Bar, i int, buying bool) bool {
	close := bars[i].Close.InexactFloat64()

	switch cond.Kind {
	case botdomain.ConditionPriceAbove:
		return close > cond.Price.InexactFloat64()
	case botdomain.ConditionPriceBelow:
		return close < cond.Price.InexactFloat64()
	case botdomain.ConditionSMACrossover:
		return e.crossover(bars, i, cond.FastPeriod, cond.SlowPeriod, buying)
	case botdomain.ConditionRSIThreshold:
		rsi, ok := relativeStrength(bars, i, cond.Period)
		if !ok {
			return false
		}
		if buying {
			return rsi < cond.Threshold
		}
		return rsi > cond.Threshold
	default:
		return false
	}
}

func (e *RuleEngine) crossover(bars []marketdomain.Bar, i, fast, slow int, buying bool) bool {
	if i < 1 {
		return false
	}
	fastNow, ok1 := simpleMovingAverage(bars, i, fast)
	slowNow, ok2 := simpleMovingAverage(bars, i, slow)
	fastPrev, ok3 := simpleMovingAverage(bars, i-1, fast)
	slowPrev, ok4 := simpleMovingAverage(bars, i-1, slow)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	if buying {
		return fastPrev <= slowPrev && fastNow > slowNow
	}
	return fastPrev >= slowPrev && fastNow < slowNow
}

// simpleMovingAverage 截至第 i 根 K 线的 period 期简单均线
func simpleMovingAverage(bars []marketdomain.Bar, i, period int) (float64, bool) {
	if period <= 0 || i+1 < period {
		return 0, false
	}
	sum := 0.0
	for j := i - period + 1; j <= i; j++ {
		sum += bars[j].Close.InexactFloat64()
	}
	return sum / float64(period), true
}

// relativeStrength 截至第 i 根 K 线的 period 期 RSI
func relativeStrength(bars []marketdomain.Bar, i, period int) (float64, bool) {
	if period <= 0 || i < period {
		return 0, false
	}
	gains := 0.0
	losses := 0.0
	for j := i - period + 1; j <= i; j++ {
		change := bars[j].Close.InexactFloat64() - bars[j-1].Close.InexactFloat64()
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		return 100, true
	}
	rs := gains / losses
	return 100 - 100/(1+rs), true
}
