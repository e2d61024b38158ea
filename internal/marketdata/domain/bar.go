package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Bar 一根 K 线
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// HistoryProvider 历史行情数据来源，用于回测回填
type HistoryProvider interface {
	// Bars 返回时间区间内的日线数据，按时间升序
	Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
}
