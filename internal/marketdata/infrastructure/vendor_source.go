package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/tradingbot/internal/marketdata/domain"
)

// VendorSource 次价格源：行情数据供应商，同时提供历史数据
type VendorSource struct {
	client *resty.Client
}

// NewVendorSource 创建供应商数据源
func NewVendorSource(baseURL, apiKey string) *VendorSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetQueryParam("apikey", apiKey)
	return &VendorSource{client: client}
}

// Name 数据源标识
func (s *VendorSource) Name() string {
	return "vendor"
}

// priceResponse 供应商现价响应
type priceResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Price 查询供应商现价
func (s *VendorSource) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var out priceResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetQueryParam("symbol", symbol).
		Get("/v1/price")
	if err != nil {
		return decimal.Zero, err
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("vendor price failed: status %d", resp.StatusCode())
	}
	return decimal.NewFromFloat(out.Price), nil
}

// barPayload 供应商历史 K 线条目
type barPayload struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// barsResponse 供应商历史数据响应
type barsResponse struct {
	Symbol string       `json:"symbol"`
	Bars   []barPayload `json:"bars"`
}

// Bars 拉取历史日线数据，按时间升序返回
func (s *VendorSource) Bars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	var out barsResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"from":   start.Format("2006-01-02"),
			"to":     end.Format("2006-01-02"),
		}).
		Get("/v1/bars")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("vendor bars failed: status %d", resp.StatusCode())
	}

	bars := make([]domain.Bar, 0, len(out.Bars))
	for _, b := range out.Bars {
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: time.UnixMilli(b.Timestamp),
			Open:      decimal.NewFromFloat(b.Open),
			High:      decimal.NewFromFloat(b.High),
			Low:       decimal.NewFromFloat(b.Low),
			Close:     decimal.NewFromFloat(b.Close),
			Volume:    decimal.NewFromFloat(b.Volume),
		})
	}
	return bars, nil
}
