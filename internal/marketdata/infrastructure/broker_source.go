// Package infrastructure 行情数据服务基础设施层：外部数据源客户端与缓存装饰器
package infrastructure

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// BrokerSource 主价格源：券商网关的实时报价
type BrokerSource struct {
	client *resty.Client
}

// NewBrokerSource 创建券商报价源
func NewBrokerSource(baseURL, apiKey string) *BrokerSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("X-API-Key", apiKey)
	return &BrokerSource{client: client}
}

// Name 数据源标识
func (s *BrokerSource) Name() string {
	return "broker"
}

// quoteResponse 券商报价响应
type quoteResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Price 查询券商实时报价
func (s *BrokerSource) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var quote quoteResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&quote).
		SetPathParam("symbol", symbol).
		Get("/v1/quotes/{symbol}")
	if err != nil {
		return decimal.Zero, err
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("broker quote failed: status %d", resp.StatusCode())
	}
	return decimal.NewFromFloat(quote.Price), nil
}
