package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/tradingbot/internal/execution/domain"
)

// BrokerClient 券商网关的 HTTP 客户端
type BrokerClient struct {
	client *resty.Client
}

// NewBrokerClient 创建券商客户端
func NewBrokerClient(baseURL, apiKey string) *BrokerClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-API-Key", apiKey)
	return &BrokerClient{client: client}
}

type orderRequest struct {
	BotID    string `json:"bot_id"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity string `json:"quantity"`
	DryRun   bool   `json:"dry_run"`
}

type orderResponse struct {
	OrderID    string  `json:"order_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	ExecutedAt int64   `json:"executed_at"`
}

// PlaceOrder 提交订单并等待成交回报
func (c *BrokerClient) PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Fill, error) {
	var result orderResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(orderRequest{
			BotID:    order.BotID,
			Symbol:   order.Symbol,
			Side:     string(order.Side),
			Quantity: order.Quantity.String(),
			DryRun:   order.DryRun,
		}).
		SetResult(&result).
		Post("/v1/orders")
	if err != nil {
		return nil, fmt.Errorf("broker request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("broker returned status %d", resp.StatusCode())
	}

	return &domain.Fill{
		OrderID:    result.OrderID,
		Symbol:     result.Symbol,
		Side:       domain.Action(result.Side),
		Quantity:   decimal.NewFromFloat(result.Quantity),
		Price:      decimal.NewFromFloat(result.Price),
		ExecutedAt: time.UnixMilli(result.ExecutedAt),
	}, nil
}
