// Package domain 行情数据服务领域层
// 生成摘要：
// 1) 定义价格源接口与按序降级的解析链
// 2) 定义历史 K 线数据契约
package domain

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable 所有价格源均不可用
var ErrPriceUnavailable = errors.New("price unavailable from all sources")

// PriceSource 单个价格源
type PriceSource interface {
	// Name 数据源标识，用于日志与指标
	Name() string
	// Price 返回当前价格，失败或无数据返回错误
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// ResolveObserver 价格解析观测回调（source 为数据源名，result 为 hit/miss）
type ResolveObserver func(source, result string)

// ChainResolver 有序价格解析链。
// 每个源在一次解析中至多尝试一次，单源受独立超时约束；
// 失败、超时或非正价格一律视为该源不可用并继续下一个源。
type ChainResolver struct {
	sources  []PriceSource
	timeout  time.Duration
	observer ResolveObserver
	logger   *slog.Logger
}

// NewChainResolver 创建解析链，sources 依优先级排列
func NewChainResolver(timeout time.Duration, logger *slog.Logger, sources ...PriceSource) *ChainResolver {
	return &ChainResolver{
		sources: sources,
		timeout: timeout,
		logger:  logger,
	}
}

// SetObserver 设置观测回调
func (r *ChainResolver) SetObserver(fn ResolveObserver) {
	r.observer = fn
}

// Resolve 依序尝试各价格源，全部失败返回 ErrPriceUnavailable
func (r *ChainResolver) Resolve(ctx context.Context, symbol string) (decimal.Decimal, error) {
	for _, src := range r.sources {
		price, err := r.trySource(ctx, src, symbol)
		if err != nil {
			r.observe(src.Name(), "miss")
			r.logger.DebugContext(ctx, "price source unavailable",
				"source", src.Name(), "symbol", symbol, "error", err)
			continue
		}
		r.observe(src.Name(), "hit")
		return price, nil
	}
	return decimal.Zero, ErrPriceUnavailable
}

// trySource 带超时尝试单个价格源
func (r *ChainResolver) trySource(ctx context.Context, src PriceSource, symbol string) (decimal.Decimal, error) {
	tierCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	price, err := src.Price(tierCtx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, errors.New("non-positive price")
	}
	return price, nil
}

func (r *ChainResolver) observe(source, result string) {
	if r.observer != nil {
		r.observer(source, result)
	}
}
