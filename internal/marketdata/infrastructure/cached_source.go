package infrastructure

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/tradingbot/internal/marketdata/domain"
	"github.com/wyfcoding/tradingbot/pkg/cache"
)

// CachedSource 价格源的 Redis 读穿缓存装饰器。
// 缓存故障时直接穿透到内层源，不影响解析结果。
type CachedSource struct {
	inner domain.PriceSource
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewCachedSource 创建缓存装饰器
func NewCachedSource(inner domain.PriceSource, redis *cache.RedisCache, ttl time.Duration) *CachedSource {
	return &CachedSource{
		inner: inner,
		cache: redis,
		ttl:   ttl,
	}
}

// Name 数据源标识，沿用内层源
func (s *CachedSource) Name() string {
	return s.inner.Name()
}

// Price 先查缓存，未命中则查内层源并写回
func (s *CachedSource) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	key := "price:" + s.inner.Name() + ":" + symbol

	if val, err := s.cache.Get(ctx, key); err == nil {
		if price, perr := decimal.NewFromString(val); perr == nil && price.IsPositive() {
			return price, nil
		}
	}

	price, err := s.inner.Price(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	_ = s.cache.Set(ctx, key, price.String(), s.ttl)
	return price, nil
}
