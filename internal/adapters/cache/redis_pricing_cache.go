package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/platform/obs"
)

const pricingKey = "insurance:pricing"

// RedisPricingCache is a short-TTL cache for contract pricing parameters.
// Pricing is immutable per deployment, so a brief TTL only bounds how long a
// redeployment would be seen late; it never feeds an on-chain amount.
type RedisPricingCache struct {
	client *redis.Client
}

func NewRedisPricingCache(client *redis.Client) *RedisPricingCache {
	return &RedisPricingCache{client: client}
}

type pricingRecord struct {
	Premium       string `json:"premium"`
	PayoutPerDay  string `json:"payout_per_day"`
	MaxPayoutDays uint32 `json:"max_payout_days"`
}

func (c *RedisPricingCache) Get(ctx context.Context) (_ domain.PricingParameters, _ bool, err error) {
	defer obs.Time(ctx, "pricing.cache.Get")(&err)

	if c.client == nil {
		return domain.PricingParameters{}, false, errors.New("pricing cache: client is nil")
	}

	raw, err := c.client.Get(ctx, pricingKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PricingParameters{}, false, nil
	}
	if err != nil {
		return domain.PricingParameters{}, false, fmt.Errorf("get pricing cache: %w", err)
	}

	var rec pricingRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.PricingParameters{}, false, fmt.Errorf("get pricing cache: decode: %w", err)
	}

	premium, ok := new(big.Int).SetString(rec.Premium, 10)
	if !ok {
		return domain.PricingParameters{}, false, fmt.Errorf("get pricing cache: bad premium %q", rec.Premium)
	}
	perDay, ok := new(big.Int).SetString(rec.PayoutPerDay, 10)
	if !ok {
		return domain.PricingParameters{}, false, fmt.Errorf("get pricing cache: bad payout %q", rec.PayoutPerDay)
	}

	return domain.PricingParameters{
		Premium:       premium,
		PayoutPerDay:  perDay,
		MaxPayoutDays: rec.MaxPayoutDays,
	}, true, nil
}

func (c *RedisPricingCache) Put(ctx context.Context, p domain.PricingParameters, ttl time.Duration) error {
	if c.client == nil {
		return errors.New("pricing cache: client is nil")
	}
	if p.Premium == nil || p.PayoutPerDay == nil {
		return errors.New("put pricing cache: pricing is incomplete")
	}

	raw, err := json.Marshal(pricingRecord{
		Premium:       p.Premium.String(),
		PayoutPerDay:  p.PayoutPerDay.String(),
		MaxPayoutDays: p.MaxPayoutDays,
	})
	if err != nil {
		return fmt.Errorf("put pricing cache: encode: %w", err)
	}

	if err := c.client.Set(ctx, pricingKey, raw, ttl).Err(); err != nil {
		return fmt.Errorf("put pricing cache: %w", err)
	}
	return nil
}
