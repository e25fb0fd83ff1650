package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/platform/obs"
	"cargo-insurance-service/internal/ports"
)

// Display-only quote ratios from the dashboard: premium 2% of merchandise
// value, daily compensation 1%. Never used for the amount transferred.
const (
	displayPremiumBps = 200
	displayPayoutBps  = 100
)

const pricingReadAttempts = 3

// PricingReader loads contract pricing through the gateway with a short-TTL
// cache in front. Pricing is immutable per deployment, so brief caching is
// safe; the authoritative premium is still re-read through here (not
// locally derived) before any purchase.
type PricingReader struct {
	gateway ports.LedgerGateway
	cache   ports.PricingCache // optional
	ttl     time.Duration
}

func NewPricingReader(gateway ports.LedgerGateway, cache ports.PricingCache, ttl time.Duration) *PricingReader {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PricingReader{gateway: gateway, cache: cache, ttl: ttl}
}

// Pricing returns the contract's pricing parameters. Transient gateway
// failures are retried silently a bounded number of times before surfacing.
func (r *PricingReader) Pricing(ctx context.Context) (_ domain.PricingParameters, err error) {
	defer obs.Time(ctx, "pricing.Pricing")(&err)

	if r.cache != nil {
		cached, ok, err := r.cache.Get(ctx)
		if err != nil {
			log.Printf("pricing cache read failed: %v", err)
		} else if ok {
			return cached, nil
		}
	}

	var lastErr error
	for attempt := 1; attempt <= pricingReadAttempts; attempt++ {
		p, err := r.gateway.ReadPricing(ctx)
		if err == nil {
			if r.cache != nil {
				if err := r.cache.Put(ctx, p, r.ttl); err != nil {
					log.Printf("pricing cache write failed: %v", err)
				}
			}
			return p, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			break
		}
		if err := ctx.Err(); err != nil {
			return domain.PricingParameters{}, err
		}
	}

	return domain.PricingParameters{}, fmt.Errorf("read pricing: %w", lastErr)
}

// DisplayEstimate derives quote numbers from the merchandise value alone,
// for rendering when the gateway read fails. Display only.
func DisplayEstimate(value *big.Int) (premium, payoutPerDay *big.Int) {
	premium = new(big.Int).Div(new(big.Int).Mul(value, big.NewInt(displayPremiumBps)), big.NewInt(10000))
	payoutPerDay = new(big.Int).Div(new(big.Int).Mul(value, big.NewInt(displayPayoutBps)), big.NewInt(10000))
	return premium, payoutPerDay
}
