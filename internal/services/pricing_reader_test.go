package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"cargo-insurance-service/internal/adapters/ledger"
	"cargo-insurance-service/internal/domain"
)

// flakyPricing fails the first N pricing reads with a transient error.
type flakyPricing struct {
	*ledger.MockGateway
	failures int
	calls    int
}

func (f *flakyPricing) ReadPricing(ctx context.Context) (domain.PricingParameters, error) {
	f.calls++
	if f.calls <= f.failures {
		return domain.PricingParameters{}, fmt.Errorf("pricing read: %w", domain.ErrGatewayUnavailable)
	}
	return f.MockGateway.ReadPricing(ctx)
}

// memPricingCache is an in-memory PricingCache for reader tests.
type memPricingCache struct {
	params domain.PricingParameters
	ok     bool
	getErr error
	puts   int
}

func (c *memPricingCache) Get(context.Context) (domain.PricingParameters, bool, error) {
	if c.getErr != nil {
		return domain.PricingParameters{}, false, c.getErr
	}
	return c.params, c.ok, nil
}

func (c *memPricingCache) Put(_ context.Context, p domain.PricingParameters, _ time.Duration) error {
	c.params, c.ok = p.Clone(), true
	c.puts++
	return nil
}

func TestPricingRetriesTransientFailures(t *testing.T) {
	gw := &flakyPricing{MockGateway: ledger.NewMockGateway(testChainID), failures: 2}
	reader := NewPricingReader(gw, nil, 0)

	p, err := reader.Pricing(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Premium.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("premium = %s, want 1000", p.Premium)
	}
	if gw.calls != 3 {
		t.Errorf("gateway calls = %d, want 3 (two failures + success)", gw.calls)
	}
}

func TestPricingGivesUpAfterBoundedRetries(t *testing.T) {
	gw := &flakyPricing{MockGateway: ledger.NewMockGateway(testChainID), failures: 100}
	reader := NewPricingReader(gw, nil, 0)

	_, err := reader.Pricing(context.Background())
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
	if gw.calls != pricingReadAttempts {
		t.Errorf("gateway calls = %d, want %d", gw.calls, pricingReadAttempts)
	}
}

func TestPricingServedFromCache(t *testing.T) {
	gw := &flakyPricing{MockGateway: ledger.NewMockGateway(testChainID)}
	cache := &memPricingCache{}
	reader := NewPricingReader(gw, cache, time.Minute)

	// First read hits the gateway and fills the cache.
	if _, err := reader.Pricing(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.puts != 1 {
		t.Fatalf("cache puts = %d, want 1", cache.puts)
	}

	// Second read is answered by the cache alone.
	p, err := reader.Pricing(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.calls != 1 {
		t.Errorf("gateway calls = %d, want 1", gw.calls)
	}
	if p.Premium.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("premium = %s, want 1000", p.Premium)
	}
}

func TestPricingCacheFailureFallsThroughToGateway(t *testing.T) {
	gw := &flakyPricing{MockGateway: ledger.NewMockGateway(testChainID)}
	cache := &memPricingCache{getErr: errors.New("redis down")}
	reader := NewPricingReader(gw, cache, time.Minute)

	p, err := reader.Pricing(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.calls != 1 {
		t.Errorf("gateway calls = %d, want 1", gw.calls)
	}
	if p.MaxPayoutDays != 60 {
		t.Errorf("max payout days = %d, want 60", p.MaxPayoutDays)
	}
}

func TestDisplayEstimateRatios(t *testing.T) {
	cases := []struct {
		value       int64
		wantPremium int64
		wantDaily   int64
	}{
		{10000, 200, 100},
		{50000, 1000, 500},
		{1, 0, 0}, // floors to zero below the basis-point granularity
		{999, 19, 9},
	}
	for _, tc := range cases {
		premium, daily := DisplayEstimate(big.NewInt(tc.value))
		if premium.Cmp(big.NewInt(tc.wantPremium)) != 0 {
			t.Errorf("value %d: premium = %s, want %d", tc.value, premium, tc.wantPremium)
		}
		if daily.Cmp(big.NewInt(tc.wantDaily)) != 0 {
			t.Errorf("value %d: daily payout = %s, want %d", tc.value, daily, tc.wantDaily)
		}
	}
}
