package ports

import (
	"context"
	"time"

	"cargo-insurance-service/internal/domain"
)

// Port: short-lived cache for contract pricing parameters. A miss is not an
// error; the second return value reports presence.
type PricingCache interface {
	Get(ctx context.Context) (domain.PricingParameters, bool, error)
	Put(ctx context.Context, p domain.PricingParameters, ttl time.Duration) error
}
