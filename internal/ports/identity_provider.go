package ports

import (
	"context"

	"cargo-insurance-service/internal/domain"
)

// Display identity resolved for an address.
type Identity struct {
	Name   string
	Avatar string
}

// Port: name/avatar resolution for an address. The core never depends on
// the resolved identity; it is presentation data only.
type IdentityProvider interface {
	Resolve(ctx context.Context, addr domain.Address) (Identity, error)
}
