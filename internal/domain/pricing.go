package domain

import "math/big"

// Static policy economics read from the insurance contract. Immutable for
// the lifetime of a deployment; safe to cache briefly, but the cached value
// is never used for the authoritative amount transferred on-chain.
type PricingParameters struct {
	Premium       *big.Int // token base units charged per policy
	PayoutPerDay  *big.Int // token base units compensated per delayed day
	MaxPayoutDays uint32
}

// Clone returns a deep copy so callers cannot alias the big.Int fields.
func (p PricingParameters) Clone() PricingParameters {
	out := PricingParameters{MaxPayoutDays: p.MaxPayoutDays}
	if p.Premium != nil {
		out.Premium = new(big.Int).Set(p.Premium)
	}
	if p.PayoutPerDay != nil {
		out.PayoutPerDay = new(big.Int).Set(p.PayoutPerDay)
	}
	return out
}
