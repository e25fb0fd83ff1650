package services

import (
	"fmt"
	"math/big"

	"cargo-insurance-service/internal/domain"
)

const secondsPerDay = 86400

// Pure settlement math over a Policy and a point in time. Mirrors the
// contract's own computation (floor division, cap at max payout days) so the
// displayed numbers line up with what the ledger will actually pay. The
// client values remain advisory: the submitted claim lets the ledger compute
// the authoritative payout.

// DeriveStatus returns the delivery state of a policy at the given time.
// Total: exactly one of on_time, delayed, delivered for any valid policy.
func DeriveStatus(p domain.Policy, now int64) domain.ShipmentStatus {
	if p.Delivered() {
		return domain.ShipmentDelivered
	}
	if p.Delayed() || now > p.ExpectedArrival {
		return domain.ShipmentDelayed
	}
	return domain.ShipmentOnTime
}

// DaysDelayed counts whole days past the expected arrival, clamped at zero.
// For delivered policies the recorded arrival is the reference instant,
// otherwise the supplied current time.
func DaysDelayed(p domain.Policy, now int64) uint32 {
	ref := now
	if p.Delivered() && p.ActualArrival > 0 {
		ref = p.ActualArrival
	}
	if ref <= p.ExpectedArrival {
		return 0
	}
	return uint32((ref - p.ExpectedArrival) / secondsPerDay)
}

// ClaimableDays is min(daysDelayed, maxPayoutDays) minus days already
// compensated, floored at zero.
func ClaimableDays(p domain.Policy, now int64, maxPayoutDays uint32) uint32 {
	days := DaysDelayed(p, now)
	if days > maxPayoutDays {
		days = maxPayoutDays
	}
	if days <= p.ClaimedDays {
		return 0
	}
	return days - p.ClaimedDays
}

// EstimatedPayout is the display-only compensation estimate:
// claimable days times the per-day payout.
func EstimatedPayout(p domain.Policy, now int64, pricing domain.PricingParameters) *big.Int {
	days := ClaimableDays(p, now, pricing.MaxPayoutDays)
	if days == 0 || pricing.PayoutPerDay == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(big.NewInt(int64(days)), pricing.PayoutPerDay)
}

// CheckClaimableConsistency compares the ledger-reported claimable-days
// value against the local derivation for settled policies. A delivered
// policy with compensation already paid and nothing left by local math must
// not be reported claimable again by the ledger; if it is, the state is
// surfaced as inconsistent rather than silently claimed.
func CheckClaimableConsistency(p domain.Policy, ledgerClaimable uint32, now int64, maxPayoutDays uint32) error {
	if !p.Delivered() || p.ClaimedDays == 0 {
		return nil
	}
	if ClaimableDays(p, now, maxPayoutDays) == 0 && ledgerClaimable > 0 {
		return fmt.Errorf(
			"policy %d: delivered and settled, but ledger reports %d claimable days: %w",
			p.PolicyID, ledgerClaimable, domain.ErrInconsistentState,
		)
	}
	return nil
}
