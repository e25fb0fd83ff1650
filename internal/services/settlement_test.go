package services

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"cargo-insurance-service/internal/domain"
)

func TestDeriveStatusIsTotal(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()

	cases := []struct {
		name   string
		policy domain.Policy
		want   domain.ShipmentStatus
	}{
		{
			name:   "future arrival, not flagged",
			policy: domain.Policy{StatusCode: domain.StatusActive, ExpectedArrival: now + 5*secondsPerDay},
			want:   domain.ShipmentOnTime,
		},
		{
			name:   "flagged delayed by ledger",
			policy: domain.Policy{StatusCode: domain.StatusDelayed, ExpectedArrival: now + secondsPerDay},
			want:   domain.ShipmentDelayed,
		},
		{
			name:   "past arrival without ledger flag",
			policy: domain.Policy{StatusCode: domain.StatusActive, ExpectedArrival: now - secondsPerDay},
			want:   domain.ShipmentDelayed,
		},
		{
			name:   "delivered wins over delay flag",
			policy: domain.Policy{StatusCode: domain.StatusDelivered, ExpectedArrival: now - 10*secondsPerDay},
			want:   domain.ShipmentDelivered,
		},
		{
			name:   "inactive policy past arrival",
			policy: domain.Policy{StatusCode: domain.StatusInactive, ExpectedArrival: now - secondsPerDay},
			want:   domain.ShipmentDelayed,
		},
	}

	for _, tc := range cases {
		got := DeriveStatus(tc.policy, now)
		if got != tc.want {
			t.Errorf("%s: status = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestClaimableDaysTenDayDelay(t *testing.T) {
	// Ten days past expected arrival, nothing claimed yet.
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	p := domain.Policy{
		PolicyID:        1,
		StatusCode:      domain.StatusDelayed,
		ExpectedArrival: now - 10*secondsPerDay,
		ClaimedDays:     0,
	}
	pricing := domain.PricingParameters{
		PayoutPerDay:  big.NewInt(100),
		MaxPayoutDays: 60,
	}

	if got := ClaimableDays(p, now, pricing.MaxPayoutDays); got != 10 {
		t.Fatalf("ClaimableDays = %d, want 10", got)
	}

	payout := EstimatedPayout(p, now, pricing)
	if payout.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("EstimatedPayout = %s, want 1000", payout)
	}
}

func TestClaimableDaysSubtractsAlreadyClaimed(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	p := domain.Policy{
		PolicyID:        2,
		StatusCode:      domain.StatusDelayed,
		ExpectedArrival: now - 10*secondsPerDay,
		ClaimedDays:     7,
	}

	if got := ClaimableDays(p, now, 60); got != 3 {
		t.Fatalf("ClaimableDays = %d, want 3", got)
	}
}

func TestClaimableDaysDeliveredAndSettled(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	expected := now - 30*secondsPerDay
	p := domain.Policy{
		PolicyID:        3,
		StatusCode:      domain.StatusDelivered,
		ExpectedArrival: expected,
		ActualArrival:   expected + 10*secondsPerDay,
		ClaimedDays:     10,
	}

	if got := DeriveStatus(p, now); got != domain.ShipmentDelivered {
		t.Fatalf("status = %v, want delivered", got)
	}
	if got := ClaimableDays(p, now, 60); got != 0 {
		t.Fatalf("ClaimableDays = %d, want 0 for a settled policy", got)
	}
}

func TestClaimableDaysNeverExceedsBounds(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix()

	policies := []domain.Policy{
		{StatusCode: domain.StatusDelayed, ExpectedArrival: now - 200*secondsPerDay, ClaimedDays: 0},
		{StatusCode: domain.StatusDelayed, ExpectedArrival: now - 200*secondsPerDay, ClaimedDays: 45},
		{StatusCode: domain.StatusDelayed, ExpectedArrival: now - 3*secondsPerDay, ClaimedDays: 0},
		{StatusCode: domain.StatusActive, ExpectedArrival: now + 3*secondsPerDay, ClaimedDays: 0},
		{StatusCode: domain.StatusDelivered, ExpectedArrival: now - 20*secondsPerDay, ActualArrival: now - 5*secondsPerDay, ClaimedDays: 0},
	}

	const maxDays = 60
	for i, p := range policies {
		got := ClaimableDays(p, now, maxDays)
		if got > maxDays-p.ClaimedDays {
			t.Errorf("policy %d: claimable %d exceeds max %d minus claimed %d", i, got, maxDays, p.ClaimedDays)
		}
	}
}

func TestClaimableDaysFutureArrivalIsZero(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	p := domain.Policy{
		StatusCode:      domain.StatusActive,
		ExpectedArrival: now + 4*secondsPerDay,
	}

	if got := DeriveStatus(p, now); got != domain.ShipmentOnTime {
		t.Fatalf("status = %v, want on_time", got)
	}
	if got := ClaimableDays(p, now, 60); got != 0 {
		t.Fatalf("ClaimableDays = %d, want 0", got)
	}
}

func TestDaysDelayedUsesFloorDivision(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	// 9 days and 23 hours late must count as 9 days, not 10.
	p := domain.Policy{
		StatusCode:      domain.StatusDelayed,
		ExpectedArrival: now - (9*secondsPerDay + 23*3600),
	}

	if got := DaysDelayed(p, now); got != 9 {
		t.Fatalf("DaysDelayed = %d, want 9 (floor)", got)
	}
}

func TestCheckClaimableConsistency(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	expected := now - 30*secondsPerDay
	settled := domain.Policy{
		PolicyID:        7,
		StatusCode:      domain.StatusDelivered,
		ExpectedArrival: expected,
		ActualArrival:   expected + 10*secondsPerDay,
		ClaimedDays:     10,
	}

	if err := CheckClaimableConsistency(settled, 0, now, 60); err != nil {
		t.Fatalf("consistent settled policy flagged: %v", err)
	}

	err := CheckClaimableConsistency(settled, 4, now, 60)
	if !errors.Is(err, domain.ErrInconsistentState) {
		t.Fatalf("err = %v, want ErrInconsistentState", err)
	}

	// A delivered policy with residual unclaimed days is legitimate.
	residual := settled
	residual.ClaimedDays = 7
	if err := CheckClaimableConsistency(residual, 3, now, 60); err != nil {
		t.Fatalf("residual claimable flagged: %v", err)
	}
}
