package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/big"
	"slices"
	"time"

	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/platform/obs"
	"cargo-insurance-service/internal/ports"
)

// PolicyRepository loads an owner's policies from the ledger and normalizes
// the raw tuples into typed views. Every read recomputes claimable days at
// the ledger; nothing is cached across a write.
type PolicyRepository struct {
	gateway   ports.LedgerGateway
	snapshots ports.SnapshotStore // optional, degraded-read annotation only
	now       func() int64
}

func NewPolicyRepository(gateway ports.LedgerGateway, snapshots ports.SnapshotStore) *PolicyRepository {
	return &PolicyRepository{
		gateway:   gateway,
		snapshots: snapshots,
		now:       func() int64 { return time.Now().Unix() },
	}
}

// ListPolicies fetches the owner's policy set. A single unreadable policy
// does not fail the call: surviving policies are returned together with a
// PartialReadError naming the ids that failed. Ordering contract: active
// policies first, then descending policy id, stable for equal keys.
func (r *PolicyRepository) ListPolicies(ctx context.Context, owner domain.Address) (_ []domain.PolicyView, err error) {
	defer obs.Time(ctx, "policies.List")(&err)

	ids, err := r.gateway.PoliciesByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list policies for %s: %w", owner, err)
	}

	views := make([]domain.PolicyView, 0, len(ids))
	var failed []uint64
	for _, id := range ids {
		v, err := r.load(ctx, id)
		if err != nil {
			log.Printf("policy read failed: id=%d err=%v", id, err)
			failed = append(failed, id)
			continue
		}
		views = append(views, v)
	}

	if r.snapshots != nil && len(views) > 0 {
		if err := r.snapshots.PutMany(ctx, views); err != nil {
			log.Printf("snapshot write failed: %v", err)
		}
	}

	if len(failed) > 0 && r.snapshots != nil {
		snaps, err := r.snapshots.GetMany(ctx, failed)
		if err != nil {
			log.Printf("snapshot read failed: %v", err)
		} else {
			for _, id := range failed {
				if snap, ok := snaps[id]; ok {
					snap.Stale = true
					views = append(views, snap)
				}
			}
		}
	}

	sortPolicyViews(views)

	if len(failed) > 0 {
		return views, &domain.PartialReadError{FailedIDs: failed}
	}
	return views, nil
}

// GetPolicy re-reads a single policy, raw tuple plus ledger-computed
// claimable days. Used after confirmed writes to refresh client state.
func (r *PolicyRepository) GetPolicy(ctx context.Context, id uint64) (domain.PolicyView, error) {
	return r.load(ctx, id)
}

func (r *PolicyRepository) load(ctx context.Context, id uint64) (domain.PolicyView, error) {
	raw, err := r.gateway.ReadPolicy(ctx, id)
	if err != nil {
		return domain.PolicyView{}, fmt.Errorf("read policy %d: %w", id, err)
	}

	claimable, err := r.gateway.ReadClaimableDays(ctx, id)
	if err != nil {
		return domain.PolicyView{}, fmt.Errorf("read claimable days for policy %d: %w", id, err)
	}

	policy := normalizeRawPolicy(id, raw)

	// The ledger's claimable value is shown as-is; a contradiction with the
	// settled local derivation is warned about, never silently corrected.
	pricingMax := maxDaysUpperBound(claimable, policy.ClaimedDays)
	if err := CheckClaimableConsistency(policy, claimable, r.now(), pricingMax); err != nil {
		log.Printf("ledger state warning: %v", err)
	}

	return domain.PolicyView{Policy: policy, ClaimableDays: claimable}, nil
}

// maxDaysUpperBound gives a safe cap for the consistency check when pricing
// has not been read on this path: any value at least claimed+claimable works
// because the check only fires when the local derivation is already zero.
// Saturates instead of wrapping on adversarial ledger values.
func maxDaysUpperBound(claimable, claimed uint32) uint32 {
	sum := uint64(claimable) + uint64(claimed)
	if sum > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(sum)
}

func normalizeRawPolicy(id uint64, raw ports.RawPolicy) domain.Policy {
	p := domain.Policy{
		PolicyID:    id,
		Insured:     raw.Insured,
		ContainerID: raw.ContainerID,
	}
	if raw.ExpectedArrival != nil {
		p.ExpectedArrival = raw.ExpectedArrival.Int64()
	}
	if raw.ActualArrival != nil {
		p.ActualArrival = raw.ActualArrival.Int64()
	}
	// Counters come back as uint256 words; saturate rather than silently
	// truncate if the ledger ever reports something out of range.
	if raw.ClaimedDays != nil {
		p.ClaimedDays = clampUint32(raw.ClaimedDays)
	}
	if raw.Status != nil {
		if raw.Status.IsUint64() && raw.Status.Uint64() <= math.MaxUint8 {
			p.StatusCode = uint8(raw.Status.Uint64())
		} else {
			p.StatusCode = math.MaxUint8
		}
	}
	return p
}

func clampUint32(v *big.Int) uint32 {
	if !v.IsUint64() || v.Uint64() > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v.Uint64())
}

// Active policies first, then most recent first. The UI relies on this
// ordering; the sort is stable for equal keys.
func sortPolicyViews(views []domain.PolicyView) {
	slices.SortStableFunc(views, func(a, b domain.PolicyView) int {
		if a.Active() != b.Active() {
			if a.Active() {
				return -1
			}
			return 1
		}
		if a.PolicyID > b.PolicyID {
			return -1
		}
		if a.PolicyID < b.PolicyID {
			return 1
		}
		return 0
	})
}
