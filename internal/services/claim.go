package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/platform/obs"
	"cargo-insurance-service/internal/ports"
)

// ClaimResult carries the claim attempt and, after a confirmed claim, the
// freshly re-read policy. Policy is nil when the claim did not confirm or
// the follow-up read failed.
type ClaimResult struct {
	Attempt domain.TransactionAttempt
	Policy  *domain.PolicyView
}

// ClaimCoordinator orchestrates claim submission for one policy. Ownership
// is cross-checked against the ledger record, not local selection state, and
// after confirmation the policy is re-read from the ledger: claimed days
// are never decremented locally.
type ClaimCoordinator struct {
	gateway   ports.LedgerGateway
	repo      *PolicyRepository
	submitter *TransactionSubmitter
	now       func() int64
}

func NewClaimCoordinator(gateway ports.LedgerGateway, repo *PolicyRepository, submitter *TransactionSubmitter) *ClaimCoordinator {
	return &ClaimCoordinator{
		gateway:   gateway,
		repo:      repo,
		submitter: submitter,
		now:       func() int64 { return time.Now().Unix() },
	}
}

// SubmitClaim files a claim for the given policy. On-time policies are
// pre-blocked; a delayed policy with zero claimable days is still submitted,
// because the ledger is the final arbiter of eligibility and a stale local
// read must not wrongly deny a claim. A ledger rejection surfaces as
// NotEligible.
func (c *ClaimCoordinator) SubmitClaim(
	ctx context.Context,
	signer domain.SignerContext,
	policyID uint64,
	onUpdate AttemptUpdate,
) (_ ClaimResult, err error) {
	defer obs.Time(ctx, "claim.SubmitClaim")(&err)

	if !signer.Connected() {
		return ClaimResult{}, errors.New("claim: signer is not connected")
	}

	view, err := c.repo.GetPolicy(ctx, policyID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim: %w", err)
	}
	if view.Insured != signer.Address {
		return ClaimResult{}, fmt.Errorf("claim: policy %d does not belong to %s", policyID, signer.Address)
	}
	if DeriveStatus(view.Policy, c.now()) == domain.ShipmentOnTime {
		return ClaimResult{}, fmt.Errorf("claim: policy %d is not delayed: %w", policyID, domain.ErrNotEligible)
	}

	call := c.gateway.NewClaimCall(signer.Address, policyID)
	attempt, err := c.submitter.Submit(ctx, signer, domain.AttemptClaim, call, onUpdate)
	if err != nil {
		if errors.Is(err, domain.ErrExecutionReverted) {
			return ClaimResult{Attempt: attempt}, fmt.Errorf("claim: policy %d: %w", policyID, domain.ErrNotEligible)
		}
		return ClaimResult{Attempt: attempt}, fmt.Errorf("claim: %w", err)
	}

	fresh, err := c.repo.GetPolicy(ctx, policyID)
	if err != nil {
		// The claim is confirmed; a failed follow-up read degrades to a
		// result without the refreshed view rather than failing the claim.
		log.Printf("post-claim policy re-read failed: id=%d err=%v", policyID, err)
		return ClaimResult{Attempt: attempt}, nil
	}

	return ClaimResult{Attempt: attempt, Policy: &fresh}, nil
}
