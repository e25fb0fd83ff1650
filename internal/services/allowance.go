package services

import (
	"context"
	"fmt"
	"math/big"

	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/ports"
)

// AllowanceAuthorizer performs the approve phase of the two-phase purchase
// protocol: the insurance contract must hold spending allowance over the
// buyer's tokens before the premium can be pulled.
type AllowanceAuthorizer struct {
	gateway   ports.LedgerGateway
	submitter *TransactionSubmitter
	insurance domain.Address // spender granted the allowance
}

func NewAllowanceAuthorizer(gateway ports.LedgerGateway, submitter *TransactionSubmitter, insurance domain.Address) *AllowanceAuthorizer {
	return &AllowanceAuthorizer{gateway: gateway, submitter: submitter, insurance: insurance}
}

// EnsureAllowance checks the current allowance and, only when short, submits
// an approval for exactly the required amount (never unlimited) and blocks
// until it confirms. Returns nil when no approval was needed, making a
// re-run after a failed buy skip straight to the buy again.
func (a *AllowanceAuthorizer) EnsureAllowance(
	ctx context.Context,
	signer domain.SignerContext,
	amount *big.Int,
	onUpdate AttemptUpdate,
) (*domain.TransactionAttempt, error) {
	current, err := a.gateway.TokenAllowance(ctx, signer.Address, a.insurance)
	if err != nil {
		return nil, fmt.Errorf("read allowance for %s: %w", signer.Address, err)
	}
	if current.Cmp(amount) >= 0 {
		return nil, nil
	}

	call := a.gateway.NewApproveCall(signer.Address, amount)
	attempt, err := a.submitter.Submit(ctx, signer, domain.AttemptApprove, call, onUpdate)
	if err != nil {
		return &attempt, fmt.Errorf("approve premium: %w", err)
	}
	return &attempt, nil
}
