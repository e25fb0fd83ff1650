package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/platform/obs"
	"cargo-insurance-service/internal/ports"
)

// Quote is a user purchase intent after reviewing terms.
type Quote struct {
	ContainerID      string
	MerchandiseValue *big.Int
	ExpectedArrival  int64 // unix seconds
	AcceptedTerms    bool
}

// PurchaseResult surfaces both transaction identifiers: the approval attempt
// is nil when the existing allowance already covered the premium.
type PurchaseResult struct {
	Approval *domain.TransactionAttempt
	Buy      domain.TransactionAttempt
}

// PolicyPurchaseCoordinator orchestrates quote -> allowance check ->
// approve (if needed) -> buy. The two phases are strictly serialized: buy is
// never attempted without a confirmed allowance.
type PolicyPurchaseCoordinator struct {
	gateway    ports.LedgerGateway
	pricing    *PricingReader
	authorizer *AllowanceAuthorizer
	submitter  *TransactionSubmitter
}

func NewPolicyPurchaseCoordinator(
	gateway ports.LedgerGateway,
	pricing *PricingReader,
	authorizer *AllowanceAuthorizer,
	submitter *TransactionSubmitter,
) *PolicyPurchaseCoordinator {
	return &PolicyPurchaseCoordinator{
		gateway:    gateway,
		pricing:    pricing,
		authorizer: authorizer,
		submitter:  submitter,
	}
}

// Purchase validates the quote, then runs the two-phase protocol. All
// preconditions are checked before any chain call: a zero buyer address or
// an unaccepted terms box never reaches estimation.
func (c *PolicyPurchaseCoordinator) Purchase(
	ctx context.Context,
	signer domain.SignerContext,
	quote Quote,
	onUpdate AttemptUpdate,
) (_ PurchaseResult, err error) {
	defer obs.Time(ctx, "purchase.Purchase")(&err)

	if !quote.AcceptedTerms {
		return PurchaseResult{}, errors.New("purchase: terms must be accepted")
	}
	if !signer.Connected() {
		return PurchaseResult{}, errors.New("purchase: signer is not connected")
	}
	if signer.Address.IsZero() {
		return PurchaseResult{}, errors.New("purchase: buyer address is the zero address")
	}
	if quote.MerchandiseValue == nil || quote.MerchandiseValue.Sign() <= 0 {
		return PurchaseResult{}, errors.New("purchase: merchandise value must be positive")
	}
	if quote.ContainerID == "" {
		return PurchaseResult{}, errors.New("purchase: container id must be non-empty")
	}

	// The premium actually charged is the contract's, read fresh; the
	// locally derived display estimate is never trusted here.
	pricing, err := c.pricing.Pricing(ctx)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("purchase: %w", err)
	}

	approval, err := c.authorizer.EnsureAllowance(ctx, signer, pricing.Premium, onUpdate)
	if err != nil {
		return PurchaseResult{Approval: approval}, fmt.Errorf("purchase: %w", err)
	}

	call := c.gateway.NewBuyPolicyCall(signer.Address, quote.ContainerID, quote.ExpectedArrival)
	call.TokenCost = pricing.Premium

	buy, err := c.submitter.Submit(ctx, signer, domain.AttemptBuyPolicy, call, onUpdate)
	result := PurchaseResult{Approval: approval, Buy: buy}
	if err != nil {
		return result, fmt.Errorf("purchase: buy policy: %w", err)
	}
	return result, nil
}
