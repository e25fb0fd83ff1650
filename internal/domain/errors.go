package domain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Failure taxonomy for ledger interaction. RPC and wallet errors are mapped
// into these exactly once, at the gateway boundary; call sites branch with
// errors.Is/As and never inspect message text.
var (
	// Signer rejected the request. A normal outcome, not retried.
	ErrUserCancelled = errors.New("user cancelled")

	// Network switch rejected or chain unsupported. Fatal to the attempt.
	ErrWrongNetwork = errors.New("wrong network")

	// Transient read failure at the ledger boundary. Safe to retry.
	ErrGatewayUnavailable = errors.New("ledger gateway unavailable")

	// Ledger rejected a claim (nothing to claim). Surfaced verbatim.
	ErrNotEligible = errors.New("not eligible for claim")

	// Ledger reported state that violates its own invariants. Surfaced as
	// a warning, never silently corrected.
	ErrInconsistentState = errors.New("inconsistent ledger state")

	// Another attempt for the same signer is still in flight.
	ErrAttemptInFlight = errors.New("transaction attempt already in flight")

	// Confirmation wait expired; the transaction may still be included.
	ErrConfirmationPending = errors.New("confirmation still pending")

	// Transaction was included but reverted by the contract.
	ErrExecutionReverted = errors.New("transaction reverted")
)

// InsufficientFundsError is raised by the pre-flight balance check, before
// the wallet is prompted. Required and Available name the shortfall.
type InsufficientFundsError struct {
	Asset     string // "native" or the token symbol
	Required  *big.Int
	Available *big.Int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient %s funds: required %s, available %s",
		e.Asset, e.Required, e.Available)
}

// Shortfall returns required minus available, floored at zero.
func (e *InsufficientFundsError) Shortfall() *big.Int {
	d := new(big.Int).Sub(e.Required, e.Available)
	if d.Sign() < 0 {
		return big.NewInt(0)
	}
	return d
}

// PartialReadError reports policy ids that could not be read while the rest
// of the listing succeeded. Callers degrade gracefully and show what loaded.
type PartialReadError struct {
	FailedIDs []uint64
}

func (e *PartialReadError) Error() string {
	ids := make([]string, 0, len(e.FailedIDs))
	for _, id := range e.FailedIDs {
		ids = append(ids, fmt.Sprintf("%d", id))
	}
	return "partial policy read: failed ids " + strings.Join(ids, ", ")
}
