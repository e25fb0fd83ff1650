package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/platform/obs"
	"cargo-insurance-service/internal/ports"
)

// GasPolicy tunes estimation headroom and fee bidding. The margin absorbs
// state drift between estimation and inclusion; the fee settings bias for
// faster inclusion and are a policy choice, not a correctness requirement.
type GasPolicy struct {
	GasMarginPercent int           // added on top of the raw estimate
	FeeCapMultiplier int64         // max fee per gas, as a multiple of the base price
	TipPercent       int64         // priority fee, as a percentage of the base price
	ConfirmTimeout   time.Duration // bounded confirmation wait
}

func DefaultGasPolicy() GasPolicy {
	return GasPolicy{
		GasMarginPercent: 20,
		FeeCapMultiplier: 2,
		TipPercent:       10,
		ConfirmTimeout:   90 * time.Second,
	}
}

// AttemptUpdate observes state transitions of an attempt as they happen,
// so a caller can show the transaction hash before confirmation. May be nil.
type AttemptUpdate func(domain.TransactionAttempt)

// TransactionSubmitter runs the submit-through-confirm state machine for a
// single ledger mutation: Estimating -> AwaitingSignature -> Submitted ->
// Confirmed | Failed.
//
// Attempts are serialized per signer: wallet nonce assignment is sequential,
// so a second Submit for a signer with an attempt still in flight fails
// immediately with ErrAttemptInFlight instead of queueing. An attempt is
// never resubmitted; a retry is a fresh Submit with fresh estimation.
type TransactionSubmitter struct {
	gateway ports.LedgerGateway
	policy  GasPolicy

	mu       sync.Mutex
	inflight map[domain.Address]struct{}
}

func NewTransactionSubmitter(gateway ports.LedgerGateway, policy GasPolicy) *TransactionSubmitter {
	if policy.GasMarginPercent <= 0 {
		policy = DefaultGasPolicy()
	}
	return &TransactionSubmitter{
		gateway:  gateway,
		policy:   policy,
		inflight: make(map[domain.Address]struct{}),
	}
}

func (s *TransactionSubmitter) acquire(signer domain.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[signer]; busy {
		return false
	}
	s.inflight[signer] = struct{}{}
	return true
}

func (s *TransactionSubmitter) release(signer domain.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, signer)
}

// Submit drives one attempt through the full state machine and returns it in
// a terminal state, or in Submitted state together with
// ErrConfirmationPending when the bounded confirmation wait expires.
func (s *TransactionSubmitter) Submit(
	ctx context.Context,
	signer domain.SignerContext,
	kind domain.AttemptKind,
	call ports.ChainCall,
	onUpdate AttemptUpdate,
) (_ domain.TransactionAttempt, err error) {
	defer obs.Time(ctx, "submitter.Submit")(&err)

	if !s.acquire(signer.Address) {
		return domain.TransactionAttempt{}, fmt.Errorf(
			"submit %s for %s: %w", kind, signer.Address, domain.ErrAttemptInFlight,
		)
	}
	defer s.release(signer.Address)

	attempt := domain.TransactionAttempt{Kind: kind, Status: domain.AttemptEstimating}
	notify(onUpdate, attempt)

	// The target chain must be active before anything is estimated; a
	// rejected or unsupported switch is fatal and never retried here.
	if err := s.gateway.SwitchNetwork(ctx, call.ChainID); err != nil {
		return s.fail(attempt, onUpdate, fmt.Errorf("switch to chain %d: %w", call.ChainID, err))
	}

	estimate, err := s.gateway.EstimateGas(ctx, call)
	if err != nil {
		return s.fail(attempt, onUpdate, fmt.Errorf("estimate gas: %w", err))
	}
	gasLimit := estimate + estimate*uint64(s.policy.GasMarginPercent)/100

	basePrice, err := s.gateway.GasPrice(ctx)
	if err != nil {
		return s.fail(attempt, onUpdate, fmt.Errorf("read gas price: %w", err))
	}
	gas := ports.GasParams{
		GasLimit: gasLimit,
		FeeCap:   new(big.Int).Mul(basePrice, big.NewInt(s.policy.FeeCapMultiplier)),
		Tip:      new(big.Int).Div(new(big.Int).Mul(basePrice, big.NewInt(s.policy.TipPercent)), big.NewInt(100)),
	}

	// Balance pre-flight happens before the wallet is prompted, so a user
	// without funds is told the shortfall instead of signing a doomed call.
	if err := s.checkFunds(ctx, signer, call, gas); err != nil {
		return s.fail(attempt, onUpdate, err)
	}

	attempt.Status = domain.AttemptAwaitingSignature
	notify(onUpdate, attempt)

	hash, err := s.gateway.SubmitTransaction(ctx, call, gas)
	if err != nil {
		// Signer rejection is a normal outcome, not an error condition.
		if errors.Is(err, domain.ErrUserCancelled) {
			return s.fail(attempt, onUpdate, err)
		}
		return s.fail(attempt, onUpdate, fmt.Errorf("submit transaction: %w", err))
	}

	attempt.Hash = hash
	attempt.Status = domain.AttemptSubmitted
	notify(onUpdate, attempt)

	waitCtx := ctx
	if s.policy.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.policy.ConfirmTimeout)
		defer cancel()
	}

	receipt, err := s.gateway.WaitForReceipt(waitCtx, hash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Still Submitted: the transaction may yet be included. The
			// caller shows "still pending" and re-reads later.
			return attempt, fmt.Errorf("transaction %s: %w", hash, domain.ErrConfirmationPending)
		}
		return s.fail(attempt, onUpdate, fmt.Errorf("wait for receipt %s: %w", hash, err))
	}

	if !receipt.Success {
		return s.fail(attempt, onUpdate, fmt.Errorf("transaction %s: %w", hash, domain.ErrExecutionReverted))
	}

	attempt.Status = domain.AttemptConfirmed
	notify(onUpdate, attempt)
	return attempt, nil
}

// checkFunds verifies gas cost against the native balance and, for payment
// calls, the token cost against the token balance.
func (s *TransactionSubmitter) checkFunds(
	ctx context.Context,
	signer domain.SignerContext,
	call ports.ChainCall,
	gas ports.GasParams,
) error {
	native, err := s.gateway.Balance(ctx, signer.Address)
	if err != nil {
		return fmt.Errorf("read native balance: %w", err)
	}
	gasCost := new(big.Int).Mul(new(big.Int).SetUint64(gas.GasLimit), gas.FeeCap)
	if native.Cmp(gasCost) < 0 {
		return &domain.InsufficientFundsError{Asset: "native", Required: gasCost, Available: native}
	}

	if call.TokenCost != nil && call.TokenCost.Sign() > 0 {
		tokens, err := s.gateway.TokenBalance(ctx, signer.Address)
		if err != nil {
			return fmt.Errorf("read token balance: %w", err)
		}
		if tokens.Cmp(call.TokenCost) < 0 {
			return &domain.InsufficientFundsError{Asset: "token", Required: call.TokenCost, Available: tokens}
		}
	}
	return nil
}

func (s *TransactionSubmitter) fail(
	attempt domain.TransactionAttempt,
	onUpdate AttemptUpdate,
	err error,
) (domain.TransactionAttempt, error) {
	attempt.Status = domain.AttemptFailed
	attempt.Err = err
	notify(onUpdate, attempt)
	return attempt, err
}

func notify(onUpdate AttemptUpdate, attempt domain.TransactionAttempt) {
	if onUpdate != nil {
		onUpdate(attempt)
	}
}
