package services

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"cargo-insurance-service/internal/adapters/ledger"
	"cargo-insurance-service/internal/domain"
)

func newPurchaseCoordinator(gw *ledger.MockGateway) *PolicyPurchaseCoordinator {
	sub := NewTransactionSubmitter(gw, DefaultGasPolicy())
	pricing := NewPricingReader(gw, nil, 0)
	auth := NewAllowanceAuthorizer(gw, sub, gw.Insurance)
	return NewPolicyPurchaseCoordinator(gw, pricing, auth, sub)
}

func validQuote() Quote {
	return Quote{
		ContainerID:      "MSCU6639871",
		MerchandiseValue: big.NewInt(50_000),
		ExpectedArrival:  time.Now().Unix() + 14*86400,
		AcceptedTerms:    true,
	}
}

func TestPurchaseApproveThenBuy(t *testing.T) {
	gw := fundedMock(t)
	coord := newPurchaseCoordinator(gw)

	result, err := coord.Purchase(context.Background(), testSigner, validQuote(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Approval == nil {
		t.Fatal("approval attempt missing; allowance was zero")
	}
	if result.Approval.Status != domain.AttemptConfirmed {
		t.Errorf("approval status = %v, want confirmed", result.Approval.Status)
	}
	if result.Buy.Status != domain.AttemptConfirmed {
		t.Errorf("buy status = %v, want confirmed", result.Buy.Status)
	}
	if gw.SubmitCalls != 2 {
		t.Errorf("submit calls = %d, want 2 (approve + buy)", gw.SubmitCalls)
	}

	// Policy exists on the ledger with the quote's container.
	ids, err := gw.PoliciesByOwner(context.Background(), testSigner.Address)
	if err != nil {
		t.Fatalf("policies by owner: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("policies = %d, want 1", len(ids))
	}
	stored := gw.Policies[ids[0]]
	if stored.ContainerID != "MSCU6639871" {
		t.Errorf("container = %q, want MSCU6639871", stored.ContainerID)
	}
	if stored.Status != domain.StatusActive {
		t.Errorf("status = %d, want active", stored.Status)
	}

	// Premium was pulled and the exact-amount approval fully consumed.
	balance, _ := gw.TokenBalance(context.Background(), testSigner.Address)
	if balance.Cmp(big.NewInt(999_000)) != 0 {
		t.Errorf("token balance = %s, want 999000", balance)
	}
	allowance, _ := gw.TokenAllowance(context.Background(), testSigner.Address, gw.Insurance)
	if allowance.Sign() != 0 {
		t.Errorf("residual allowance = %s, want 0", allowance)
	}
}

func TestPurchaseSkipsApproveWhenAllowanceCovers(t *testing.T) {
	gw := fundedMock(t)
	gw.SetAllowance(testSigner.Address, big.NewInt(1000))
	coord := newPurchaseCoordinator(gw)

	result, err := coord.Purchase(context.Background(), testSigner, validQuote(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Approval != nil {
		t.Errorf("approval attempt = %v, want nil when allowance already covers", result.Approval)
	}
	if gw.SubmitCalls != 1 {
		t.Errorf("submit calls = %d, want 1 (buy only)", gw.SubmitCalls)
	}
}

func TestPurchasePreconditionsBlockBeforeAnyChainCall(t *testing.T) {
	cases := []struct {
		name   string
		signer domain.SignerContext
		mutate func(*Quote)
	}{
		{"terms not accepted", testSigner, func(q *Quote) { q.AcceptedTerms = false }},
		{"disconnected signer", domain.SignerContext{}, func(q *Quote) {}},
		{"zero address", domain.SignerContext{Address: domain.ZeroAddress, ChainID: testChainID}, func(q *Quote) {}},
		{"zero merchandise value", testSigner, func(q *Quote) { q.MerchandiseValue = big.NewInt(0) }},
		{"nil merchandise value", testSigner, func(q *Quote) { q.MerchandiseValue = nil }},
		{"empty container", testSigner, func(q *Quote) { q.ContainerID = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := fundedMock(t)
			coord := newPurchaseCoordinator(gw)

			quote := validQuote()
			tc.mutate(&quote)

			_, err := coord.Purchase(context.Background(), tc.signer, quote, nil)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if gw.EstimateCalls != 0 || gw.SubmitCalls != 0 {
				t.Errorf("chain calls made: estimates=%d submits=%d, want none", gw.EstimateCalls, gw.SubmitCalls)
			}
		})
	}
}

func TestPurchaseRetryAfterFailedBuySkipsApprove(t *testing.T) {
	gw := fundedMock(t)
	coord := newPurchaseCoordinator(gw)

	// First run: arrival in the past, so the approve confirms but the buy
	// reverts on the ledger.
	quote := validQuote()
	quote.ExpectedArrival = time.Now().Unix() - 3600

	result, err := coord.Purchase(context.Background(), testSigner, quote, nil)
	if !errors.Is(err, domain.ErrExecutionReverted) {
		t.Fatalf("err = %v, want ErrExecutionReverted", err)
	}
	if result.Approval == nil || result.Approval.Status != domain.AttemptConfirmed {
		t.Fatal("approval should have confirmed before the failed buy")
	}
	if gw.SubmitCalls != 2 {
		t.Fatalf("submit calls = %d, want 2", gw.SubmitCalls)
	}

	// Second run with a valid arrival: the confirmed allowance survives, so
	// only the buy is submitted.
	result, err = coord.Purchase(context.Background(), testSigner, validQuote(), nil)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if result.Approval != nil {
		t.Error("retry re-submitted an approval despite a live allowance")
	}
	if gw.SubmitCalls != 3 {
		t.Errorf("submit calls = %d, want 3 total", gw.SubmitCalls)
	}
}

func TestPurchaseInsufficientTokenBalance(t *testing.T) {
	gw := ledger.NewMockGateway(testChainID)
	gw.SetNativeBalance(testSigner.Address, big.NewInt(1_000_000_000_000))
	gw.SetTokenBalance(testSigner.Address, big.NewInt(10)) // premium is 1000
	coord := newPurchaseCoordinator(gw)

	_, err := coord.Purchase(context.Background(), testSigner, validQuote(), nil)

	var ife *domain.InsufficientFundsError
	if !errors.As(err, &ife) {
		t.Fatalf("err = %v, want InsufficientFundsError", err)
	}
	if ife.Asset != "token" {
		t.Errorf("asset = %q, want token", ife.Asset)
	}
}
