package ports

import (
	"context"
	"math/big"

	"cargo-insurance-service/internal/domain"
)

// RawPolicy is the tuple shape returned by the insurance contract's policy
// getter, before normalization into a domain.Policy.
type RawPolicy struct {
	Insured         domain.Address
	ContainerID     string
	ExpectedArrival *big.Int
	ActualArrival   *big.Int
	ClaimedDays     *big.Int
	Status          *big.Int
}

// ChainCall describes one contract invocation to estimate or submit.
type ChainCall struct {
	ChainID uint64
	From    domain.Address
	To      domain.Address
	Data    []byte // ABI-encoded calldata
	// TokenCost is the token amount the call will pull via transferFrom,
	// checked against the signer's token balance before the wallet is
	// prompted. Nil for calls that move no tokens.
	TokenCost *big.Int
}

// GasParams carries the fee settings attached to a submission.
type GasParams struct {
	GasLimit uint64
	FeeCap   *big.Int // max fee per gas
	Tip      *big.Int // priority fee per gas
}

// Receipt is the inclusion result reported by the network.
type Receipt struct {
	Hash    string
	Success bool
}

// Port: read/write access to the insurance contract and its payment token.
// Implementations map transport and wallet errors into the domain taxonomy
// at this boundary; callers never inspect provider-specific error text.
type LedgerGateway interface {
	ReadPolicy(ctx context.Context, id uint64) (RawPolicy, error)
	ReadClaimableDays(ctx context.Context, id uint64) (uint32, error)
	ReadPricing(ctx context.Context) (domain.PricingParameters, error)
	PoliciesByOwner(ctx context.Context, owner domain.Address) ([]uint64, error)

	EstimateGas(ctx context.Context, call ChainCall) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	Balance(ctx context.Context, addr domain.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, addr domain.Address) (*big.Int, error)
	TokenAllowance(ctx context.Context, owner, spender domain.Address) (*big.Int, error)

	SubmitTransaction(ctx context.Context, call ChainCall, gas GasParams) (string, error)
	WaitForReceipt(ctx context.Context, hash string) (Receipt, error)
	SwitchNetwork(ctx context.Context, chainID uint64) error

	// Call builders. The gateway owns contract addresses and calldata
	// encoding; coordinators stay transport-agnostic.
	NewApproveCall(from domain.Address, amount *big.Int) ChainCall
	NewBuyPolicyCall(from domain.Address, containerID string, expectedArrival int64) ChainCall
	NewClaimCall(from domain.Address, policyID uint64) ChainCall
}
