package ledger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/platform/obs"
	"cargo-insurance-service/internal/ports"
)

// RPCGateway implements the LedgerGateway port over an EIP-1193-shaped
// JSON-RPC endpoint: reads through eth_call, writes through
// eth_sendTransaction so signing stays with the wallet provider behind the
// endpoint. Safe for concurrent use.
type RPCGateway struct {
	client    *rpcClient
	chainID   uint64
	insurance domain.Address
	token     domain.Address

	receiptPollInterval time.Duration
}

func NewRPCGateway(rpcURL string, chainID uint64, insurance, token domain.Address) (*RPCGateway, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, errors.New("rpc url is empty")
	}
	if insurance.IsZero() || token.IsZero() {
		return nil, errors.New("insurance and token contract addresses are required")
	}
	return &RPCGateway{
		client:              newRPCClient(rpcURL),
		chainID:             chainID,
		insurance:           insurance,
		token:               token,
		receiptPollInterval: 2 * time.Second,
	}, nil
}

// --- reads ---

func (g *RPCGateway) ReadPolicy(ctx context.Context, id uint64) (_ ports.RawPolicy, err error) {
	defer obs.Time(ctx, "ledger.ReadPolicy")(&err)

	data := encodeCall(selGetPolicy, wordUint(new(big.Int).SetUint64(id)))
	out, err := g.ethCall(ctx, g.insurance, data)
	if err != nil {
		return ports.RawPolicy{}, err
	}
	return decodeRawPolicy(out)
}

func (g *RPCGateway) ReadClaimableDays(ctx context.Context, id uint64) (uint32, error) {
	data := encodeCall(selClaimableDays, wordUint(new(big.Int).SetUint64(id)))
	out, err := g.ethCall(ctx, g.insurance, data)
	if err != nil {
		return 0, err
	}
	v, err := decodeUint(out)
	if err != nil {
		return 0, err
	}
	return uint32(v.Uint64()), nil
}

func (g *RPCGateway) ReadPricing(ctx context.Context) (_ domain.PricingParameters, err error) {
	defer obs.Time(ctx, "ledger.ReadPricing")(&err)

	premium, err := g.readUint(ctx, g.insurance, selPremiumAmount)
	if err != nil {
		return domain.PricingParameters{}, err
	}
	perDay, err := g.readUint(ctx, g.insurance, selPayoutPerDay)
	if err != nil {
		return domain.PricingParameters{}, err
	}
	maxDays, err := g.readUint(ctx, g.insurance, selMaxPayoutDays)
	if err != nil {
		return domain.PricingParameters{}, err
	}
	return domain.PricingParameters{
		Premium:       premium,
		PayoutPerDay:  perDay,
		MaxPayoutDays: uint32(maxDays.Uint64()),
	}, nil
}

func (g *RPCGateway) PoliciesByOwner(ctx context.Context, owner domain.Address) ([]uint64, error) {
	addrWord, err := wordAddress(owner)
	if err != nil {
		return nil, err
	}
	out, err := g.ethCall(ctx, g.insurance, encodeCall(selPoliciesByOwner, addrWord))
	if err != nil {
		return nil, err
	}
	raw, err := decodeUintArray(out)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(raw))
	for _, v := range raw {
		ids = append(ids, v.Uint64())
	}
	return ids, nil
}

func (g *RPCGateway) EstimateGas(ctx context.Context, call ports.ChainCall) (uint64, error) {
	res, err := g.client.call(ctx, "eth_estimateGas", map[string]string{
		"from": call.From.String(),
		"to":   call.To.String(),
		"data": "0x" + hex.EncodeToString(call.Data),
	})
	if err != nil {
		return 0, mapRPCError(err)
	}
	v, err := decodeHexQuantity(res)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

func (g *RPCGateway) GasPrice(ctx context.Context) (*big.Int, error) {
	res, err := g.client.callWithRetry(ctx, "eth_gasPrice")
	if err != nil {
		return nil, mapRPCError(err)
	}
	return decodeHexQuantity(res)
}

func (g *RPCGateway) Balance(ctx context.Context, addr domain.Address) (*big.Int, error) {
	res, err := g.client.callWithRetry(ctx, "eth_getBalance", addr.String(), "latest")
	if err != nil {
		return nil, mapRPCError(err)
	}
	return decodeHexQuantity(res)
}

func (g *RPCGateway) TokenBalance(ctx context.Context, addr domain.Address) (*big.Int, error) {
	addrWord, err := wordAddress(addr)
	if err != nil {
		return nil, err
	}
	out, err := g.ethCall(ctx, g.token, encodeCall(selBalanceOf, addrWord))
	if err != nil {
		return nil, err
	}
	return decodeUint(out)
}

func (g *RPCGateway) TokenAllowance(ctx context.Context, owner, spender domain.Address) (*big.Int, error) {
	ownerWord, err := wordAddress(owner)
	if err != nil {
		return nil, err
	}
	spenderWord, err := wordAddress(spender)
	if err != nil {
		return nil, err
	}
	out, err := g.ethCall(ctx, g.token, encodeCall(selAllowance, ownerWord, spenderWord))
	if err != nil {
		return nil, err
	}
	return decodeUint(out)
}

// --- writes ---

func (g *RPCGateway) SubmitTransaction(ctx context.Context, call ports.ChainCall, gas ports.GasParams) (string, error) {
	res, err := g.client.call(ctx, "eth_sendTransaction", map[string]string{
		"from":                 call.From.String(),
		"to":                   call.To.String(),
		"data":                 "0x" + hex.EncodeToString(call.Data),
		"gas":                  hexQuantity(new(big.Int).SetUint64(gas.GasLimit)),
		"maxFeePerGas":         hexQuantity(gas.FeeCap),
		"maxPriorityFeePerGas": hexQuantity(gas.Tip),
	})
	if err != nil {
		return "", mapRPCError(err)
	}
	var hash string
	if err := json.Unmarshal(res, &hash); err != nil {
		return "", fmt.Errorf("decode transaction hash: %w", err)
	}
	return hash, nil
}

// WaitForReceipt polls until the network reports inclusion or the context
// expires. The caller bounds the wait.
func (g *RPCGateway) WaitForReceipt(ctx context.Context, hash string) (ports.Receipt, error) {
	ticker := time.NewTicker(g.receiptPollInterval)
	defer ticker.Stop()

	for {
		res, err := g.client.callWithRetry(ctx, "eth_getTransactionReceipt", hash)
		if err != nil {
			return ports.Receipt{}, mapRPCError(err)
		}
		if string(res) != "null" && len(res) > 0 {
			var receipt struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(res, &receipt); err != nil {
				return ports.Receipt{}, fmt.Errorf("decode receipt: %w", err)
			}
			return ports.Receipt{Hash: hash, Success: receipt.Status == "0x1"}, nil
		}

		select {
		case <-ctx.Done():
			return ports.Receipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// SwitchNetwork asks the wallet provider to activate the target chain.
// A request for any chain other than the configured one is rejected here;
// an unrecognized-chain response from the provider maps the same way.
func (g *RPCGateway) SwitchNetwork(ctx context.Context, chainID uint64) error {
	if chainID != g.chainID {
		return fmt.Errorf("chain %d is not supported by this gateway: %w", chainID, domain.ErrWrongNetwork)
	}
	_, err := g.client.call(ctx, "wallet_switchEthereumChain", map[string]string{
		"chainId": hexQuantity(new(big.Int).SetUint64(chainID)),
	})
	if err != nil {
		mapped := mapRPCError(err)
		if errors.Is(mapped, domain.ErrUserCancelled) || errors.Is(mapped, domain.ErrWrongNetwork) {
			return fmt.Errorf("switch network: %w", domain.ErrWrongNetwork)
		}
		return mapped
	}
	return nil
}

// --- call builders ---

func (g *RPCGateway) NewApproveCall(from domain.Address, amount *big.Int) ports.ChainCall {
	spenderWord, _ := wordAddress(g.insurance)
	return ports.ChainCall{
		ChainID: g.chainID,
		From:    from,
		To:      g.token,
		Data:    encodeCall(selApprove, spenderWord, wordUint(amount)),
	}
}

func (g *RPCGateway) NewBuyPolicyCall(from domain.Address, containerID string, expectedArrival int64) ports.ChainCall {
	return ports.ChainCall{
		ChainID: g.chainID,
		From:    from,
		To:      g.insurance,
		Data:    encodeBuyPolicy(containerID, big.NewInt(expectedArrival)),
	}
}

func (g *RPCGateway) NewClaimCall(from domain.Address, policyID uint64) ports.ChainCall {
	return ports.ChainCall{
		ChainID: g.chainID,
		From:    from,
		To:      g.insurance,
		Data:    encodeCall(selClaim, wordUint(new(big.Int).SetUint64(policyID))),
	}
}

// --- helpers ---

func (g *RPCGateway) readUint(ctx context.Context, to domain.Address, sel []byte) (*big.Int, error) {
	out, err := g.ethCall(ctx, to, encodeCall(sel))
	if err != nil {
		return nil, err
	}
	return decodeUint(out)
}

func (g *RPCGateway) ethCall(ctx context.Context, to domain.Address, data []byte) ([]byte, error) {
	res, err := g.client.callWithRetry(ctx, "eth_call", map[string]string{
		"to":   to.String(),
		"data": "0x" + hex.EncodeToString(data),
	}, "latest")
	if err != nil {
		return nil, mapRPCError(err)
	}
	var encoded string
	if err := json.Unmarshal(res, &encoded); err != nil {
		return nil, fmt.Errorf("decode eth_call result: %w", err)
	}
	out, err := hex.DecodeString(strings.TrimPrefix(encoded, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode eth_call result hex: %w", err)
	}
	return out, nil
}

func decodeHexQuantity(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode hex quantity: %w", err)
	}
	v, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("decode hex quantity: %q is not hex", s)
	}
	return v, nil
}

func hexQuantity(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return "0x0"
	}
	return "0x" + v.Text(16)
}
