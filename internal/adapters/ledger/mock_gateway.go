package ledger

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/ports"
)

// MockGateway is an in-memory ledger that reproduces the insurance
// contract's buy/claim/allowance semantics. Used by tests and by demo runs
// without a chain endpoint. Submitted calls execute immediately; reverts
// surface as unsuccessful receipts, the way a real node reports them.
type MockGateway struct {
	mu sync.Mutex

	ChainID   uint64
	Insurance domain.Address
	Token     domain.Address

	Pricing domain.PricingParameters
	Now     func() int64

	NativeBalances map[domain.Address]*big.Int
	TokenBalances  map[domain.Address]*big.Int
	Allowances     map[string]*big.Int // owner|spender
	Policies       map[uint64]*MockPolicy

	// Failure injection.
	FailReads     bool            // reads fail with ErrGatewayUnavailable
	FailPolicyIDs map[uint64]bool // per-policy read failures
	RejectSigner  bool            // submissions fail with ErrUserCancelled
	RejectSwitch  bool            // network switches fail with ErrWrongNetwork

	GasEstimate uint64
	BasePrice   *big.Int

	EstimateCalls int
	SubmitCalls   int
	LastGasParams ports.GasParams

	nextPolicyID uint64
	nextTx       uint64
	receipts     map[string]ports.Receipt
}

// MockPolicy is the stored ledger record behind the getPolicy tuple.
type MockPolicy struct {
	Insured         domain.Address
	ContainerID     string
	ExpectedArrival int64
	ActualArrival   int64
	ClaimedDays     uint32
	Status          uint8
}

func NewMockGateway(chainID uint64) *MockGateway {
	return &MockGateway{
		ChainID:   chainID,
		Insurance: domain.Address("0x1000000000000000000000000000000000000001"),
		Token:     domain.Address("0x2000000000000000000000000000000000000002"),
		Pricing: domain.PricingParameters{
			Premium:       big.NewInt(1000),
			PayoutPerDay:  big.NewInt(100),
			MaxPayoutDays: 60,
		},
		Now:            func() int64 { return time.Now().Unix() },
		NativeBalances: make(map[domain.Address]*big.Int),
		TokenBalances:  make(map[domain.Address]*big.Int),
		Allowances:     make(map[string]*big.Int),
		Policies:       make(map[uint64]*MockPolicy),
		FailPolicyIDs:  make(map[uint64]bool),
		GasEstimate:    50000,
		BasePrice:      big.NewInt(100),
		nextPolicyID:   1,
		receipts:       make(map[string]ports.Receipt),
	}
}

// AddPolicy stores a policy record and returns its id.
func (m *MockGateway) AddPolicy(p MockPolicy) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextPolicyID
	m.nextPolicyID++
	stored := p
	m.Policies[id] = &stored
	return id
}

func (m *MockGateway) SetNativeBalance(addr domain.Address, v *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NativeBalances[addr] = new(big.Int).Set(v)
}

func (m *MockGateway) SetTokenBalance(addr domain.Address, v *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TokenBalances[addr] = new(big.Int).Set(v)
}

func (m *MockGateway) SetAllowance(owner domain.Address, v *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Allowances[allowanceKey(owner, m.Insurance)] = new(big.Int).Set(v)
}

func allowanceKey(owner, spender domain.Address) string {
	return owner.String() + "|" + spender.String()
}

// --- reads ---

func (m *MockGateway) ReadPolicy(_ context.Context, id uint64) (ports.RawPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads || m.FailPolicyIDs[id] {
		return ports.RawPolicy{}, fmt.Errorf("read policy %d: %w", id, domain.ErrGatewayUnavailable)
	}
	p, ok := m.Policies[id]
	if !ok {
		return ports.RawPolicy{}, fmt.Errorf("read policy %d: unknown id: %w", id, domain.ErrGatewayUnavailable)
	}
	return ports.RawPolicy{
		Insured:         p.Insured,
		ContainerID:     p.ContainerID,
		ExpectedArrival: big.NewInt(p.ExpectedArrival),
		ActualArrival:   big.NewInt(p.ActualArrival),
		ClaimedDays:     big.NewInt(int64(p.ClaimedDays)),
		Status:          big.NewInt(int64(p.Status)),
	}, nil
}

func (m *MockGateway) ReadClaimableDays(_ context.Context, id uint64) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads || m.FailPolicyIDs[id] {
		return 0, fmt.Errorf("read claimable days %d: %w", id, domain.ErrGatewayUnavailable)
	}
	p, ok := m.Policies[id]
	if !ok {
		return 0, fmt.Errorf("read claimable days %d: unknown id: %w", id, domain.ErrGatewayUnavailable)
	}
	return m.claimableDaysLocked(p), nil
}

func (m *MockGateway) claimableDaysLocked(p *MockPolicy) uint32 {
	if p.Status != domain.StatusDelayed && p.Status != domain.StatusDelivered {
		return 0
	}
	ref := m.Now()
	if p.Status == domain.StatusDelivered {
		ref = p.ActualArrival
	}
	if ref <= p.ExpectedArrival {
		return 0
	}
	days := uint32((ref - p.ExpectedArrival) / 86400)
	if days > m.Pricing.MaxPayoutDays {
		days = m.Pricing.MaxPayoutDays
	}
	if days <= p.ClaimedDays {
		return 0
	}
	return days - p.ClaimedDays
}

func (m *MockGateway) ReadPricing(_ context.Context) (domain.PricingParameters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return domain.PricingParameters{}, fmt.Errorf("read pricing: %w", domain.ErrGatewayUnavailable)
	}
	return m.Pricing.Clone(), nil
}

func (m *MockGateway) PoliciesByOwner(_ context.Context, owner domain.Address) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return nil, fmt.Errorf("policies by owner: %w", domain.ErrGatewayUnavailable)
	}
	var ids []uint64
	for id := uint64(1); id < m.nextPolicyID; id++ {
		if p, ok := m.Policies[id]; ok && p.Insured == owner {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *MockGateway) EstimateGas(_ context.Context, _ ports.ChainCall) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EstimateCalls++
	if m.FailReads {
		return 0, fmt.Errorf("estimate gas: %w", domain.ErrGatewayUnavailable)
	}
	return m.GasEstimate, nil
}

func (m *MockGateway) GasPrice(_ context.Context) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.BasePrice), nil
}

func (m *MockGateway) Balance(_ context.Context, addr domain.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(m.NativeBalances, addr), nil
}

func (m *MockGateway) TokenBalance(_ context.Context, addr domain.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(m.TokenBalances, addr), nil
}

func (m *MockGateway) balanceLocked(balances map[domain.Address]*big.Int, addr domain.Address) *big.Int {
	if v, ok := balances[addr]; ok {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

func (m *MockGateway) TokenAllowance(_ context.Context, owner, spender domain.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.Allowances[allowanceKey(owner, spender)]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

// --- writes ---

// SubmitTransaction decodes the calldata with the package codec and applies
// the contract semantics immediately. The receipt is retrievable through
// WaitForReceipt under the returned hash.
func (m *MockGateway) SubmitTransaction(_ context.Context, call ports.ChainCall, gas ports.GasParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubmitCalls++
	m.LastGasParams = gas

	if m.RejectSigner {
		return "", fmt.Errorf("submit transaction: %w", domain.ErrUserCancelled)
	}
	if len(call.Data) < 4 {
		return "", fmt.Errorf("submit transaction: calldata too short")
	}

	m.nextTx++
	hash := fmt.Sprintf("0xmock%08d", m.nextTx)

	success := m.executeLocked(call)
	m.receipts[hash] = ports.Receipt{Hash: hash, Success: success}
	return hash, nil
}

func (m *MockGateway) executeLocked(call ports.ChainCall) bool {
	sel := call.Data[:4]
	args := call.Data[4:]

	switch {
	case bytes.Equal(sel, selApprove):
		spender := decodeAddressWord(args[:wordSize])
		amount := new(big.Int).SetBytes(args[wordSize : 2*wordSize])
		m.Allowances[allowanceKey(call.From, spender)] = amount
		return true

	case bytes.Equal(sel, selBuyPolicy):
		expected := new(big.Int).SetBytes(args[wordSize : 2*wordSize]).Int64()
		strLen := int(new(big.Int).SetBytes(args[2*wordSize : 3*wordSize]).Int64())
		containerID := string(args[3*wordSize : 3*wordSize+strLen])

		if expected <= m.Now() {
			return false
		}
		premium := m.Pricing.Premium
		key := allowanceKey(call.From, m.Insurance)
		allowance := m.Allowances[key]
		balance := m.TokenBalances[call.From]
		if allowance == nil || allowance.Cmp(premium) < 0 || balance == nil || balance.Cmp(premium) < 0 {
			return false
		}
		m.Allowances[key] = new(big.Int).Sub(allowance, premium)
		m.TokenBalances[call.From] = new(big.Int).Sub(balance, premium)

		id := m.nextPolicyID
		m.nextPolicyID++
		m.Policies[id] = &MockPolicy{
			Insured:         call.From,
			ContainerID:     containerID,
			ExpectedArrival: expected,
			Status:          domain.StatusActive,
		}
		return true

	case bytes.Equal(sel, selClaim):
		id := new(big.Int).SetBytes(args[:wordSize]).Uint64()
		p, ok := m.Policies[id]
		if !ok || p.Insured != call.From {
			return false
		}
		if p.Status != domain.StatusDelayed && p.Status != domain.StatusDelivered {
			return false
		}
		claimable := m.claimableDaysLocked(p)
		if claimable == 0 {
			return false
		}
		p.ClaimedDays += claimable
		if p.ClaimedDays >= m.Pricing.MaxPayoutDays {
			p.Status = domain.StatusInactive
		}
		payout := new(big.Int).Mul(big.NewInt(int64(claimable)), m.Pricing.PayoutPerDay)
		cur := m.balanceLocked(m.TokenBalances, call.From)
		m.TokenBalances[call.From] = cur.Add(cur, payout)
		return true
	}

	return false
}

func (m *MockGateway) WaitForReceipt(ctx context.Context, hash string) (ports.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ports.Receipt{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	receipt, ok := m.receipts[hash]
	if !ok {
		return ports.Receipt{}, fmt.Errorf("wait for receipt: unknown transaction %s", hash)
	}
	return receipt, nil
}

func (m *MockGateway) SwitchNetwork(_ context.Context, chainID uint64) error {
	if m.RejectSwitch || chainID != m.ChainID {
		return fmt.Errorf("switch to chain %d: %w", chainID, domain.ErrWrongNetwork)
	}
	return nil
}

// --- call builders ---

func (m *MockGateway) NewApproveCall(from domain.Address, amount *big.Int) ports.ChainCall {
	spenderWord, _ := wordAddress(m.Insurance)
	return ports.ChainCall{
		ChainID: m.ChainID,
		From:    from,
		To:      m.Token,
		Data:    encodeCall(selApprove, spenderWord, wordUint(amount)),
	}
}

func (m *MockGateway) NewBuyPolicyCall(from domain.Address, containerID string, expectedArrival int64) ports.ChainCall {
	return ports.ChainCall{
		ChainID: m.ChainID,
		From:    from,
		To:      m.Insurance,
		Data:    encodeBuyPolicy(containerID, big.NewInt(expectedArrival)),
	}
}

func (m *MockGateway) NewClaimCall(from domain.Address, policyID uint64) ports.ChainCall {
	return ports.ChainCall{
		ChainID: m.ChainID,
		From:    from,
		To:      m.Insurance,
		Data:    encodeCall(selClaim, wordUint(new(big.Int).SetUint64(policyID))),
	}
}
