package domain

// SignerContext identifies the connected wallet for one coordinator call.
// Passed explicitly instead of being read from ambient session state, so
// the one-attempt-per-signer serialization rule is enforceable.
type SignerContext struct {
	Address Address
	ChainID uint64
}

func (s SignerContext) Connected() bool { return !s.Address.IsZero() }
