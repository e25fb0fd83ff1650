package domain

// AttemptKind names the ledger mutation an attempt carries.
type AttemptKind int

const (
	AttemptApprove AttemptKind = iota
	AttemptBuyPolicy
	AttemptClaim
)

func (k AttemptKind) String() string {
	switch k {
	case AttemptApprove:
		return "approve"
	case AttemptBuyPolicy:
		return "buy_policy"
	case AttemptClaim:
		return "claim"
	}
	return "unknown"
}

// AttemptStatus is the submit-through-confirm state machine position.
type AttemptStatus int

const (
	AttemptEstimating AttemptStatus = iota
	AttemptAwaitingSignature
	AttemptSubmitted
	AttemptConfirmed
	AttemptFailed
)

func (s AttemptStatus) String() string {
	switch s {
	case AttemptEstimating:
		return "estimating"
	case AttemptAwaitingSignature:
		return "awaiting_signature"
	case AttemptSubmitted:
		return "submitted"
	case AttemptConfirmed:
		return "confirmed"
	case AttemptFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the attempt can no longer change state.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptConfirmed || s == AttemptFailed
}

// TransactionAttempt is one submitted ledger mutation. Attempts live only
// for the session that created them; a user-visible retry is a brand new
// attempt with fresh estimation, never a resubmission of this one.
type TransactionAttempt struct {
	Kind   AttemptKind
	Status AttemptStatus
	Hash   string // set once submitted
	Err    error  // classified failure reason, set only on Failed
}
