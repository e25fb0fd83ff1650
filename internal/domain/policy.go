package domain

// Policy status codes as stored by the insurance contract.
// A policy becomes inactive once its payout days are fully claimed.
const (
	StatusInactive  uint8 = 0
	StatusActive    uint8 = 1
	StatusDelayed   uint8 = 2
	StatusDelivered uint8 = 3
)

// Represents one purchased coverage unit, a read-only projection of the
// ledger record. The ledger owns every field; the client never mutates a
// Policy locally, state transitions are observed by re-reading after a
// confirmed transaction.
type Policy struct {
	PolicyID        uint64
	Insured         Address
	ContainerID     string
	ExpectedArrival int64 // unix seconds, set at purchase
	ActualArrival   int64 // unix seconds, zero until delivery is recorded
	ClaimedDays     uint32
	StatusCode      uint8
}

func (p Policy) Active() bool    { return p.StatusCode != StatusInactive }
func (p Policy) Delayed() bool   { return p.StatusCode == StatusDelayed }
func (p Policy) Delivered() bool { return p.StatusCode == StatusDelivered }

// PolicyView pairs a policy with the ledger-computed claimable-days value.
// ClaimableDays is advisory: the ledger recomputes the authoritative number
// when a claim transaction executes.
type PolicyView struct {
	Policy
	ClaimableDays uint32
	// Stale marks a view served from a last-known-good snapshot after the
	// live per-policy read failed. Stale views are display-only.
	Stale bool
}

// ShipmentStatus is the derived delivery state shown to the user.
type ShipmentStatus int

const (
	ShipmentOnTime ShipmentStatus = iota
	ShipmentDelayed
	ShipmentDelivered
)

func (s ShipmentStatus) String() string {
	switch s {
	case ShipmentOnTime:
		return "on_time"
	case ShipmentDelayed:
		return "delayed"
	case ShipmentDelivered:
		return "delivered"
	}
	return "unknown"
}
