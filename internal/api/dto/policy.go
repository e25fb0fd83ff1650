package dto

// PolicyResponse is the client-facing projection of one coverage unit.
// ClaimableDays and EstimatedPayout are advisory; the ledger recomputes the
// authoritative payout when a claim executes.
type PolicyResponse struct {
	PolicyID        uint64 `json:"policy_id"`
	Insured         string `json:"insured"`
	ContainerID     string `json:"container_id"`
	ExpectedArrival int64  `json:"expected_arrival"`
	ActualArrival   int64  `json:"actual_arrival,omitempty"`
	ClaimedDays     uint32 `json:"claimed_days"`
	ShipmentStatus  string `json:"shipment_status"`
	DaysDelayed     uint32 `json:"days_delayed"`
	ClaimableDays   uint32 `json:"claimable_days"`
	EstimatedPayout string `json:"estimated_payout,omitempty"`
	Active          bool   `json:"active"`
	Stale           bool   `json:"stale,omitempty"`
}

// ListPoliciesResponse is the owner's policy listing. Partial is set when
// some policies could not be read live; their ids are in FailedIDs and any
// snapshot-backed entries among Policies carry stale=true.
type ListPoliciesResponse struct {
	Policies  []PolicyResponse `json:"policies"`
	Partial   bool             `json:"partial,omitempty"`
	FailedIDs []uint64         `json:"failed_policy_ids,omitempty"`
}
