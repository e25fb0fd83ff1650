package dto

// PricingResponse carries the contract's pricing parameters. Amounts are
// decimal strings in the token's smallest unit. Source is "ledger" for a
// live (or briefly cached) contract read and "estimate" when the gateway was
// unreachable and the numbers were derived from the merchandise value.
type PricingResponse struct {
	Premium       string `json:"premium"`
	PayoutPerDay  string `json:"payout_per_day"`
	MaxPayoutDays uint32 `json:"max_payout_days,omitempty"`
	Source        string `json:"source"`
}
