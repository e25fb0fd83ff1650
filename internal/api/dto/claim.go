package dto

type ClaimRequest struct {
	Claimant string `json:"claimant"`
	ChainID  uint64 `json:"chain_id"`
	PolicyID uint64 `json:"policy_id"`
}

// ClaimResponse reports the claim attempt and, when the claim confirmed and
// the follow-up read succeeded, the refreshed policy.
type ClaimResponse struct {
	Attempt AttemptResponse `json:"attempt"`
	Policy  *PolicyResponse `json:"policy,omitempty"`
}
