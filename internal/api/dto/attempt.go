package dto

// AttemptResponse reports the terminal state of one submitted transaction.
type AttemptResponse struct {
	Kind   string `json:"kind"`
	Status string `json:"status"`
	TxHash string `json:"tx_hash,omitempty"`
}
