package dto

// PurchaseRequest is a reviewed quote submitted for execution.
// MerchandiseValue is a decimal string in the token's smallest unit;
// ExpectedArrival is unix seconds. ChainID may be omitted to use the
// service's configured chain.
type PurchaseRequest struct {
	Buyer            string `json:"buyer"`
	ChainID          uint64 `json:"chain_id"`
	ContainerID      string `json:"container_id"`
	MerchandiseValue string `json:"merchandise_value"`
	ExpectedArrival  int64  `json:"expected_arrival"`
	AcceptedTerms    bool   `json:"accepted_terms"`
}

// PurchaseResponse reports both phases of the purchase. Approval is absent
// when the existing allowance already covered the premium.
type PurchaseResponse struct {
	Approval *AttemptResponse `json:"approval,omitempty"`
	Buy      AttemptResponse  `json:"buy"`
}
