package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"

	"cargo-insurance-service/internal/api/dto"
	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/services"
)

// PurchaseHandler executes the two-phase purchase protocol for a reviewed
// quote.
type PurchaseHandler struct {
	Coordinator    *services.PolicyPurchaseCoordinator
	DefaultChainID uint64
}

func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.PurchaseRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	buyer, err := domain.ParseAddress(req.Buyer)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "buyer must be a 0x-prefixed 20-byte hex address")
		return
	}

	value, ok := new(big.Int).SetString(req.MerchandiseValue, 10)
	if !ok || value.Sign() <= 0 {
		writeError(w, r, http.StatusBadRequest, "merchandise_value must be a positive decimal integer")
		return
	}
	if !req.AcceptedTerms {
		writeError(w, r, http.StatusBadRequest, "terms must be accepted")
		return
	}

	chainID := req.ChainID
	if chainID == 0 {
		chainID = h.DefaultChainID
	}

	signer := domain.SignerContext{Address: buyer, ChainID: chainID}
	quote := services.Quote{
		ContainerID:      req.ContainerID,
		MerchandiseValue: value,
		ExpectedArrival:  req.ExpectedArrival,
		AcceptedTerms:    req.AcceptedTerms,
	}

	result, err := h.Coordinator.Purchase(r.Context(), signer, quote, nil)
	if err != nil {
		// A confirmation timeout is not a failure: the buy may still land.
		// Report the submitted attempt so the caller can track the hash.
		if errors.Is(err, domain.ErrConfirmationPending) {
			writeJSON(w, r, http.StatusAccepted, toPurchaseResponse(result))
			return
		}
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toPurchaseResponse(result))
}

func toPurchaseResponse(result services.PurchaseResult) dto.PurchaseResponse {
	res := dto.PurchaseResponse{Buy: toAttemptResponse(result.Buy)}
	if result.Approval != nil {
		a := toAttemptResponse(*result.Approval)
		res.Approval = &a
	}
	return res
}

func toAttemptResponse(a domain.TransactionAttempt) dto.AttemptResponse {
	return dto.AttemptResponse{
		Kind:   a.Kind.String(),
		Status: a.Status.String(),
		TxHash: a.Hash,
	}
}
