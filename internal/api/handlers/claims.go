package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"cargo-insurance-service/internal/api/dto"
	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/services"
)

// ClaimHandler files delay-compensation claims.
type ClaimHandler struct {
	Coordinator    *services.ClaimCoordinator
	DefaultChainID uint64
}

func (h *ClaimHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.ClaimRequest

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

	claimant, err := domain.ParseAddress(req.Claimant)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "claimant must be a 0x-prefixed 20-byte hex address")
		return
	}
	if req.PolicyID == 0 {
		writeError(w, r, http.StatusBadRequest, "policy_id is required")
		return
	}

	chainID := req.ChainID
	if chainID == 0 {
		chainID = h.DefaultChainID
	}
	signer := domain.SignerContext{Address: claimant, ChainID: chainID}

	result, err := h.Coordinator.SubmitClaim(r.Context(), signer, req.PolicyID, nil)
	if err != nil {
		if errors.Is(err, domain.ErrConfirmationPending) {
			writeJSON(w, r, http.StatusAccepted, toClaimResponse(result))
			return
		}
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toClaimResponse(result))
}

func toClaimResponse(result services.ClaimResult) dto.ClaimResponse {
	res := dto.ClaimResponse{Attempt: toAttemptResponse(result.Attempt)}
	if result.Policy != nil {
		p := toPolicyResponse(*result.Policy, time.Now().Unix(), nil)
		res.Policy = &p
	}
	return res
}
