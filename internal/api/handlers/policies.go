package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"cargo-insurance-service/internal/api/dto"
	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/services"
)

// PolicyHandler exposes read-only policy listing for an owner address.
type PolicyHandler struct {
	Repo    *services.PolicyRepository
	Pricing *services.PricingReader
}

// List returns the owner's policies, active first, newest first. A partial
// ledger read still answers 200 with the surviving (and snapshot-backed)
// entries plus the failed ids, so one unreadable policy never blanks the
// whole dashboard.
func (h *PolicyHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	owner, err := domain.ParseAddress(r.URL.Query().Get("owner"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "owner must be a 0x-prefixed 20-byte hex address")
		return
	}

	views, err := h.Repo.ListPolicies(r.Context(), owner)

	var partial *domain.PartialReadError
	if err != nil && !errors.As(err, &partial) {
		writeDomainError(w, r, err)
		return
	}

	// Pricing is only needed for the payout estimate column; a failed read
	// degrades to listings without estimates.
	var pricing *domain.PricingParameters
	if h.Pricing != nil {
		if p, err := h.Pricing.Pricing(r.Context()); err == nil {
			pricing = &p
		} else {
			log.Printf("pricing read for listing failed: %v", err)
		}
	}

	now := time.Now().Unix()
	res := dto.ListPoliciesResponse{
		Policies: make([]dto.PolicyResponse, 0, len(views)),
	}
	for _, v := range views {
		res.Policies = append(res.Policies, toPolicyResponse(v, now, pricing))
	}
	if partial != nil {
		res.Partial = true
		res.FailedIDs = partial.FailedIDs
	}

	writeJSON(w, r, http.StatusOK, res)
}

func toPolicyResponse(v domain.PolicyView, now int64, pricing *domain.PricingParameters) dto.PolicyResponse {
	res := dto.PolicyResponse{
		PolicyID:        v.PolicyID,
		Insured:         v.Insured.String(),
		ContainerID:     v.ContainerID,
		ExpectedArrival: v.ExpectedArrival,
		ActualArrival:   v.ActualArrival,
		ClaimedDays:     v.ClaimedDays,
		ShipmentStatus:  services.DeriveStatus(v.Policy, now).String(),
		DaysDelayed:     services.DaysDelayed(v.Policy, now),
		ClaimableDays:   v.ClaimableDays,
		Active:          v.Active(),
		Stale:           v.Stale,
	}
	if pricing != nil {
		res.EstimatedPayout = services.EstimatedPayout(v.Policy, now, *pricing).String()
	}
	return res
}
