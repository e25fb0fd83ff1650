package handlers

import (
	"log"
	"math/big"
	"net/http"

	"cargo-insurance-service/internal/api/dto"
	"cargo-insurance-service/internal/services"
)

// PricingHandler exposes the contract's pricing parameters for quote pages.
type PricingHandler struct {
	Reader *services.PricingReader
}

// Get returns live contract pricing. When the gateway is unreachable and the
// caller supplied a merchandise value, the response degrades to the
// value-derived display estimate instead of failing; the purchase path still
// re-reads the authoritative premium before any transfer.
func (h *PricingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	var value *big.Int
	if raw := r.URL.Query().Get("value"); raw != "" {
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok || v.Sign() <= 0 {
			writeError(w, r, http.StatusBadRequest, "value must be a positive integer")
			return
		}
		value = v
	}

	pricing, err := h.Reader.Pricing(r.Context())
	if err != nil {
		if value == nil {
			writeDomainError(w, r, err)
			return
		}
		log.Printf("pricing read failed, serving estimate: %v", err)
		premium, daily := services.DisplayEstimate(value)
		writeJSON(w, r, http.StatusOK, dto.PricingResponse{
			Premium:      premium.String(),
			PayoutPerDay: daily.String(),
			Source:       "estimate",
		})
		return
	}

	writeJSON(w, r, http.StatusOK, dto.PricingResponse{
		Premium:       pricing.Premium.String(),
		PayoutPerDay:  pricing.PayoutPerDay.String(),
		MaxPayoutDays: pricing.MaxPayoutDays,
		Source:        "ledger",
	})
}
