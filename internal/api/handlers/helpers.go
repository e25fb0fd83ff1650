package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"cargo-insurance-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeDomainError maps the ledger failure taxonomy onto HTTP statuses. The
// classified sentinel decides the status; message text is never inspected.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var funds *domain.InsufficientFundsError

	switch {
	case errors.Is(err, domain.ErrUserCancelled):
		writeError(w, r, http.StatusConflict, "transaction rejected in wallet")
	case errors.Is(err, domain.ErrAttemptInFlight):
		writeError(w, r, http.StatusConflict, "another transaction for this signer is in flight")
	case errors.Is(err, domain.ErrWrongNetwork):
		writeError(w, r, http.StatusConflict, "signer is on the wrong network")
	case errors.Is(err, domain.ErrNotEligible):
		writeError(w, r, http.StatusUnprocessableEntity, "policy is not eligible for a claim")
	case errors.Is(err, domain.ErrExecutionReverted):
		writeError(w, r, http.StatusUnprocessableEntity, "transaction reverted by the contract")
	case errors.As(err, &funds):
		writeJSON(w, r, http.StatusPaymentRequired, map[string]string{
			"error":     fmt.Sprintf("insufficient %s funds", funds.Asset),
			"asset":     funds.Asset,
			"required":  funds.Required.String(),
			"available": funds.Available.String(),
			"shortfall": funds.Shortfall().String(),
		})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "ledger gateway unavailable")
	case errors.Is(err, domain.ErrInconsistentState):
		writeError(w, r, http.StatusConflict, "ledger state is inconsistent")
	default:
		log.Printf("unclassified handler error: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}
