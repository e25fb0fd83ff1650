package handlers

import (
	"net/http"
)

// Health provides a minimal liveness check endpoint. It deliberately does not
// touch the ledger gateway: a flapping RPC endpoint must not restart the
// service.
func Health(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
