package handlers

import (
	"log"
	"net/http"
	"strings"

	"cargo-insurance-service/internal/api/dto"
	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/ports"
)

// IdentityHandler resolves display names for addresses. Purely cosmetic:
// an address without a registered name answers an empty identity, and a
// registry outage degrades the same way rather than erroring.
type IdentityHandler struct {
	Provider ports.IdentityProvider
}

func (h *IdentityHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/identity/")
	addr, err := domain.ParseAddress(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "path must end in a 0x-prefixed 20-byte hex address")
		return
	}

	res := dto.IdentityResponse{Address: addr.String()}
	if h.Provider != nil {
		identity, err := h.Provider.Resolve(r.Context(), addr)
		if err != nil {
			log.Printf("identity resolve failed: addr=%s err=%v", addr, err)
		} else {
			res.Name = identity.Name
			res.Avatar = identity.Avatar
		}
	}

	writeJSON(w, r, http.StatusOK, res)
}
