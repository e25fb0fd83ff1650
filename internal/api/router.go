package api

import (
	"net/http"

	"cargo-insurance-service/internal/api/handlers"
	"cargo-insurance-service/internal/ports"
	"cargo-insurance-service/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an
// http.Handler. This is the API composition root (handlers stay unaware of
// concrete adapters).
func NewRouter(
	pricing *services.PricingReader,
	repo *services.PolicyRepository,
	purchases *services.PolicyPurchaseCoordinator,
	claims *services.ClaimCoordinator,
	identity ports.IdentityProvider,
	chainID uint64,
) http.Handler {
	mux := http.NewServeMux()

	pricingHandler := &handlers.PricingHandler{Reader: pricing}
	policyHandler := &handlers.PolicyHandler{Repo: repo, Pricing: pricing}
	purchaseHandler := &handlers.PurchaseHandler{Coordinator: purchases, DefaultChainID: chainID}
	claimHandler := &handlers.ClaimHandler{Coordinator: claims, DefaultChainID: chainID}
	identityHandler := &handlers.IdentityHandler{Provider: identity}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/pricing", pricingHandler.Get)
	mux.HandleFunc("/policies", policyHandler.List)
	mux.HandleFunc("/purchases", purchaseHandler.Create)
	mux.HandleFunc("/claims", claimHandler.Create)
	mux.HandleFunc("/identity/", identityHandler.Resolve)

	return requestIDMiddleware(loggingMiddleware(mux))
}
