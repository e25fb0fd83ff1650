package main

import (
	"log"
	"net/http"
	"time"

	"cargo-insurance-service/internal/adapters/cache"
	"cargo-insurance-service/internal/adapters/identity"
	"cargo-insurance-service/internal/adapters/ledger"
	"cargo-insurance-service/internal/adapters/snapshots"
	"cargo-insurance-service/internal/api"
	"cargo-insurance-service/internal/config"
	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/platform/db"
	"cargo-insurance-service/internal/ports"
	"cargo-insurance-service/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// main is the application composition root. It wires concrete adapters
// (JSON-RPC ledger, Postgres snapshots, Redis pricing cache) behind ports
// and starts the HTTP server. Postgres, Redis, and the subname registry are
// all optional: the service runs degraded without them.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	registryPath := config.Get("CHAIN_REGISTRY", "data/chains.yaml")
	reg, err := config.LoadRegistry(registryPath)
	if err != nil {
		log.Fatal(err)
	}
	chain, err := reg.ActiveChain()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Using chain name=%s id=%d", chain.Name, chain.ChainID)

	// Registry validation already vetted both addresses.
	insurance, _ := domain.ParseAddress(chain.Insurance)
	token, _ := domain.ParseAddress(chain.Token)

	gateway, err := buildGateway(chain, insurance, token)
	if err != nil {
		log.Fatal(err)
	}

	var snapshotStore ports.SnapshotStore
	if databaseURL := config.Get("DATABASE_URL", ""); databaseURL != "" {
		pg, err := db.Open(databaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer pg.Close()
		if err := snapshots.InitSchema(pg); err != nil {
			log.Fatal(err)
		}
		snapshotStore = snapshots.NewSQLSnapshotStore(pg)
	} else {
		log.Println("DATABASE_URL not set; running without policy snapshots")
	}

	var pricingCache ports.PricingCache
	if redisAddr := config.Get("REDIS_ADDR", ""); redisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: config.Get("REDIS_PASSWORD", ""),
		})
		pricingCache = cache.NewRedisPricingCache(client)
	} else {
		log.Println("REDIS_ADDR not set; running without pricing cache")
	}

	var identityProvider ports.IdentityProvider
	if subnameURL := config.Get("SUBNAME_API_URL", ""); subnameURL != "" {
		provider, err := identity.NewSubnameProvider(subnameURL, config.Get("SUBNAME_API_KEY", ""))
		if err != nil {
			log.Fatal(err)
		}
		identityProvider = provider
	}

	cacheTTL, err := time.ParseDuration(config.Get("PRICING_CACHE_TTL", "5m"))
	if err != nil {
		log.Fatalf("invalid PRICING_CACHE_TTL: %v", err)
	}

	submitter := services.NewTransactionSubmitter(gateway, services.DefaultGasPolicy())
	pricing := services.NewPricingReader(gateway, pricingCache, cacheTTL)
	repo := services.NewPolicyRepository(gateway, snapshotStore)
	authorizer := services.NewAllowanceAuthorizer(gateway, submitter, insurance)
	purchases := services.NewPolicyPurchaseCoordinator(gateway, pricing, authorizer, submitter)
	claims := services.NewClaimCoordinator(gateway, repo, submitter)

	router := api.NewRouter(pricing, repo, purchases, claims, identityProvider, chain.ChainID)

	// WriteTimeout leaves headroom over the bounded confirmation wait, so a
	// slow inclusion answers 202 instead of a cut connection.
	port := config.Get("PORT", "8080")
	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

// buildGateway returns the in-memory demo ledger when DEMO_MODE is set,
// otherwise the JSON-RPC gateway for the active chain.
func buildGateway(chain config.Chain, insurance, token domain.Address) (ports.LedgerGateway, error) {
	if config.Get("DEMO_MODE", "") == "" {
		return ledger.NewRPCGateway(chain.RPCURL, chain.ChainID, insurance, token)
	}

	log.Println("DEMO_MODE set; using the in-memory ledger")
	mock := ledger.NewMockGateway(chain.ChainID)
	mock.Insurance = insurance
	mock.Token = token
	return mock, nil
}
