package handlers

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cargo-insurance-service/internal/adapters/ledger"
	"cargo-insurance-service/internal/api/dto"
	"cargo-insurance-service/internal/domain"
	"cargo-insurance-service/internal/services"
)

const (
	testChainID = uint64(421614)
	buyerHex    = "0x00000000000000000000000000000000000000aa"
)

type fixture struct {
	gw        *ledger.MockGateway
	pricing   *PricingHandler
	policies  *PolicyHandler
	purchases *PurchaseHandler
	claims    *ClaimHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := ledger.NewMockGateway(testChainID)
	gw.SetNativeBalance(domain.Address(buyerHex), big.NewInt(1_000_000_000_000))
	gw.SetTokenBalance(domain.Address(buyerHex), big.NewInt(1_000_000))

	submitter := services.NewTransactionSubmitter(gw, services.DefaultGasPolicy())
	reader := services.NewPricingReader(gw, nil, 0)
	repo := services.NewPolicyRepository(gw, nil)
	authorizer := services.NewAllowanceAuthorizer(gw, submitter, gw.Insurance)
	purchase := services.NewPolicyPurchaseCoordinator(gw, reader, authorizer, submitter)
	claim := services.NewClaimCoordinator(gw, repo, submitter)

	return &fixture{
		gw:        gw,
		pricing:   &PricingHandler{Reader: reader},
		policies:  &PolicyHandler{Repo: repo, Pricing: reader},
		purchases: &PurchaseHandler{Coordinator: purchase, DefaultChainID: testChainID},
		claims:    &ClaimHandler{Coordinator: claim, DefaultChainID: testChainID},
	}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestPricingEndpointLedgerSource(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.pricing.Get(rec, httptest.NewRequest(http.MethodGet, "/pricing", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	res := decodeBody[dto.PricingResponse](t, rec)
	if res.Source != "ledger" {
		t.Errorf("source = %q, want ledger", res.Source)
	}
	if res.Premium != "1000" {
		t.Errorf("premium = %q, want 1000", res.Premium)
	}
	if res.MaxPayoutDays != 60 {
		t.Errorf("max payout days = %d, want 60", res.MaxPayoutDays)
	}
}

func TestPricingEndpointEstimateFallback(t *testing.T) {
	f := newFixture(t)
	f.gw.FailReads = true

	// No value to estimate from: the outage surfaces.
	rec := httptest.NewRecorder()
	f.pricing.Get(rec, httptest.NewRequest(http.MethodGet, "/pricing", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	// With a merchandise value the endpoint degrades to the 2%/1% estimate.
	rec = httptest.NewRecorder()
	f.pricing.Get(rec, httptest.NewRequest(http.MethodGet, "/pricing?value=50000", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	res := decodeBody[dto.PricingResponse](t, rec)
	if res.Source != "estimate" {
		t.Errorf("source = %q, want estimate", res.Source)
	}
	if res.Premium != "1000" || res.PayoutPerDay != "500" {
		t.Errorf("estimate = %s/%s, want 1000/500", res.Premium, res.PayoutPerDay)
	}
}

func TestPricingEndpointRejectsBadValue(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.pricing.Get(rec, httptest.NewRequest(http.MethodGet, "/pricing?value=-5", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPoliciesEndpointPartialRead(t *testing.T) {
	f := newFixture(t)
	now := time.Now().Unix()
	okID := f.gw.AddPolicy(ledger.MockPolicy{
		Insured: domain.Address(buyerHex), ContainerID: "A",
		ExpectedArrival: now - 4*86400, Status: domain.StatusDelayed,
	})
	badID := f.gw.AddPolicy(ledger.MockPolicy{
		Insured: domain.Address(buyerHex), ContainerID: "B",
		ExpectedArrival: now + 86400, Status: domain.StatusActive,
	})
	f.gw.FailPolicyIDs[badID] = true

	rec := httptest.NewRecorder()
	f.policies.List(rec, httptest.NewRequest(http.MethodGet, "/policies?owner="+buyerHex, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for a partial read", rec.Code)
	}

	res := decodeBody[dto.ListPoliciesResponse](t, rec)
	if !res.Partial {
		t.Error("partial flag not set")
	}
	if len(res.FailedIDs) != 1 || res.FailedIDs[0] != badID {
		t.Errorf("failed ids = %v, want [%d]", res.FailedIDs, badID)
	}
	if len(res.Policies) != 1 || res.Policies[0].PolicyID != okID {
		t.Fatalf("policies = %+v, want just %d", res.Policies, okID)
	}
	if res.Policies[0].ShipmentStatus != "delayed" {
		t.Errorf("shipment status = %q, want delayed", res.Policies[0].ShipmentStatus)
	}
	if res.Policies[0].EstimatedPayout != "400" {
		t.Errorf("estimated payout = %q, want 400 (4 days x 100)", res.Policies[0].EstimatedPayout)
	}
}

func TestPoliciesEndpointRejectsBadOwner(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.policies.List(rec, httptest.NewRequest(http.MethodGet, "/policies?owner=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func purchaseBody(mutate func(map[string]any)) *strings.Reader {
	body := map[string]any{
		"buyer":             buyerHex,
		"container_id":      "MSCU6639871",
		"merchandise_value": "50000",
		"expected_arrival":  time.Now().Unix() + 14*86400,
		"accepted_terms":    true,
	}
	if mutate != nil {
		mutate(body)
	}
	raw, _ := json.Marshal(body)
	return strings.NewReader(string(raw))
}

func TestPurchaseEndpointHappyPath(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.purchases.Create(rec, httptest.NewRequest(http.MethodPost, "/purchases", purchaseBody(nil)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	res := decodeBody[dto.PurchaseResponse](t, rec)
	if res.Approval == nil || res.Approval.Status != "confirmed" {
		t.Errorf("approval = %+v, want confirmed attempt", res.Approval)
	}
	if res.Buy.Status != "confirmed" || res.Buy.TxHash == "" {
		t.Errorf("buy = %+v, want confirmed with hash", res.Buy)
	}
}

func TestPurchaseEndpointValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		body   *strings.Reader
		status int
	}{
		{"bad buyer", purchaseBody(func(m map[string]any) { m["buyer"] = "0x123" }), http.StatusBadRequest},
		{"bad value", purchaseBody(func(m map[string]any) { m["merchandise_value"] = "lots" }), http.StatusBadRequest},
		{"unknown field", purchaseBody(func(m map[string]any) { m["surprise"] = 1 }), http.StatusBadRequest},
		{"terms not accepted", purchaseBody(func(m map[string]any) { m["accepted_terms"] = false }), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.purchases.Create(rec, httptest.NewRequest(http.MethodPost, "/purchases", tc.body))
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.status, rec.Body)
			}
		})
	}
}

func TestPurchaseEndpointWalletRejection(t *testing.T) {
	f := newFixture(t)
	f.gw.RejectSigner = true

	rec := httptest.NewRecorder()
	f.purchases.Create(rec, httptest.NewRequest(http.MethodPost, "/purchases", purchaseBody(nil)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body)
	}
}

func TestPurchaseEndpointInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.gw.SetTokenBalance(domain.Address(buyerHex), big.NewInt(1))

	rec := httptest.NewRecorder()
	f.purchases.Create(rec, httptest.NewRequest(http.MethodPost, "/purchases", purchaseBody(nil)))
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402: %s", rec.Code, rec.Body)
	}

	res := decodeBody[map[string]string](t, rec)
	if res["asset"] != "token" {
		t.Errorf("asset = %q, want token", res["asset"])
	}
	if res["shortfall"] != "999" {
		t.Errorf("shortfall = %q, want 999", res["shortfall"])
	}
}

func TestClaimEndpoint(t *testing.T) {
	f := newFixture(t)
	now := time.Now().Unix()
	delayedID := f.gw.AddPolicy(ledger.MockPolicy{
		Insured: domain.Address(buyerHex), ContainerID: "C",
		ExpectedArrival: now - 10*86400, Status: domain.StatusDelayed,
	})
	onTimeID := f.gw.AddPolicy(ledger.MockPolicy{
		Insured: domain.Address(buyerHex), ContainerID: "D",
		ExpectedArrival: now + 10*86400, Status: domain.StatusActive,
	})

	claimReq := func(id uint64) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(dto.ClaimRequest{Claimant: buyerHex, PolicyID: id})
		rec := httptest.NewRecorder()
		f.claims.Create(rec, httptest.NewRequest(http.MethodPost, "/claims", strings.NewReader(string(raw))))
		return rec
	}

	rec := claimReq(onTimeID)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("on-time claim status = %d, want 422: %s", rec.Code, rec.Body)
	}

	rec = claimReq(delayedID)
	if rec.Code != http.StatusOK {
		t.Fatalf("claim status = %d, want 200: %s", rec.Code, rec.Body)
	}
	res := decodeBody[dto.ClaimResponse](t, rec)
	if res.Attempt.Status != "confirmed" {
		t.Errorf("attempt status = %q, want confirmed", res.Attempt.Status)
	}
	if res.Policy == nil {
		t.Fatal("refreshed policy missing")
	}
	if res.Policy.ClaimedDays != 10 {
		t.Errorf("claimed days = %d, want 10", res.Policy.ClaimedDays)
	}
}
