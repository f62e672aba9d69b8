package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FrankovDmutro/Store-inventory-system/internal/cache"
	"github.com/FrankovDmutro/Store-inventory-system/internal/domain"
	"github.com/FrankovDmutro/Store-inventory-system/internal/service"
	"github.com/FrankovDmutro/Store-inventory-system/internal/store/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopStockCache{}, decimal.NewFromInt(5))
	auth := NewAuthManager("test-secret", time.Hour, repo)
	api := New(svc, auth, "http://127.0.0.1:3000")

	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)
	return server
}

func login(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	resp, err := http.Post(server.URL+"/api/v1/auth/login", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d", resp.StatusCode)
	}
	var parsed domain.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return parsed.AccessToken
}

func doJSON(t *testing.T, method, url, token string, payload any) *http.Response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return resp
}

func TestCheckoutEndpoint(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server, "cashier", "cashier123")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/checkout", token, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: "prd-apple", Quantity: decimal.NewFromInt(2)}},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var parsed struct {
		Order domain.Order `json:"order"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode checkout response: %v", err)
	}
	if !parsed.Order.TotalPrice.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected total 20, got %s", parsed.Order.TotalPrice)
	}
}

func TestCheckoutInsufficientStockReturnsConflict(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server, "cashier", "cashier123")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/checkout", token, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: "prd-apple", Quantity: decimal.NewFromInt(1000)}},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if !strings.Contains(parsed.Error, "prd-apple") || !strings.Contains(parsed.Error, "1000") {
		t.Fatalf("expected error to name product and quantity, got %q", parsed.Error)
	}
}

func TestAuthRequired(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/products")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestRoleEnforcement(t *testing.T) {
	server := newTestServer(t)
	cashierToken := login(t, server, "cashier", "cashier123")

	// Cashiers cannot create products.
	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/products", cashierToken, domain.ProductCreateRequest{
		CategoryID: "cat-food", SKU: "X-1", Name: "X",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier product create, got %d", resp.StatusCode)
	}

	// Audit logs are admin only, rejected at the route.
	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/audit-logs", cashierToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier audit logs, got %d", resp.StatusCode)
	}

	adminToken := login(t, server, "admin", "admin123")
	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/audit-logs", adminToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for admin audit logs, got %d", resp.StatusCode)
	}
}

func TestPurchaseLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server, "manager", "manager123")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/purchases", token, domain.PurchaseDraftRequest{
		Lines: []domain.PurchaseDraftLine{
			{ProductID: "prd-apple", Quantity: decimal.NewFromInt(10), UnitCost: decimal.RequireFromString("4.50")},
			{ProductID: "prd-soap", Quantity: decimal.NewFromInt(3)},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var draft domain.PurchaseDraftResult
	if err := json.NewDecoder(resp.Body).Decode(&draft); err != nil {
		t.Fatalf("decode draft response: %v", err)
	}
	resp.Body.Close()
	if len(draft.Purchases) != 1 || len(draft.Skipped) != 1 {
		t.Fatalf("expected 1 purchase and 1 skipped line, got %d/%d", len(draft.Purchases), len(draft.Skipped))
	}
	id := draft.Purchases[0].ID

	for _, status := range []string{domain.PurchaseStatusOrdered, domain.PurchaseStatusReceived} {
		resp = doJSON(t, http.MethodPut, server.URL+"/api/v1/purchases/"+id+"/status", token,
			domain.PurchaseStatusRequest{Status: status})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("transition to %s returned %d", status, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// Replayed save of the received form stays 200 and does not double-apply.
	resp = doJSON(t, http.MethodPut, server.URL+"/api/v1/purchases/"+id+"/status", token,
		domain.PurchaseStatusRequest{Status: domain.PurchaseStatusReceived})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replayed receive returned %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/products/prd-apple", token, nil)
	defer resp.Body.Close()
	var parsed struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if !parsed.Product.Quantity.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected stock 60 after single apply, got %s", parsed.Product.Quantity)
	}
}

func TestReturnEndpointRejectsOverReturn(t *testing.T) {
	server := newTestServer(t)
	manager := login(t, server, "manager", "manager123")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/checkout", manager, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: "prd-bread", Quantity: decimal.NewFromInt(2)}},
	})
	var checkout struct {
		Order domain.Order `json:"order"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&checkout); err != nil {
		t.Fatalf("decode checkout: %v", err)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/orders/"+checkout.Order.ID+"/returns", manager,
		domain.ReturnRequest{
			Reason: domain.ReturnReasonDefective,
			Lines:  []domain.CartLine{{ProductID: "prd-bread", Quantity: decimal.NewFromInt(3)}},
		})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for over-return, got %d", resp.StatusCode)
	}
}

func TestReceiptEndpointRendersHTML(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server, "cashier", "cashier123")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/checkout", token, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: "prd-milk", Quantity: decimal.NewFromInt(1)}},
	})
	var checkout struct {
		Order domain.Order `json:"order"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&checkout); err != nil {
		t.Fatalf("decode checkout: %v", err)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/orders/"+checkout.Order.ID+"/receipt", token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html content type, got %s", ct)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read receipt: %v", err)
	}
	if !strings.Contains(buf.String(), "Milk 1L") {
		t.Fatalf("expected product name in receipt")
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
