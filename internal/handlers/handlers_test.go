package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/tax"
)

type flatLookup struct{ rate decimal.Decimal }

func (l *flatLookup) Lookup(_ context.Context, req *models.LookupRequest) (*models.LookupResponse, error) {
	items := make([]models.ItemTax, 0, len(req.Items))
	for _, item := range req.Items {
		amount := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Mul(l.rate).Round(2)
		items = append(items, models.ItemTax{Index: item.Index, TaxAmount: amount})
	}
	return &models.LookupResponse{CartID: req.CartID, Items: items}, nil
}

type passVerifier struct{}

func (passVerifier) VerifyAddress(_ context.Context, addr models.Address) (models.Address, error) {
	addr.Verified = true
	return addr, nil
}

type resultsStub struct {
	stored map[string][]*models.PackageResult
	err    error
}

func (s *resultsStub) Replace(_ context.Context, cartID string, results []*models.PackageResult) error {
	return s.err
}

func (s *resultsStub) GetByCartID(_ context.Context, cartID string) ([]*models.PackageResult, error) {
	return s.stored[cartID], s.err
}

func (s *resultsStub) Delete(_ context.Context, _ string) error { return s.err }

var _ repository.ResultRepository = (*resultsStub)(nil)

func testConfig() *config.Config {
	return &config.Config{
		TaxCloud: config.TaxCloudConfig{APILoginID: "login-1", APIKey: "key-1"},
		Tax: config.TaxConfig{
			Basis:            "unit",
			DefaultTIC:       "00000",
			FeeTIC:           "10010",
			ShippingTIC:      "11010",
			SupportedCountry: "US",
		},
	}
}

func newTestHandlers(cfg *config.Config, creds tax.CredentialCheck, results repository.ResultRepository) *Handlers {
	logger := logging.NewLogger("test")
	opts := tax.OptionsFromConfig(cfg.Tax)

	origin := models.Address{ID: "wh-ny", Line1: "100 Depot Way", City: "Albany", State: "NY", PostalCode: "12207", Country: "US"}
	builder := tax.NewPackageBuilder(passVerifier{}, tax.StaticOrigins{origin}, tax.NewCertificateResolver(nil, logger), opts, logger)
	cache := tax.NewLookupCache(nil, nil, logger)
	calculator := tax.NewCalculator(&flatLookup{rate: decimal.RequireFromString("0.08625")}, builder, cache, results, nil, creds, opts, logger)

	return NewHandlers(calculator, results, nil, cfg)
}

func testRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/tax/calculations", h.CalculateCart)
	r.POST("/api/v1/tax/orders/:id/calculate", h.CalculateOrder)
	r.GET("/api/v1/tax/orders/:id/packages", h.GetOrderPackages)
	return r
}

func cartBody() []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"id":          "cart-1",
		"customer_id": "cust-1",
		"lines": []map[string]interface{}{
			{"product_id": "prod-1", "unit_price": "19.99", "subtotal": "19.99", "quantity": 1},
		},
		"destination": map[string]string{
			"line1":       "55 Water St",
			"city":        "New York",
			"state":       "NY",
			"postal_code": "10041",
			"country":     "US",
		},
	})
	return body
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Health(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}

	if resp["service"] != "tax-service" {
		t.Errorf("Expected service 'tax-service', got %v", resp["service"])
	}
}

func TestLive(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Live(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestReadyWithoutCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	cfg.TaxCloud = config.TaxCloudConfig{}

	h := NewHandlers(nil, nil, nil, cfg)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Ready(c)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestReadyWithCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandlers(nil, nil, nil, testConfig())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	h.Ready(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestCalculateCart(t *testing.T) {
	h := newTestHandlers(testConfig(), nil, nil)
	r := testRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tax/calculations", bytes.NewReader(cartBody()))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		TotalTax decimal.Decimal `json:"total_tax"`
		Cart     models.Cart     `json:"cart"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.TotalTax.String() != "1.72" {
		t.Errorf("Expected total tax 1.72, got %s", resp.TotalTax)
	}
	if len(resp.Cart.Lines) != 1 || resp.Cart.Lines[0].Tax.String() != "1.72" {
		t.Errorf("Expected line tax 1.72, got %+v", resp.Cart.Lines)
	}
}

func TestCalculateCartValidation(t *testing.T) {
	h := newTestHandlers(testConfig(), nil, nil)
	r := testRouter(h)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{not json"},
		{"missing cart id", `{"customer_id":"cust-1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/tax/calculations", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestCalculateCartMissingCredentials(t *testing.T) {
	h := newTestHandlers(testConfig(), func() bool { return false }, nil)
	r := testRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tax/calculations", bytes.NewReader(cartBody()))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestCalculateOrderUsesPathID(t *testing.T) {
	results := &resultsStub{stored: map[string][]*models.PackageResult{}}
	h := newTestHandlers(testConfig(), nil, results)
	r := testRouter(h)

	body, _ := json.Marshal(map[string]interface{}{
		"customer_id": "cust-1",
		"lines": []map[string]interface{}{
			{"product_id": "prod-1", "unit_price": "5.00", "subtotal": "5.00", "quantity": 1},
		},
		"destination": map[string]string{
			"line1": "55 Water St", "city": "New York", "state": "NY", "postal_code": "10041", "country": "US",
		},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tax/orders/order-77/calculate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Order models.Order `json:"order"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Order.ID != "order-77" {
		t.Errorf("Expected order ID from path, got %s", resp.Order.ID)
	}
}

func TestGetOrderPackages(t *testing.T) {
	results := &resultsStub{stored: map[string][]*models.PackageResult{
		"order-1": {{Key: "k1", CartID: "order-1_0"}},
	}}
	h := newTestHandlers(testConfig(), nil, results)
	r := testRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tax/orders/order-1/packages", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		OrderID  string                  `json:"order_id"`
		Packages []*models.PackageResult `json:"packages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.OrderID != "order-1" {
		t.Errorf("Expected order-1, got %s", resp.OrderID)
	}
	if len(resp.Packages) != 1 {
		t.Errorf("Expected 1 package, got %d", len(resp.Packages))
	}
}

func TestGetOrderPackagesWithoutPersistence(t *testing.T) {
	h := newTestHandlers(testConfig(), nil, nil)
	r := testRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tax/orders/order-1/packages", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotImplemented {
		t.Errorf("Expected status 501, got %d", w.Code)
	}
}

func TestGetOrderPackagesRepositoryError(t *testing.T) {
	results := &resultsStub{err: errors.New("postgres down")}
	h := newTestHandlers(testConfig(), nil, results)
	r := testRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tax/orders/order-1/packages", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}
