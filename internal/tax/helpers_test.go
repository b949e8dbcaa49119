package tax

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/repository"
)

// Shared test doubles for the calculation engine.

type verifierFunc func(ctx context.Context, addr models.Address) (models.Address, error)

func (f verifierFunc) VerifyAddress(ctx context.Context, addr models.Address) (models.Address, error) {
	return f(ctx, addr)
}

// passVerifier accepts every address unchanged, marking it verified.
func passVerifier() verifierFunc {
	return func(_ context.Context, addr models.Address) (models.Address, error) {
		addr.Verified = true
		return addr, nil
	}
}

type lookupFunc func(ctx context.Context, req *models.LookupRequest) (*models.LookupResponse, error)

func (f lookupFunc) Lookup(ctx context.Context, req *models.LookupRequest) (*models.LookupResponse, error) {
	return f(ctx, req)
}

// rateLookup answers every request with a flat percentage of each
// row's extended price, rounded to cents.
func rateLookup(rate decimal.Decimal) lookupFunc {
	return func(_ context.Context, req *models.LookupRequest) (*models.LookupResponse, error) {
		items := make([]models.ItemTax, 0, len(req.Items))
		for _, item := range req.Items {
			amount := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Mul(rate).Round(2)
			items = append(items, models.ItemTax{Index: item.Index, TaxAmount: amount})
		}
		return &models.LookupResponse{CartID: req.CartID, Items: items}, nil
	}
}

// originMap resolves origins per product ID. Missing products resolve
// to no candidates.
type originMap map[string][]models.Address

func (m originMap) ProductOrigins(_ context.Context, productID string) ([]models.Address, error) {
	return m[productID], nil
}

type certStoreStub struct {
	active *models.ExemptionCertificate
	err    error
	calls  int
}

func (s *certStoreStub) GetActive(_ context.Context, _ string) (*models.ExemptionCertificate, error) {
	s.calls++
	return s.active, s.err
}

func (s *certStoreStub) GetByID(_ context.Context, _ string) (*models.ExemptionCertificate, error) {
	return s.active, s.err
}

type resultsStub struct {
	replaced map[string][]*models.PackageResult
	err      error
}

func newResultsStub() *resultsStub {
	return &resultsStub{replaced: make(map[string][]*models.PackageResult)}
}

func (s *resultsStub) Replace(_ context.Context, cartID string, results []*models.PackageResult) error {
	if s.err != nil {
		return s.err
	}
	s.replaced[cartID] = results
	return nil
}

func (s *resultsStub) GetByCartID(_ context.Context, cartID string) ([]*models.PackageResult, error) {
	return s.replaced[cartID], s.err
}

func (s *resultsStub) Delete(_ context.Context, cartID string) error {
	delete(s.replaced, cartID)
	return s.err
}

type eventsRecorder struct {
	calculated []string
	failed     []error
}

func (r *eventsRecorder) TaxCalculated(_ context.Context, cartID, _ string, _ []*models.PackageResult) {
	r.calculated = append(r.calculated, cartID)
}

func (r *eventsRecorder) TaxCalculationFailed(_ context.Context, _, _ string, err error) {
	r.failed = append(r.failed, err)
}

func testLogger() *logging.Logger { return logging.NewLogger("test") }

func testOpts() Options {
	return Options{
		Basis:            BasisUnit,
		DefaultTIC:       "00000",
		FeeTIC:           "10010",
		ShippingTIC:      "11010",
		SupportedCountry: "US",
	}
}

func originNY() models.Address {
	return models.Address{ID: "wh-ny", Line1: "100 Depot Way", City: "Albany", State: "NY", PostalCode: "12207", Country: "US"}
}

func originCA() models.Address {
	return models.Address{ID: "wh-ca", Line1: "9 Harbor Rd", City: "Oakland", State: "CA", PostalCode: "94607", Country: "US"}
}

func destNY() models.Address {
	return models.Address{Line1: "55 Water St", City: "New York", State: "NY", PostalCode: "10041", Country: "US"}
}

// calcFixture builds a Calculator with sensible defaults; tests
// override only the collaborators they exercise.
type calcFixture struct {
	lookup   LookupService
	verifier AddressVerifier
	origins  OriginResolver
	certs    CertificateStore
	store    repository.LookupStore
	results  repository.ResultRepository
	events   EventSink
	creds    CredentialCheck
	opts     *Options
}

func (f calcFixture) build() *Calculator {
	opts := testOpts()
	if f.opts != nil {
		opts = *f.opts
	}
	if f.lookup == nil {
		f.lookup = rateLookup(decimal.Zero)
	}
	if f.verifier == nil {
		f.verifier = passVerifier()
	}
	if f.origins == nil {
		f.origins = StaticOrigins{originNY()}
	}

	resolver := NewCertificateResolver(f.certs, testLogger())
	builder := NewPackageBuilder(f.verifier, f.origins, resolver, opts, testLogger())
	cache := NewLookupCache(f.store, func() string { return "1" }, testLogger())

	return NewCalculator(f.lookup, builder, cache, f.results, f.events, f.creds, opts, testLogger())
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func product(id, price string, qty int) models.LineItem {
	p := dec(price)
	return models.LineItem{
		Kind:     models.ItemKindProduct,
		ItemID:   id,
		Price:    p,
		Subtotal: p.Mul(decimal.NewFromInt(int64(qty))),
		Quantity: qty,
	}
}

func fee(id, amount string) models.LineItem {
	a := dec(amount)
	return models.LineItem{
		Kind:     models.ItemKindFee,
		ItemID:   id,
		Price:    a,
		Subtotal: a,
		Quantity: 1,
	}
}
