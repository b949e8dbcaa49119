package tax

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
)

func newBuilder(verifier AddressVerifier, origins OriginResolver, certs CertificateStore, opts Options) *PackageBuilder {
	return NewPackageBuilder(verifier, origins, NewCertificateResolver(certs, testLogger()), opts, testLogger())
}

func TestSplitPartitionsByOrigin(t *testing.T) {
	origins := originMap{
		"prod-1": {originNY()},
		"prod-2": {originCA()},
		"prod-3": {originNY()},
	}
	builder := newBuilder(passVerifier(), origins, nil, testOpts())

	entries := []models.LineItem{
		product("prod-1", "19.99", 1),
		product("prod-2", "5.00", 2),
		product("prod-3", "12.50", 1),
	}

	packages, err := builder.Split(context.Background(), SplitInput{
		CustomerID:  "cust-1",
		Entries:     entries,
		Destination: destNY(),
	})
	require.NoError(t, err)
	require.Len(t, packages, 2)

	// Every entry lands in exactly one package, and no package mixes
	// origins.
	seen := map[string]int{}
	for _, pkg := range packages {
		for _, item := range pkg.Items {
			seen[item.ItemID]++
		}
	}
	assert.Equal(t, map[string]int{"prod-1": 1, "prod-2": 1, "prod-3": 1}, seen)

	assert.Equal(t, "wh-ny", packages[0].Origin.ID)
	assert.Len(t, packages[0].Items, 2)
	assert.Equal(t, "wh-ca", packages[1].Origin.ID)
	assert.Len(t, packages[1].Items, 1)
}

func TestSplitUpstreamOriginSuppressesSplitting(t *testing.T) {
	// The resolver would split these two products; an upstream origin
	// overrides it.
	origins := originMap{
		"prod-1": {originNY()},
		"prod-2": {originCA()},
	}
	builder := newBuilder(passVerifier(), origins, nil, testOpts())

	upstream := models.Address{ID: "seller-7", Line1: "1 Market St", City: "Austin", State: "TX", PostalCode: "78701", Country: "US"}

	packages, err := builder.Split(context.Background(), SplitInput{
		Entries:     []models.LineItem{product("prod-1", "10.00", 1), product("prod-2", "20.00", 1)},
		Destination: destNY(),
		Origin:      &upstream,
	})
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, "seller-7", packages[0].Origin.ID)
	assert.Len(t, packages[0].Items, 2)
}

func TestSplitOriginSelection(t *testing.T) {
	tests := []struct {
		name       string
		candidates []models.Address
		wantID     string
	}{
		{
			name:       "single candidate used as-is",
			candidates: []models.Address{originCA()},
			wantID:     "wh-ca",
		},
		{
			name:       "destination state match wins",
			candidates: []models.Address{originCA(), originNY()},
			wantID:     "wh-ny",
		},
		{
			name: "no state match falls back to first",
			candidates: []models.Address{
				originCA(),
				{ID: "wh-tx", Line1: "2 Ranch Rd", City: "Dallas", State: "TX", PostalCode: "75201", Country: "US"},
			},
			wantID: "wh-ca",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := newBuilder(passVerifier(), originMap{"prod-1": tt.candidates}, nil, testOpts())

			packages, err := builder.Split(context.Background(), SplitInput{
				Entries:     []models.LineItem{product("prod-1", "10.00", 1)},
				Destination: destNY(),
			})
			require.NoError(t, err)
			require.Len(t, packages, 1)
			assert.Equal(t, tt.wantID, packages[0].Origin.ID)
		})
	}
}

func TestSplitMissingOriginAborts(t *testing.T) {
	builder := newBuilder(passVerifier(), originMap{}, nil, testOpts())

	_, err := builder.Split(context.Background(), SplitInput{
		Entries:     []models.LineItem{product("prod-1", "10.00", 1)},
		Destination: destNY(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingOrigin))
}

func TestSplitFeesAndShippingRideFirstPackage(t *testing.T) {
	origins := originMap{
		"prod-1": {originNY()},
		"prod-2": {originCA()},
	}
	builder := newBuilder(passVerifier(), origins, nil, testOpts())

	packages, err := builder.Split(context.Background(), SplitInput{
		Entries: []models.LineItem{
			fee("fee-gift-wrap", "3.00"),
			product("prod-1", "19.99", 1),
			product("prod-2", "5.00", 1),
		},
		Destination: destNY(),
		Shipping:    &models.ShippingRate{MethodID: "flat_rate", Cost: dec("7.50")},
	})
	require.NoError(t, err)
	require.Len(t, packages, 2)

	// Fee listed before any product still rides in the first package,
	// together with the shipping line.
	first := packages[0]
	ids := make([]string, 0, len(first.Items))
	for _, item := range first.Items {
		ids = append(ids, item.ItemID)
	}
	assert.Contains(t, ids, "fee-gift-wrap")
	assert.Contains(t, ids, models.ShippingItemID)
	require.NotNil(t, first.Shipping)
	assert.Equal(t, "flat_rate", first.Shipping.MethodID)
	assert.False(t, first.DeliveredBySeller)

	second := packages[1]
	assert.Nil(t, second.Shipping)
	for _, item := range second.Items {
		assert.Equal(t, models.ItemKindProduct, item.Kind)
	}
}

func TestSplitLocalDeliveryFlag(t *testing.T) {
	opts := testOpts()
	opts.LocalDeliveryMethods = []string{"local_pickup_plus"}
	builder := newBuilder(passVerifier(), StaticOrigins{originNY()}, nil, opts)

	packages, err := builder.Split(context.Background(), SplitInput{
		Entries:     []models.LineItem{product("prod-1", "10.00", 1)},
		Destination: destNY(),
		Shipping:    &models.ShippingRate{MethodID: "local_pickup_plus", Cost: dec("2.00")},
	})
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.True(t, packages[0].DeliveredBySeller)
}

func TestSplitFeeOnlyCartUsesDefaultOrigin(t *testing.T) {
	builder := newBuilder(passVerifier(), StaticOrigins{originNY()}, nil, testOpts())

	packages, err := builder.Split(context.Background(), SplitInput{
		Entries:     []models.LineItem{fee("fee-1", "4.00"), fee("fee-2", "6.00")},
		Destination: destNY(),
	})
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, "wh-ny", packages[0].Origin.ID)
	assert.Len(t, packages[0].Items, 2)
}

func TestSplitVerificationFailureSurfaced(t *testing.T) {
	boom := errors.New("address service unavailable")
	verifier := verifierFunc(func(_ context.Context, _ models.Address) (models.Address, error) {
		return models.Address{}, boom
	})
	builder := newBuilder(verifier, StaticOrigins{originNY()}, nil, testOpts())

	_, err := builder.Split(context.Background(), SplitInput{
		Entries:     []models.LineItem{product("prod-1", "10.00", 1)},
		Destination: destNY(),
	})
	require.Error(t, err)

	var verr *VerificationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, errors.Is(err, boom))
}

func TestSplitCertificateAttachedToAllPackages(t *testing.T) {
	cert := &models.ExemptionCertificate{ID: "cert-9"}
	origins := originMap{
		"prod-1": {originNY()},
		"prod-2": {originCA()},
	}
	builder := newBuilder(passVerifier(), origins, &certStoreStub{active: cert}, testOpts())

	packages, err := builder.Split(context.Background(), SplitInput{
		CustomerID:  "cust-1",
		Entries:     []models.LineItem{product("prod-1", "10.00", 1), product("prod-2", "20.00", 1)},
		Destination: destNY(),
	})
	require.NoError(t, err)
	require.Len(t, packages, 2)
	for _, pkg := range packages {
		require.NotNil(t, pkg.Certificate)
		assert.Equal(t, "cert-9", pkg.Certificate.ID)
	}
}

func TestSplitCertificateStoreFailureDoesNotBlock(t *testing.T) {
	builder := newBuilder(passVerifier(), StaticOrigins{originNY()}, &certStoreStub{err: errors.New("store down")}, testOpts())

	packages, err := builder.Split(context.Background(), SplitInput{
		CustomerID:  "cust-1",
		Entries:     []models.LineItem{product("prod-1", "10.00", 1)},
		Destination: destNY(),
	})
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Nil(t, packages[0].Certificate)
}
