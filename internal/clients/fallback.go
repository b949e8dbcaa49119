package clients

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
)

// FlatRateFallback computes tax locally at a single flat rate instead
// of calling the remote API. Exists for development environments where
// no TaxCloud sandbox account is available.
//
// Deprecated: Use TaxCloudClient in any deployed environment. The flat
// rate ignores jurisdictions, TICs, and exemptions entirely.
// TODO(TEAM-TAX): Remove once the shared sandbox account lands (TAX-312).
type FlatRateFallback struct {
	rate   decimal.Decimal
	logger *logging.Logger
}

// NewFlatRateFallback creates a fallback client with the given rate
// (e.g. 0.08625 for 8.625%).
//
// Deprecated: Use NewTaxCloudClient instead.
func NewFlatRateFallback(rate decimal.Decimal, logger *logging.Logger) *FlatRateFallback {
	logger.Warn("Using flat-rate tax fallback; amounts are NOT jurisdiction-accurate")
	return &FlatRateFallback{rate: rate, logger: logger}
}

// Lookup applies the flat rate to every request row.
func (c *FlatRateFallback) Lookup(_ context.Context, req *models.LookupRequest) (*models.LookupResponse, error) {
	items := make([]models.ItemTax, 0, len(req.Items))
	for _, item := range req.Items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items = append(items, models.ItemTax{
			Index:     item.Index,
			TaxAmount: line.Mul(c.rate).Round(2),
		})
	}
	return &models.LookupResponse{CartID: req.CartID, Items: items}, nil
}

// VerifyAddress passes the address through unmodified.
func (c *FlatRateFallback) VerifyAddress(_ context.Context, addr models.Address) (models.Address, error) {
	addr.Verified = true
	return addr, nil
}
