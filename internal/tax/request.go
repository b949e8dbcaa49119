package tax

import (
	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
)

// BasisUnit and BasisSubtotal are the recognized tax basis policies.
const (
	BasisUnit     = "unit"
	BasisSubtotal = "subtotal"
)

// BuildRequest converts a package into the normalized lookup request
// for the tax engine. Items keep their package order and receive
// zero-based indexes; the engine's response is mapped back by that
// index, so it must be preserved exactly.
func BuildRequest(pkg *models.Package, customerID, cartID string, opts Options) *models.LookupRequest {
	items := make([]models.CartItem, 0, len(pkg.Items))
	for i, entry := range pkg.Items {
		price, quantity := basisPrice(entry, opts)
		if opts.PriceOverride != nil {
			price = opts.PriceOverride(entry)
		}

		items = append(items, models.CartItem{
			Index:    i,
			ItemID:   entry.ItemID,
			TIC:      entryTIC(entry, pkg, opts),
			Price:    price,
			Quantity: quantity,
		})
	}

	return &models.LookupRequest{
		CustomerID:        customerID,
		CartID:            cartID,
		Items:             items,
		Origin:            pkg.Origin,
		Destination:       pkg.Destination,
		DeliveredBySeller: pkg.DeliveredBySeller,
		Certificate:       pkg.Certificate,
	}
}

// basisPrice selects the price/quantity pair for an entry. Product
// entries follow the configured basis; fees and shipping are always a
// single row at their full amount.
func basisPrice(entry models.LineItem, opts Options) (decimal.Decimal, int) {
	if entry.Kind != models.ItemKindProduct {
		return entry.Price, 1
	}
	if opts.Basis == BasisSubtotal {
		return entry.Subtotal, 1
	}
	return entry.Price, entry.Quantity
}

func entryTIC(entry models.LineItem, pkg *models.Package, opts Options) string {
	switch entry.Kind {
	case models.ItemKindShipping:
		method := ""
		if pkg.Shipping != nil {
			method = pkg.Shipping.MethodID
		}
		return opts.shippingTIC(method)
	case models.ItemKindFee:
		if opts.FeeTICOverride != nil {
			if tic := opts.FeeTICOverride(entry); tic != "" {
				return tic
			}
		}
		if entry.TIC != "" {
			return entry.TIC
		}
		return opts.FeeTIC
	default:
		if entry.TIC != "" {
			return entry.TIC
		}
		return opts.DefaultTIC
	}
}
