package models

import "github.com/shopspring/decimal"

// ItemKind identifies what kind of charge a line item represents.
type ItemKind string

const (
	ItemKindProduct  ItemKind = "product"
	ItemKindFee      ItemKind = "fee"
	ItemKindShipping ItemKind = "shipping"
)

// ShippingItemID is the fixed item ID used for the shipping line in
// lookup requests. The shipping charge has no product behind it, so a
// sentinel keeps response mapping uniform.
const ShippingItemID = "SHIPPING"

// LineItem is one taxable unit contributed to a package: a product
// line, a cart fee, or the shipping charge.
type LineItem struct {
	Kind   ItemKind `json:"kind"`
	ItemID string   `json:"item_id"`

	// TIC is the taxability code sent to the tax engine. Empty means
	// "use the configured default for this kind".
	TIC string `json:"tic"`

	// Price is the post-discount unit price. Negative prices are only
	// valid for fees (a fee can represent a cart-level discount).
	Price decimal.Decimal `json:"price"`

	// Subtotal is the discounted line subtotal (price * quantity for
	// simple lines). Which of Price/Subtotal is sent to the tax engine
	// depends on the configured tax basis.
	Subtotal decimal.Decimal `json:"subtotal"`

	Quantity int `json:"quantity"`
}

// ShippingRate describes the shipping method chosen for a cart or
// order and its cost.
type ShippingRate struct {
	MethodID string          `json:"method_id"`
	Label    string          `json:"label,omitempty"`
	Cost     decimal.Decimal `json:"cost"`

	// LocalDelivery is true when the method is a seller-operated local
	// delivery. Some jurisdictions tax those differently, so the flag
	// travels with every lookup request.
	LocalDelivery bool `json:"local_delivery,omitempty"`
}

// ShippingItem converts the rate into the line item shape used inside
// packages and lookup requests.
func (r *ShippingRate) ShippingItem() LineItem {
	return LineItem{
		Kind:     ItemKindShipping,
		ItemID:   ShippingItemID,
		Price:    r.Cost,
		Subtotal: r.Cost,
		Quantity: 1,
	}
}
