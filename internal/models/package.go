package models

import "github.com/shopspring/decimal"

// Package is the unit of work sent to the tax engine: a group of line
// items sharing one origin and one destination. Item order is
// significant; the zero-based position doubles as the correlation key
// for mapping the engine's response back onto items.
type Package struct {
	Items       []LineItem            `json:"items"`
	Origin      Address               `json:"origin"`
	Destination Address               `json:"destination"`
	Certificate *ExemptionCertificate `json:"certificate,omitempty"`

	// Shipping is attached to exactly one package per cart, never
	// split across several.
	Shipping *ShippingRate `json:"shipping,omitempty"`

	// DeliveredBySeller is true when the shipping method is a local
	// delivery operated by the seller.
	DeliveredBySeller bool `json:"delivered_by_seller,omitempty"`
}

// CartItem is one row of a lookup request. Index is the zero-based
// position of the originating LineItem within its package.
type CartItem struct {
	Index    int             `json:"index"`
	ItemID   string          `json:"item_id"`
	TIC      string          `json:"tic"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// LookupRequest is the normalized request sent to the tax engine for
// one package.
type LookupRequest struct {
	CustomerID        string                `json:"customer_id"`
	CartID            string                `json:"cart_id"`
	Items             []CartItem            `json:"items"`
	Origin            Address               `json:"origin"`
	Destination       Address               `json:"destination"`
	DeliveredBySeller bool                  `json:"delivered_by_seller"`
	Certificate       *ExemptionCertificate `json:"certificate,omitempty"`
}

// ItemTax is the tax amount the engine computed for one request row.
type ItemTax struct {
	Index     int             `json:"index"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
}

// LookupResponse is the tax engine's answer for one lookup request.
type LookupResponse struct {
	CartID string    `json:"cart_id"`
	Items  []ItemTax `json:"items"`
}

// ResultItem records the outcome for one line of a completed lookup.
type ResultItem struct {
	Index     int             `json:"index"`
	Kind      ItemKind        `json:"kind"`
	ItemID    string          `json:"item_id"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
}

// PackageResult is the compressed, persistable record of a completed
// package lookup. It keeps only what capture and refund reporting need
// later, without re-deriving anything from a live cart.
type PackageResult struct {
	Key            string          `json:"key"`
	CartID         string          `json:"cart_id"`
	CustomerID     string          `json:"customer_id"`
	Items          []ResultItem    `json:"items"`
	ShippingMethod string          `json:"shipping_method,omitempty"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	Origin         Address         `json:"origin"`
	Destination    Address         `json:"destination"`
	CertificateID  string          `json:"certificate_id,omitempty"`
}

// TotalTax sums the per-item amounts of the result.
func (r *PackageResult) TotalTax() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.TaxAmount)
	}
	return total
}
