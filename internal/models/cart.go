package models

import "github.com/shopspring/decimal"

// CartLine is a product line in a live cart.
type CartLine struct {
	ProductID string          `json:"product_id"`
	TIC       string          `json:"tic,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Quantity  int             `json:"quantity"`
	Tax       decimal.Decimal `json:"tax"`
}

// CartFee is a cart-level fee. A negative amount represents a
// discount carried as a fee line.
type CartFee struct {
	ID      string          `json:"id"`
	Label   string          `json:"label,omitempty"`
	TIC     string          `json:"tic,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
	Taxable bool            `json:"taxable"`
	Tax     decimal.Decimal `json:"tax"`
}

// Cart is a live shopping cart mid-checkout. Tax fields are mutated
// only by the calculation engine's apply phase.
type Cart struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`

	Lines []CartLine `json:"lines"`
	Fees  []CartFee  `json:"fees,omitempty"`

	Shipping    *ShippingRate   `json:"shipping,omitempty"`
	ShippingTax decimal.Decimal `json:"shipping_tax"`

	Destination Address `json:"destination"`

	// Origin, when set, was assigned upstream (multi-seller
	// integrations) and suppresses origin-based splitting.
	Origin *Address `json:"origin,omitempty"`

	Certificate *ExemptionCertificate `json:"certificate,omitempty"`
}

// TotalTax sums product, fee, and shipping tax.
func (c *Cart) TotalTax() decimal.Decimal {
	total := c.ShippingTax
	for i := range c.Lines {
		total = total.Add(c.Lines[i].Tax)
	}
	for i := range c.Fees {
		total = total.Add(c.Fees[i].Tax)
	}
	return total
}
