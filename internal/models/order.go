package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a placed order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusRefunded  OrderStatus = "refunded"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a placed order. Unlike a live cart its contents are frozen;
// recalculation happens for admin edits and for refund adjustments.
type Order struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customer_id"`
	Status     OrderStatus `json:"status"`

	Lines []CartLine `json:"lines"`
	Fees  []CartFee  `json:"fees,omitempty"`

	Shipping    *ShippingRate   `json:"shipping,omitempty"`
	ShippingTax decimal.Decimal `json:"shipping_tax"`

	Destination Address  `json:"destination"`
	Origin      *Address `json:"origin,omitempty"`

	Certificate *ExemptionCertificate `json:"certificate,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalTax sums product, fee, and shipping tax.
func (o *Order) TotalTax() decimal.Decimal {
	total := o.ShippingTax
	for i := range o.Lines {
		total = total.Add(o.Lines[i].Tax)
	}
	for i := range o.Fees {
		total = total.Add(o.Fees[i].Tax)
	}
	return total
}
