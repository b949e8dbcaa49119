package tax

import (
	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
)

// PackageProvider abstracts the thing being taxed: a live cart during
// checkout, or a placed order being edited or refunded. The Set*Tax
// sinks are the only place the calculation engine mutates cart/order
// state.
type PackageProvider interface {
	CartID() string
	CustomerID() string

	// Entries returns the product and fee lines. Shipping travels
	// separately via ShippingRate.
	Entries() []models.LineItem
	Destination() models.Address

	// Origin returns a non-nil address when an upstream integration
	// already assigned one, which suppresses origin-based splitting.
	Origin() *models.Address
	ShippingRate() *models.ShippingRate

	// Certificate returns a cart-attached single-purchase certificate,
	// or nil. Entity certificates come from the certificate store.
	Certificate() *models.ExemptionCertificate

	ResetTaxes()
	SetProductTax(productID string, amount decimal.Decimal)
	SetFeeTax(feeID string, amount decimal.Decimal)
	SetShippingTax(amount decimal.Decimal)
}

var (
	_ PackageProvider = (*CartProvider)(nil)
	_ PackageProvider = (*OrderProvider)(nil)
)

// CartProvider adapts a live cart.
type CartProvider struct {
	Cart *models.Cart
}

func (p *CartProvider) CartID() string     { return p.Cart.ID }
func (p *CartProvider) CustomerID() string { return p.Cart.CustomerID }

func (p *CartProvider) Entries() []models.LineItem {
	return entriesFromLines(p.Cart.Lines, p.Cart.Fees)
}

func (p *CartProvider) Destination() models.Address { return p.Cart.Destination }
func (p *CartProvider) Origin() *models.Address     { return p.Cart.Origin }

func (p *CartProvider) ShippingRate() *models.ShippingRate { return p.Cart.Shipping }

func (p *CartProvider) Certificate() *models.ExemptionCertificate { return p.Cart.Certificate }

func (p *CartProvider) ResetTaxes() {
	for i := range p.Cart.Lines {
		p.Cart.Lines[i].Tax = decimal.Zero
	}
	for i := range p.Cart.Fees {
		p.Cart.Fees[i].Tax = decimal.Zero
	}
	p.Cart.ShippingTax = decimal.Zero
}

func (p *CartProvider) SetProductTax(productID string, amount decimal.Decimal) {
	for i := range p.Cart.Lines {
		if p.Cart.Lines[i].ProductID == productID {
			p.Cart.Lines[i].Tax = amount
			return
		}
	}
}

func (p *CartProvider) SetFeeTax(feeID string, amount decimal.Decimal) {
	for i := range p.Cart.Fees {
		if p.Cart.Fees[i].ID == feeID {
			p.Cart.Fees[i].Tax = amount
			return
		}
	}
}

func (p *CartProvider) SetShippingTax(amount decimal.Decimal) {
	p.Cart.ShippingTax = amount
}

// OrderProvider adapts a placed order.
type OrderProvider struct {
	Order *models.Order
}

func (p *OrderProvider) CartID() string     { return p.Order.ID }
func (p *OrderProvider) CustomerID() string { return p.Order.CustomerID }

func (p *OrderProvider) Entries() []models.LineItem {
	return entriesFromLines(p.Order.Lines, p.Order.Fees)
}

func (p *OrderProvider) Destination() models.Address { return p.Order.Destination }
func (p *OrderProvider) Origin() *models.Address     { return p.Order.Origin }

func (p *OrderProvider) ShippingRate() *models.ShippingRate { return p.Order.Shipping }

func (p *OrderProvider) Certificate() *models.ExemptionCertificate { return p.Order.Certificate }

func (p *OrderProvider) ResetTaxes() {
	for i := range p.Order.Lines {
		p.Order.Lines[i].Tax = decimal.Zero
	}
	for i := range p.Order.Fees {
		p.Order.Fees[i].Tax = decimal.Zero
	}
	p.Order.ShippingTax = decimal.Zero
}

func (p *OrderProvider) SetProductTax(productID string, amount decimal.Decimal) {
	for i := range p.Order.Lines {
		if p.Order.Lines[i].ProductID == productID {
			p.Order.Lines[i].Tax = amount
			return
		}
	}
}

func (p *OrderProvider) SetFeeTax(feeID string, amount decimal.Decimal) {
	for i := range p.Order.Fees {
		if p.Order.Fees[i].ID == feeID {
			p.Order.Fees[i].Tax = amount
			return
		}
	}
}

func (p *OrderProvider) SetShippingTax(amount decimal.Decimal) {
	p.Order.ShippingTax = amount
}

// entriesFromLines flattens product lines and taxable fees into the
// LineItem form the package builder consumes. Non-taxable fees never
// enter a package.
func entriesFromLines(lines []models.CartLine, fees []models.CartFee) []models.LineItem {
	entries := make([]models.LineItem, 0, len(lines)+len(fees))
	for _, line := range lines {
		entries = append(entries, models.LineItem{
			Kind:     models.ItemKindProduct,
			ItemID:   line.ProductID,
			TIC:      line.TIC,
			Price:    line.UnitPrice,
			Subtotal: line.Subtotal,
			Quantity: line.Quantity,
		})
	}
	for _, fee := range fees {
		if !fee.Taxable {
			continue
		}
		entries = append(entries, models.LineItem{
			Kind:     models.ItemKindFee,
			ItemID:   fee.ID,
			TIC:      fee.TIC,
			Price:    fee.Amount,
			Subtotal: fee.Amount,
			Quantity: 1,
		})
	}
	return entries
}
