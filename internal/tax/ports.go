package tax

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
)

// LookupService is the external tax engine. It owns all rate rules;
// this service only shapes requests and applies responses.
type LookupService interface {
	Lookup(ctx context.Context, req *models.LookupRequest) (*models.LookupResponse, error)
}

// AddressVerifier validates and normalizes a destination address.
type AddressVerifier interface {
	VerifyAddress(ctx context.Context, addr models.Address) (models.Address, error)
}

// CertificateStore reads exemption certificates. Absence of a
// certificate is not an error.
type CertificateStore interface {
	GetActive(ctx context.Context, customerID string) (*models.ExemptionCertificate, error)
	GetByID(ctx context.Context, id string) (*models.ExemptionCertificate, error)
}

// OriginResolver supplies the candidate origin addresses for a
// product. Ownership of origin data sits with the product catalog.
type OriginResolver interface {
	ProductOrigins(ctx context.Context, productID string) ([]models.Address, error)
}

// StaticOrigins is an OriginResolver returning the same configured
// address list for every product. Matches single-warehouse shops.
type StaticOrigins []models.Address

// ProductOrigins returns the static list regardless of product.
func (s StaticOrigins) ProductOrigins(_ context.Context, _ string) ([]models.Address, error) {
	return s, nil
}

// Options carries the calculation policy plus the override hooks a
// host can install. Every hook has a documented default; a nil hook
// means "use the default".
type Options struct {
	// Basis is "unit" or "subtotal"; see config.TaxConfig.Basis.
	// Applied uniformly within one request to avoid rounding drift.
	Basis string

	DefaultTIC  string
	FeeTIC      string
	ShippingTIC string

	// ShippingTICs maps shipping method IDs to TICs.
	ShippingTICs map[string]string

	SupportedCountry     string
	LocalDeliveryMethods []string

	// PriceOverride replaces the price sent for an entry. Default:
	// the basis-selected price from the entry itself.
	PriceOverride func(item models.LineItem) decimal.Decimal

	// FeeTICOverride replaces the TIC for a fee entry. Default: the
	// fee's own TIC, falling back to FeeTIC.
	FeeTICOverride func(item models.LineItem) string

	// ShippingTICOverride replaces the TIC for a shipping method.
	// Default: ShippingTICs[method], falling back to ShippingTIC.
	ShippingTICOverride func(methodID string) string

	// DestinationCheck decides whether a destination is complete
	// enough to look up. Default: country matches SupportedCountry
	// and a five-digit postal zone is present.
	DestinationCheck func(addr models.Address) bool
}

// OptionsFromConfig builds Options with all hooks at their defaults.
func OptionsFromConfig(cfg config.TaxConfig) Options {
	return Options{
		Basis:                cfg.Basis,
		DefaultTIC:           cfg.DefaultTIC,
		FeeTIC:               cfg.FeeTIC,
		ShippingTIC:          cfg.ShippingTIC,
		ShippingTICs:         cfg.ShippingTICs,
		SupportedCountry:     cfg.SupportedCountry,
		LocalDeliveryMethods: cfg.LocalDeliveryMethods,
	}
}

func (o Options) destinationComplete(addr models.Address) bool {
	if o.DestinationCheck != nil {
		return o.DestinationCheck(addr)
	}
	return addr.Complete(o.SupportedCountry)
}

func (o Options) shippingTIC(methodID string) string {
	if o.ShippingTICOverride != nil {
		if tic := o.ShippingTICOverride(methodID); tic != "" {
			return tic
		}
	}
	if tic, ok := o.ShippingTICs[methodID]; ok {
		return tic
	}
	return o.ShippingTIC
}

func (o Options) localDelivery(methodID string) bool {
	for _, m := range o.LocalDeliveryMethods {
		if m == methodID {
			return true
		}
	}
	return false
}
