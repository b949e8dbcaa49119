package tax

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
)

// PackageBuilder partitions cart/order contents into packages, one per
// distinct origin address. It is a pure transformation: all errors are
// returned, nothing is mutated.
type PackageBuilder struct {
	verifier AddressVerifier
	origins  OriginResolver
	certs    *CertificateResolver
	opts     Options
	logger   *logging.Logger
}

// NewPackageBuilder creates a package builder.
func NewPackageBuilder(verifier AddressVerifier, origins OriginResolver, certs *CertificateResolver, opts Options, logger *logging.Logger) *PackageBuilder {
	return &PackageBuilder{
		verifier: verifier,
		origins:  origins,
		certs:    certs,
		opts:     opts,
		logger:   logger,
	}
}

// SplitInput is everything the builder needs from a provider.
type SplitInput struct {
	CustomerID  string
	Entries     []models.LineItem
	Destination models.Address

	// Origin suppresses splitting when set: the whole cart ships from
	// this upstream-assigned address.
	Origin *models.Address

	Shipping *models.ShippingRate

	// Certificate is a cart-attached single-purchase certificate.
	Certificate *models.ExemptionCertificate
}

// Split builds the packages for one calculation pass.
//
// Every input entry lands in exactly one package, and no two entries
// with different resolved origins share a package. Fees have no origin
// of their own and ride in the first package, as does the shipping
// line.
func (b *PackageBuilder) Split(ctx context.Context, in SplitInput) ([]*models.Package, error) {
	destination, err := b.verifier.VerifyAddress(ctx, in.Destination)
	if err != nil {
		return nil, &VerificationError{Err: err}
	}

	cert, err := b.certs.Resolve(ctx, in.CustomerID, in.Certificate)
	if err != nil {
		// A broken certificate store must not block checkout; the
		// lookup proceeds without the exemption.
		b.logger.Warn("Certificate resolution failed, continuing without exemption", logging.Fields{
			"customer_id": in.CustomerID,
			"error":       err.Error(),
		})
		cert = nil
	}

	var packages []*models.Package
	if in.Origin != nil {
		packages = b.singlePackage(in.Entries, *in.Origin, destination)
	} else {
		packages, err = b.splitByOrigin(ctx, in.Entries, destination)
		if err != nil {
			return nil, err
		}
	}

	if len(packages) > 0 && in.Shipping != nil {
		first := packages[0]
		first.Shipping = in.Shipping
		first.Items = append(first.Items, in.Shipping.ShippingItem())
		first.DeliveredBySeller = in.Shipping.LocalDelivery || b.opts.localDelivery(in.Shipping.MethodID)
	}

	for _, pkg := range packages {
		pkg.Certificate = cert
	}

	b.logger.Debug("Cart split into packages", logging.Fields{
		"package_count": len(packages),
		"entry_count":   len(in.Entries),
	})

	return packages, nil
}

func (b *PackageBuilder) singlePackage(entries []models.LineItem, origin, destination models.Address) []*models.Package {
	if len(entries) == 0 {
		return nil
	}
	items := make([]models.LineItem, len(entries))
	copy(items, entries)
	return []*models.Package{{
		Items:       items,
		Origin:      origin,
		Destination: destination,
	}}
}

func (b *PackageBuilder) splitByOrigin(ctx context.Context, entries []models.LineItem, destination models.Address) ([]*models.Package, error) {
	var packages []*models.Package
	byOrigin := make(map[string]*models.Package)

	attach := func(origin models.Address, item models.LineItem) {
		key := origin.Key()
		pkg, ok := byOrigin[key]
		if !ok {
			pkg = &models.Package{
				Origin:      origin,
				Destination: destination,
			}
			byOrigin[key] = pkg
			packages = append(packages, pkg)
		}
		pkg.Items = append(pkg.Items, item)
	}

	// Products first so fee placement in the first package does not
	// depend on entry order.
	var fees []models.LineItem
	for _, entry := range entries {
		if entry.Kind == models.ItemKindFee {
			fees = append(fees, entry)
			continue
		}
		origin, err := b.resolveOrigin(ctx, entry, destination)
		if err != nil {
			return nil, err
		}
		attach(origin, entry)
	}

	if len(fees) > 0 {
		if len(packages) == 0 {
			// Fee-only carts still get taxed; they ship from the
			// default origin.
			origin, err := b.resolveOrigin(ctx, models.LineItem{Kind: models.ItemKindFee}, destination)
			if err != nil {
				return nil, err
			}
			attach(origin, fees[0])
			for _, fee := range fees[1:] {
				attach(origin, fee)
			}
		} else {
			packages[0].Items = append(packages[0].Items, fees...)
		}
	}

	return packages, nil
}

// resolveOrigin picks one origin for an entry: a single candidate is
// used as-is; with several, the first one in the destination's state
// wins, else the first configured. No candidates at all is a hard
// error that aborts the calculation.
func (b *PackageBuilder) resolveOrigin(ctx context.Context, entry models.LineItem, destination models.Address) (models.Address, error) {
	candidates, err := b.origins.ProductOrigins(ctx, entry.ItemID)
	if err != nil {
		return models.Address{}, err
	}
	if len(candidates) == 0 {
		b.logger.Error("No origin address configured", logging.Fields{
			"item_id": entry.ItemID,
		})
		return models.Address{}, ErrMissingOrigin
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	for _, candidate := range candidates {
		if candidate.State == destination.State {
			return candidate, nil
		}
	}
	return candidates[0], nil
}
