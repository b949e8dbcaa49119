package tax

import (
	"context"
	"fmt"
	"time"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/repository"
)

// EventSink receives calculation lifecycle notifications. A nil sink
// disables eventing.
type EventSink interface {
	TaxCalculated(ctx context.Context, cartID, customerID string, results []*models.PackageResult)
	TaxCalculationFailed(ctx context.Context, cartID, customerID string, err error)
}

// CredentialCheck reports whether tax API credentials are configured.
type CredentialCheck func() bool

// Calculator drives a full calculation pass: reset totals, build
// packages, look up each package (cached or fresh), apply the returned
// amounts, and persist the results used.
type Calculator struct {
	lookup  LookupService
	builder *PackageBuilder
	cache   *LookupCache
	results repository.ResultRepository
	events  EventSink
	creds   CredentialCheck
	opts    Options
	logger  *logging.Logger
}

// NewCalculator creates a calculator. results and events may be nil.
func NewCalculator(
	lookup LookupService,
	builder *PackageBuilder,
	cache *LookupCache,
	results repository.ResultRepository,
	events EventSink,
	creds CredentialCheck,
	opts Options,
	logger *logging.Logger,
) *Calculator {
	return &Calculator{
		lookup:  lookup,
		builder: builder,
		cache:   cache,
		results: results,
		events:  events,
		creds:   creds,
		opts:    opts,
		logger:  logger,
	}
}

// Calculate runs one pass for the provider's cart/order. On a nil
// return every entry carries its computed tax. On error, totals are
// left at their reset (zero) state: amounts are only applied after
// every package lookup has succeeded.
func (c *Calculator) Calculate(ctx context.Context, provider PackageProvider) error {
	provider.ResetTaxes()

	if c.creds != nil && !c.creds() {
		c.logger.Error("Tax calculation aborted: missing API credentials")
		metrics.CalculationsTotal.WithLabelValues("aborted").Inc()
		return ErrMissingCredentials
	}

	cartID := provider.CartID()
	customerID := provider.CustomerID()

	packages, err := c.builder.Split(ctx, SplitInput{
		CustomerID:  customerID,
		Entries:     provider.Entries(),
		Destination: provider.Destination(),
		Origin:      provider.Origin(),
		Shipping:    provider.ShippingRate(),
		Certificate: provider.Certificate(),
	})
	if err != nil {
		c.logger.Error("Package build failed", logging.Fields{
			"cart_id": cartID,
			"error":   err.Error(),
		})
		metrics.CalculationsTotal.WithLabelValues("aborted").Inc()
		c.notifyFailure(ctx, cartID, customerID, err)
		return err
	}

	// Gather phase. Nothing is applied until every lookup succeeds:
	// showing tax for two packages of three as "correct" would be a
	// lie.
	used := make([]*models.PackageResult, 0, len(packages))
	for i, pkg := range packages {
		if len(pkg.Items) == 0 {
			continue
		}

		if !c.opts.destinationComplete(pkg.Destination) {
			// Expected mid-checkout; the next pass picks the package
			// up once the customer finishes the address form.
			c.logger.Debug("Skipping package: destination incomplete", logging.Fields{
				"cart_id":       cartID,
				"package_index": i,
			})
			metrics.PackagesSkippedTotal.WithLabelValues("incomplete_destination").Inc()
			continue
		}

		if !pkg.Origin.Complete(c.opts.SupportedCountry) {
			// Bad origin data only poisons its own package.
			c.logger.Error("Skipping package: origin invalid", logging.Fields{
				"cart_id":       cartID,
				"package_index": i,
				"origin_id":     pkg.Origin.ID,
			})
			metrics.PackagesSkippedTotal.WithLabelValues("invalid_origin").Inc()
			continue
		}

		req := BuildRequest(pkg, customerID, packageCartID(cartID, i), c.opts)

		result, err := c.cache.GetOrCompute(ctx, pkg, req, func(ctx context.Context) (*models.LookupResponse, error) {
			start := time.Now()
			resp, err := c.lookup.Lookup(ctx, req)
			metrics.LookupDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.LookupsTotal.WithLabelValues("error").Inc()
				return nil, err
			}
			metrics.LookupsTotal.WithLabelValues("success").Inc()
			return resp, nil
		})
		if err != nil {
			lerr := &LookupError{CartID: cartID, PackageIndex: i, Err: err}
			c.logger.Error("Tax lookup failed, aborting pass", logging.Fields{
				"cart_id":       cartID,
				"package_index": i,
				"error":         err.Error(),
			})
			metrics.CalculationsTotal.WithLabelValues("failed").Inc()
			c.notifyFailure(ctx, cartID, customerID, lerr)
			return lerr
		}

		used = append(used, result)
	}

	// Apply phase.
	for _, result := range used {
		for _, item := range result.Items {
			switch item.Kind {
			case models.ItemKindProduct:
				provider.SetProductTax(item.ItemID, item.TaxAmount)
			case models.ItemKindFee:
				provider.SetFeeTax(item.ItemID, item.TaxAmount)
			case models.ItemKindShipping:
				provider.SetShippingTax(item.TaxAmount)
			}
		}
	}

	if c.results != nil {
		if err := c.results.Replace(ctx, cartID, used); err != nil {
			// Totals are already correct; a persistence failure only
			// impacts later capture/refund reporting.
			c.logger.Error("Failed to persist package results", logging.Fields{
				"cart_id": cartID,
				"error":   err.Error(),
			})
		}
	}

	if c.events != nil {
		c.events.TaxCalculated(ctx, cartID, customerID, used)
	}

	c.logger.Info("Tax calculation completed", logging.Fields{
		"cart_id":        cartID,
		"packages_total": len(packages),
		"packages_used":  len(used),
	})
	metrics.CalculationsTotal.WithLabelValues("completed").Inc()
	return nil
}

func (c *Calculator) notifyFailure(ctx context.Context, cartID, customerID string, err error) {
	if c.events != nil {
		c.events.TaxCalculationFailed(ctx, cartID, customerID, err)
	}
}

// packageCartID derives the per-package cart identifier sent to the
// tax engine. Packages of one cart must not share a cart ID upstream.
func packageCartID(cartID string, index int) string {
	return fmt.Sprintf("%s_%d", cartID, index)
}
