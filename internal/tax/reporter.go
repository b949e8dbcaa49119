package tax

import (
	"context"
	"time"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/repository"
)

// ReportingService is the capture/refund surface of the tax engine.
type ReportingService interface {
	AuthorizedWithCapture(ctx context.Context, customerID, cartID, orderID string, completedAt time.Time) error
	Returned(ctx context.Context, cartID string, items []models.CartItem, returnedAt time.Time) error
}

// ReportEventSink receives capture/refund notifications. May be nil.
type ReportEventSink interface {
	TaxCaptured(ctx context.Context, orderID string, results []*models.PackageResult)
	TaxRefunded(ctx context.Context, orderID string, results []*models.PackageResult)
}

// Reporter replays persisted package results to the tax engine when an
// order is completed or refunded. It never recomputes tax; everything
// it needs was compressed into the results at lookup time.
type Reporter struct {
	api     ReportingService
	results repository.ResultRepository
	events  ReportEventSink
	logger  *logging.Logger
}

// NewReporter creates a reporter. events may be nil.
func NewReporter(api ReportingService, results repository.ResultRepository, events ReportEventSink, logger *logging.Logger) *Reporter {
	return &Reporter{
		api:     api,
		results: results,
		events:  events,
		logger:  logger,
	}
}

// Capture reports every package of a completed order as captured.
func (r *Reporter) Capture(ctx context.Context, orderID string, completedAt time.Time) error {
	results, err := r.results.GetByCartID(ctx, orderID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		r.logger.Warn("No package results to capture", logging.Fields{"order_id": orderID})
		return nil
	}

	for _, result := range results {
		if err := r.api.AuthorizedWithCapture(ctx, result.CustomerID, result.CartID, orderID, completedAt); err != nil {
			r.logger.Error("Capture report failed", logging.Fields{
				"order_id":    orderID,
				"package_key": result.Key,
				"error":       err.Error(),
			})
			return err
		}
	}

	r.logger.Info("Order captured", logging.Fields{
		"order_id": orderID,
		"packages": len(results),
	})
	if r.events != nil {
		r.events.TaxCaptured(ctx, orderID, results)
	}
	return nil
}

// Refund reports every package of a refunded order as returned.
func (r *Reporter) Refund(ctx context.Context, orderID string, returnedAt time.Time) error {
	results, err := r.results.GetByCartID(ctx, orderID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		r.logger.Warn("No package results to refund", logging.Fields{"order_id": orderID})
		return nil
	}

	for _, result := range results {
		// A nil item list returns the whole package.
		if err := r.api.Returned(ctx, result.CartID, nil, returnedAt); err != nil {
			r.logger.Error("Refund report failed", logging.Fields{
				"order_id":    orderID,
				"package_key": result.Key,
				"error":       err.Error(),
			})
			return err
		}
	}

	r.logger.Info("Order refunded", logging.Fields{
		"order_id": orderID,
		"packages": len(results),
	})
	if r.events != nil {
		r.events.TaxRefunded(ctx, orderID, results)
	}
	return nil
}
