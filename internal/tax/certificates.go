package tax

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
)

// CertificateResolver decides which exemption certificate, if any,
// applies to a calculation pass. It only ever reads.
type CertificateResolver struct {
	store  CertificateStore
	logger *logging.Logger
}

// NewCertificateResolver creates a resolver over the given store. A
// nil store means certificates are not in use.
func NewCertificateResolver(store CertificateStore, logger *logging.Logger) *CertificateResolver {
	return &CertificateResolver{
		store:  store,
		logger: logger,
	}
}

// Resolve returns the certificate to attach to every package of the
// pass: a cart-attached single-purchase certificate wins, otherwise
// the customer's active entity certificate. nil, nil when no
// exemption applies; that is not an error.
func (r *CertificateResolver) Resolve(ctx context.Context, customerID string, attached *models.ExemptionCertificate) (*models.ExemptionCertificate, error) {
	if attached != nil {
		r.logger.Debug("Using cart-attached certificate", logging.Fields{
			"certificate_key": attached.Key(),
			"single_purchase": attached.SinglePurchase,
		})
		return attached, nil
	}

	if r.store == nil || customerID == "" {
		return nil, nil
	}

	cert, err := r.store.GetActive(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if cert != nil {
		r.logger.Debug("Resolved entity certificate", logging.Fields{
			"customer_id":    customerID,
			"certificate_id": cert.ID,
		})
	}
	return cert, nil
}
