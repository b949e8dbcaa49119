package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
)

// CertificateClient reads exemption certificates from the certificate
// management service. The tax service never writes certificates.
type CertificateClient struct {
	baseURL    string
	apiLoginID string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewCertificateClient creates a new HTTP-based certificate store
// client. Certificates live behind the same tax API gateway, so the
// client shares its credentials.
func NewCertificateClient(cfg config.TaxCloudConfig, logger *logging.Logger) *CertificateClient {
	return &CertificateClient{
		baseURL:    cfg.BaseURL,
		apiLoginID: cfg.APILoginID,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// GetActive returns the customer's active exemption certificate, or
// nil when no exemption applies. Absence is not an error.
func (c *CertificateClient) GetActive(ctx context.Context, customerID string) (*models.ExemptionCertificate, error) {
	url := fmt.Sprintf("%s/certificates/active?customer_id=%s", c.baseURL, customerID)
	return c.get(ctx, url)
}

// GetByID returns a certificate by its durable ID.
func (c *CertificateClient) GetByID(ctx context.Context, id string) (*models.ExemptionCertificate, error) {
	url := fmt.Sprintf("%s/certificates/%s", c.baseURL, id)
	return c.get(ctx, url)
}

func (c *CertificateClient) get(ctx context.Context, url string) (*models.ExemptionCertificate, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-API-Login-ID", c.apiLoginID)
	httpReq.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "certificate service request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("certificate service returned status %d", resp.StatusCode)
	}

	var cert models.ExemptionCertificate
	if err := json.NewDecoder(resp.Body).Decode(&cert); err != nil {
		return nil, errors.Wrap(err, "malformed certificate response")
	}

	c.logger.Debug("Certificate fetched", logging.Fields{
		"certificate_id":  cert.ID,
		"single_purchase": cert.SinglePurchase,
	})

	return &cert, nil
}
