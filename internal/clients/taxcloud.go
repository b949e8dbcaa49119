package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
)

// ServiceError is a rejection reported by the tax API itself, as
// opposed to a transport failure.
type ServiceError struct {
	StatusCode int
	Messages   []string
}

func (e *ServiceError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("tax service rejected request (status %d): %s", e.StatusCode, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("tax service returned status %d", e.StatusCode)
}

// TaxCloudClient talks to the external tax lookup API over HTTP. It
// implements both the lookup and the capture/refund reporting surfaces
// plus address verification.
type TaxCloudClient struct {
	baseURL    string
	apiLoginID string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger

	// Verified addresses are memoized; checkout re-verifies the same
	// destination on every keystroke-driven recalculation otherwise.
	mu       sync.Mutex
	verified map[string]models.Address
}

// NewTaxCloudClient creates a new HTTP-based tax API client.
func NewTaxCloudClient(cfg config.TaxCloudConfig, logger *logging.Logger) *TaxCloudClient {
	return &TaxCloudClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiLoginID: cfg.APILoginID,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:   logger,
		verified: make(map[string]models.Address),
	}
}

// HasCredentials reports whether API credentials are configured.
func (c *TaxCloudClient) HasCredentials() bool {
	return c.apiLoginID != "" && c.apiKey != ""
}

type apiEnvelope struct {
	CartID   string           `json:"cart_id,omitempty"`
	Items    []models.ItemTax `json:"items,omitempty"`
	Address  *models.Address  `json:"address,omitempty"`
	Messages []apiMessage     `json:"messages,omitempty"`
}

type apiMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Lookup submits a normalized package request and returns per-item tax
// amounts keyed by request index.
func (c *TaxCloudClient) Lookup(ctx context.Context, req *models.LookupRequest) (*models.LookupResponse, error) {
	c.logger.Debug("Performing tax lookup", logging.Fields{
		"cart_id":    req.CartID,
		"item_count": len(req.Items),
		"dest_state": req.Destination.State,
	})

	var envelope apiEnvelope
	if err := c.post(ctx, "/lookup", req, &envelope); err != nil {
		c.logger.Error("Tax lookup failed", logging.Fields{
			"cart_id": req.CartID,
			"error":   err.Error(),
		})
		return nil, err
	}

	c.logger.Info("Tax lookup completed", logging.Fields{
		"cart_id":    req.CartID,
		"item_count": len(envelope.Items),
	})

	return &models.LookupResponse{
		CartID: envelope.CartID,
		Items:  envelope.Items,
	}, nil
}

// VerifyAddress normalizes an address against the verification API.
// Results are memoized per address identity for the client lifetime.
func (c *TaxCloudClient) VerifyAddress(ctx context.Context, addr models.Address) (models.Address, error) {
	if addr.Verified {
		return addr, nil
	}

	key := addr.Key()
	c.mu.Lock()
	cached, ok := c.verified[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	var envelope apiEnvelope
	if err := c.post(ctx, "/verify-address", addr, &envelope); err != nil {
		return models.Address{}, errors.Wrap(err, "address verification failed")
	}
	if envelope.Address == nil {
		return models.Address{}, errors.New("address verification returned no address")
	}

	result := *envelope.Address
	result.ID = addr.ID
	result.Verified = true

	c.mu.Lock()
	c.verified[key] = result
	c.mu.Unlock()

	return result, nil
}

// Ping validates connectivity and credentials. Used by the readiness
// probe and when credentials change.
func (c *TaxCloudClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return err
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "tax service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ServiceError{StatusCode: resp.StatusCode}
	}
	return nil
}

type authorizedRequest struct {
	CustomerID     string    `json:"customer_id"`
	CartID         string    `json:"cart_id"`
	OrderID        string    `json:"order_id"`
	DateAuthorized time.Time `json:"date_authorized"`
	DateCaptured   time.Time `json:"date_captured"`
}

// AuthorizedWithCapture reports a completed order to the tax API in a
// single call, marking the prior lookup as finalized.
func (c *TaxCloudClient) AuthorizedWithCapture(ctx context.Context, customerID, cartID, orderID string, completedAt time.Time) error {
	c.logger.Debug("Reporting capture", logging.Fields{
		"order_id": orderID,
		"cart_id":  cartID,
	})

	req := authorizedRequest{
		CustomerID:     customerID,
		CartID:         cartID,
		OrderID:        orderID,
		DateAuthorized: completedAt,
		DateCaptured:   completedAt,
	}
	return c.post(ctx, "/authorized-with-capture", req, nil)
}

type returnedRequest struct {
	OrderID      string            `json:"order_id"`
	Items        []models.CartItem `json:"items,omitempty"`
	ReturnedDate time.Time         `json:"returned_date"`
}

// Returned reports a full or partial refund of a captured order. A nil
// item list refunds the whole order.
func (c *TaxCloudClient) Returned(ctx context.Context, orderID string, items []models.CartItem, returnedAt time.Time) error {
	c.logger.Debug("Reporting refund", logging.Fields{
		"order_id":   orderID,
		"item_count": len(items),
	})

	req := returnedRequest{
		OrderID:      orderID,
		Items:        items,
		ReturnedDate: returnedAt,
	}
	return c.post(ctx, "/returned", req, nil)
}

func (c *TaxCloudClient) post(ctx context.Context, path string, body interface{}, out *apiEnvelope) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.Wrapf(err, "tax service request %s failed", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		svcErr := &ServiceError{StatusCode: resp.StatusCode}
		var envelope apiEnvelope
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr == nil {
			for _, msg := range envelope.Messages {
				if msg.Type == "error" {
					svcErr.Messages = append(svcErr.Messages, msg.Message)
				}
			}
		}
		return svcErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "malformed tax service response")
	}

	// Some rejections come back with a 200 and an error message list.
	for _, msg := range out.Messages {
		if msg.Type == "error" {
			return &ServiceError{StatusCode: resp.StatusCode, Messages: []string{msg.Message}}
		}
	}
	return nil
}

func (c *TaxCloudClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Login-ID", c.apiLoginID)
	req.Header.Set("X-API-Key", c.apiKey)
}
