package tax

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/repository"
)

// cacheDocVersion tags the canonical request serialization. Bump it
// whenever the canonical form changes so stale keys cannot collide.
const cacheDocVersion = "taxrequest.v1"

// canonicalItem and canonicalRequest define the canonical form hashed
// into cache keys. Field order is fixed by the struct definitions and
// prices are rendered as decimal strings, so the encoding is
// deterministic across runs regardless of float formatting.
type canonicalItem struct {
	Index    int    `json:"i"`
	ItemID   string `json:"id"`
	TIC      string `json:"tic"`
	Price    string `json:"p"`
	Quantity int    `json:"q"`
}

type canonicalRequest struct {
	Version           string          `json:"v"`
	CustomerID        string          `json:"customer"`
	CartID            string          `json:"cart"`
	Items             []canonicalItem `json:"items"`
	Origin            string          `json:"origin"`
	Destination       string          `json:"dest"`
	DeliveredBySeller bool            `json:"delivered"`
	Certificate       string          `json:"cert,omitempty"`
}

// CacheKey computes the content hash identifying a lookup request
// under a given cache epoch. Changing the epoch invalidates every key
// at once without enumerating entries.
func CacheKey(req *models.LookupRequest, epoch string) string {
	doc := canonicalRequest{
		Version:           cacheDocVersion,
		CustomerID:        req.CustomerID,
		CartID:            req.CartID,
		Items:             make([]canonicalItem, 0, len(req.Items)),
		Origin:            req.Origin.Key(),
		Destination:       req.Destination.Key(),
		DeliveredBySeller: req.DeliveredBySeller,
		Certificate:       req.Certificate.Key(),
	}
	for _, item := range req.Items {
		doc.Items = append(doc.Items, canonicalItem{
			Index:    item.Index,
			ItemID:   item.ItemID,
			TIC:      item.TIC,
			Price:    item.Price.String(),
			Quantity: item.Quantity,
		})
	}

	// Struct field order makes Marshal deterministic here.
	payload, _ := json.Marshal(doc)
	payload = append(payload, '|')
	payload = append(payload, epoch...)

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// LookupCache deduplicates identical lookup requests against a keyed
// store. Compute-then-store is not transactional: two concurrent
// misses may both compute and the second write wins, which is harmless
// because the computation is pure given the same key.
type LookupCache struct {
	store  repository.LookupStore
	epoch  func() string
	logger *logging.Logger
}

// NewLookupCache creates a cache over the given store. A nil store
// disables caching: every call computes. epoch supplies the cache
// epoch token (e.g. a shipping-rate configuration version).
func NewLookupCache(store repository.LookupStore, epoch func() string, logger *logging.Logger) *LookupCache {
	if epoch == nil {
		epoch = func() string { return "" }
	}
	return &LookupCache{
		store:  store,
		epoch:  epoch,
		logger: logger,
	}
}

// GetOrCompute returns the stored result for the request, or invokes
// compute, compresses the response, stores it, and returns it. Failed
// computations are never stored.
func (c *LookupCache) GetOrCompute(ctx context.Context, pkg *models.Package, req *models.LookupRequest, compute func(context.Context) (*models.LookupResponse, error)) (*models.PackageResult, error) {
	key := CacheKey(req, c.epoch())

	if c.store != nil {
		cached, err := c.store.Get(ctx, key)
		if err != nil {
			// A broken cache store degrades to a fresh lookup.
			c.logger.Warn("Lookup cache read failed", logging.Fields{
				"key":   key,
				"error": err.Error(),
			})
		} else if cached != nil {
			metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
			return cached, nil
		}
	}
	metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()

	resp, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	result := compressResult(key, pkg, req, resp)

	if c.store != nil {
		if err := c.store.Set(ctx, key, result); err != nil {
			c.logger.Warn("Lookup cache write failed", logging.Fields{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	return result, nil
}

// compressResult strips a lookup down to what capture and refund need
// later: per-entry tax amounts plus shipping, address, and certificate
// metadata.
func compressResult(key string, pkg *models.Package, req *models.LookupRequest, resp *models.LookupResponse) *models.PackageResult {
	taxByIndex := make(map[int]models.ItemTax, len(resp.Items))
	for _, item := range resp.Items {
		taxByIndex[item.Index] = item
	}

	result := &models.PackageResult{
		Key:           key,
		CartID:        req.CartID,
		CustomerID:    req.CustomerID,
		Items:         make([]models.ResultItem, 0, len(pkg.Items)),
		Origin:        pkg.Origin,
		Destination:   pkg.Destination,
		CertificateID: req.Certificate.Key(),
	}
	if pkg.Shipping != nil {
		result.ShippingMethod = pkg.Shipping.MethodID
		result.ShippingCost = pkg.Shipping.Cost
	}

	for i, entry := range pkg.Items {
		result.Items = append(result.Items, models.ResultItem{
			Index:     i,
			Kind:      entry.Kind,
			ItemID:    entry.ItemID,
			TaxAmount: taxByIndex[i].TaxAmount,
		})
	}
	return result
}
