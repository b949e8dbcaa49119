package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/tax"
)

// CalculateCart handles POST /api/v1/tax/calculations. The request
// body is a live cart; the response is the same cart with per-line tax
// applied plus the aggregate.
func (h *Handlers) CalculateCart(c *gin.Context) {
	var cart models.Cart
	if err := c.ShouldBindJSON(&cart); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if cart.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart id is required"})
		return
	}

	provider := &tax.CartProvider{Cart: &cart}
	if err := h.calculator.Calculate(c.Request.Context(), provider); err != nil {
		h.renderCalculationError(c, cart.ID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart":      cart,
		"total_tax": cart.TotalTax(),
	})
}

// CalculateOrder handles POST /api/v1/tax/orders/:id/calculate for
// placed-order recalculation (admin edits, refund adjustments).
func (h *Handlers) CalculateOrder(c *gin.Context) {
	orderID := c.Param("id")

	var order models.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	order.ID = orderID

	provider := &tax.OrderProvider{Order: &order}
	if err := h.calculator.Calculate(c.Request.Context(), provider); err != nil {
		h.renderCalculationError(c, orderID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":     order,
		"total_tax": order.TotalTax(),
	})
}

// GetOrderPackages handles GET /api/v1/tax/orders/:id/packages,
// returning the persisted package results capture/refund relies on.
func (h *Handlers) GetOrderPackages(c *gin.Context) {
	if h.results == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "result persistence is not configured"})
		return
	}

	orderID := c.Param("id")
	results, err := h.results.GetByCartID(c.Request.Context(), orderID)
	if err != nil {
		h.logger.Error("Failed to load package results", logging.Fields{
			"order_id": orderID,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load package results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"packages": results,
	})
}

func (h *Handlers) renderCalculationError(c *gin.Context, cartID string, err error) {
	h.logger.Error("Calculation failed", logging.Fields{
		"cart_id": cartID,
		"error":   err.Error(),
	})

	var verr *tax.VerificationError
	var lerr *tax.LookupError
	switch {
	case errors.Is(err, tax.ErrMissingCredentials):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tax service is not configured"})
	case errors.Is(err, tax.ErrMissingOrigin):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no origin address available for one or more products"})
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "destination address could not be verified"})
	case errors.As(err, &lerr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "tax lookup failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tax calculation failed"})
	}
}
