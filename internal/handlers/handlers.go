package handlers

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/tax"
)

// Pinger checks connectivity to the external tax API.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers for the tax service.
type Handlers struct {
	calculator *tax.Calculator
	results    repository.ResultRepository
	pinger     Pinger
	config     *config.Config
	logger     *logging.Logger
}

// NewHandlers creates a new handlers instance. pinger and results may
// be nil in reduced deployments; the affected endpoints degrade.
func NewHandlers(
	calculator *tax.Calculator,
	results repository.ResultRepository,
	pinger Pinger,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		calculator: calculator,
		results:    results,
		pinger:     pinger,
		config:     cfg,
		logger:     logging.NewLogger("handlers"),
	}
}
