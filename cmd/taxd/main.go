package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/server"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/tax"

	_ "github.com/lib/pq"
)

// fallbackRate is the flat rate used when FEATURE_FALLBACK_RATES is on
// and no credentials are configured. Development only.
var fallbackRate = decimal.RequireFromString("0.08625")

func main() {
	logging.Init()
	defer logging.Sync()

	cfg := config.Load()
	logger := logging.NewLogger("taxd")

	logger.Info("Starting tax-service", logging.Fields{
		"port":            cfg.Server.Port,
		"lookup_cache":    cfg.Features.EnableLookupCache,
		"capture":         cfg.Features.EnableCapture,
		"fallback_rates":  cfg.Features.EnableFallbackRates,
		"has_credentials": cfg.TaxCloud.Valid(),
	})

	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", logging.Fields{"error": err.Error()})
	}
	defer db.Close()

	resultRepo := repository.NewPostgresResultRepository(db, logging.NewLogger("result-repo"))

	var lookupStore repository.LookupStore
	if cfg.Features.EnableLookupCache {
		lookupStore = repository.NewRedisLookupStore(cfg.Redis)
	}

	taxClient := clients.NewTaxCloudClient(cfg.TaxCloud, logging.NewLogger("taxcloud"))
	certClient := clients.NewCertificateClient(cfg.TaxCloud, logging.NewLogger("certificates"))

	var (
		lookup   tax.LookupService   = taxClient
		verifier tax.AddressVerifier = taxClient
		pinger   handlers.Pinger     = taxClient
		creds    tax.CredentialCheck = taxClient.HasCredentials
	)
	if cfg.Features.EnableFallbackRates && !cfg.TaxCloud.Valid() {
		fallback := clients.NewFlatRateFallback(fallbackRate, logging.NewLogger("fallback"))
		lookup = fallback
		verifier = fallback
		pinger = nil
		creds = func() bool { return true }
	}

	publisher := events.NewKafkaPublisher(cfg.Kafka, logging.NewLogger("publisher"))
	defer publisher.Close()

	opts := tax.OptionsFromConfig(cfg.Tax)

	certResolver := tax.NewCertificateResolver(certClient, logging.NewLogger("cert-resolver"))
	builder := tax.NewPackageBuilder(
		verifier,
		tax.StaticOrigins{cfg.Tax.Origin},
		certResolver,
		opts,
		logging.NewLogger("packages"),
	)
	cache := tax.NewLookupCache(
		lookupStore,
		func() string { return cfg.Tax.RatesVersion },
		logging.NewLogger("lookup-cache"),
	)
	calculator := tax.NewCalculator(
		lookup,
		builder,
		cache,
		resultRepo,
		publisher,
		creds,
		opts,
		logging.NewLogger("calculator"),
	)

	h := handlers.NewHandlers(calculator, resultRepo, pinger, cfg)
	srv := server.New(h, cfg)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	var consumer *events.KafkaConsumer
	if cfg.Features.EnableCapture {
		reporter := tax.NewReporter(taxClient, resultRepo, publisher, logging.NewLogger("reporter"))
		consumer = events.NewKafkaConsumer(cfg.Kafka, reporter, logging.NewLogger("consumer"))
		go func() {
			if err := consumer.Start(context.Background()); err != nil && err != context.Canceled {
				logger.Error("Order event consumer failed", logging.Fields{"error": err.Error()})
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if consumer != nil {
		consumer.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	logger.Info("Server exited")
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
