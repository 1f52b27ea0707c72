package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"shopfront/internal/auth"
	"shopfront/internal/config"
	"shopfront/internal/database"
	"shopfront/internal/email"
	"shopfront/internal/handler"
	"shopfront/internal/inventory"
	"shopfront/internal/invoice"
	"shopfront/internal/model"
	"shopfront/internal/notify"
	"shopfront/internal/payment"
	"shopfront/internal/rates"
	"shopfront/internal/repository"
	"shopfront/internal/router"
	"shopfront/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting shopfront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	// Load the tax/shipping rate table: S3 if enabled, then local
	// file, then the built-in defaults.
	quoter := rates.NewQuoter(loadRateTable(ctx, cfg.Rates, logger))

	// Initialize websocket notification hub
	hub := notify.NewHub(logger)

	// Register payment provider adapters
	registry := payment.NewRegistry()
	registry.Register(model.MethodCard, payment.NewCardGateway(
		cfg.Payments.CardBaseURL, cfg.Payments.CardAPIKey, cfg.Payments.RequestTimeout, logger))
	registry.Register(model.MethodMobileMoney, payment.NewMpesaGateway(payment.MpesaConfig{
		BaseURL:     cfg.Payments.MpesaBaseURL,
		Shortcode:   cfg.Payments.MpesaShortcode,
		Passkey:     cfg.Payments.MpesaPasskey,
		CallbackURL: cfg.Payments.MpesaCallbackURL,
		CountryCode: cfg.Payments.MpesaCountryCode,
		MinAmount:   cfg.Payments.MpesaMinAmount,
		MaxAmount:   cfg.Payments.MpesaMaxAmount,
		Timeout:     cfg.Payments.RequestTimeout,
	}, logger))
	registry.Register(model.MethodBankTransfer, payment.NewBankTransferGateway(logger))

	// Processed-callback audit log (optional Redis)
	var callbackLog payment.CallbackLog
	if cfg.CallbackLog.Enabled {
		callbackLog = payment.NewRedisCallbackLog(cfg.CallbackLog.Addr, cfg.CallbackLog.TTL, logger)
	} else {
		callbackLog = payment.NewNoopCallbackLog()
		logger.Info().Msg("callback audit log disabled")
	}

	// Initialize services
	ledger := inventory.NewLedger(productRepo, hub, cfg.Inventory.LowStockThreshold, logger)
	emailer := email.NewLogSender(logger)
	checkoutService := service.NewCheckoutService(
		orderRepo, productRepo, ledger, quoter, registry, hub, emailer, cfg.Payments.Currency, logger)
	orderService := service.NewOrderService(
		orderRepo, ledger, hub, emailer, invoice.NewJSONRenderer(), logger)
	reconcileService := service.NewReconcileService(orderRepo, callbackLog, hub, emailer, logger)

	// Start the stale-reservation sweeper
	if cfg.Sweeper.Enabled {
		sweeper := service.NewReservationSweeper(
			orderService, cfg.Sweeper.Interval, cfg.Sweeper.MaxAge, logger)
		go sweeper.Run(ctx)
	}

	// Initialize HTTP handlers
	orderHandler := handler.NewOrderHandler(checkoutService, orderService, logger)
	inventoryHandler := handler.NewInventoryHandler(ledger, productRepo, logger)
	callbackHandler := handler.NewCallbackHandler(reconcileService, logger)
	wsHandler := handler.NewWSHandler(hub, logger)

	// Initialize router
	mux := router.New(router.Deps{
		Orders:    orderHandler,
		Inventory: inventoryHandler,
		Callbacks: callbackHandler,
		WS:        wsHandler,
		Resolver:  auth.NewKeyResolver(cfg.Auth.AdminAPIKey),
		Logger:    logger,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// loadRateTable resolves the rate table source in order of
// preference: S3, local file, built-in defaults. A startup without a
// reachable rate source still serves checkouts.
func loadRateTable(ctx context.Context, cfg config.RatesConfig, logger zerolog.Logger) *rates.Table {
	if cfg.S3Enabled {
		loader, err := rates.NewS3Loader(ctx, cfg.S3Bucket, cfg.S3Region, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise S3 rates loader, falling back to local file")
		} else {
			table, err := loader.Load(ctx, cfg.S3Key)
			if err == nil {
				return table
			}
			logger.Warn().Err(err).Msg("failed to load rate table from S3, falling back to local file")
		}
	}

	table, err := rates.NewFileLoader(logger).Load(ctx, cfg.FilePath)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load local rate table, using built-in defaults")
		return rates.DefaultTable()
	}
	return table
}
