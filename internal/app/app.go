package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/food-checkout/internal/domain/auth"
	"github.com/xenking/food-checkout/internal/domain/checkout"
	"github.com/xenking/food-checkout/internal/domain/discount"
	"github.com/xenking/food-checkout/internal/domain/order"
	"github.com/xenking/food-checkout/internal/domain/payment"
	"github.com/xenking/food-checkout/internal/handler"
	"github.com/xenking/food-checkout/internal/payment/intentclient"
	stripepay "github.com/xenking/food-checkout/internal/payment/stripe"
	"github.com/xenking/food-checkout/internal/storage/postgres"
	"github.com/xenking/food-checkout/pkg/health"
	"github.com/xenking/food-checkout/pkg/httpmiddleware"
)

const serviceName = "foodcart-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("payment_server", cfg.Payment.ServerURL),
		zap.String("currency", cfg.Payment.Currency),
	)

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Repositories.
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	discounts := discount.NewFilteredRepository(postgres.NewDiscountRepository(pool))
	if n, err := discounts.Refresh(ctx); err != nil {
		// Lookups pass through until the filter loads.
		lg.Warn("Initial discount filter load failed", zap.Error(err))
	} else {
		lg.Info("Discount filter loaded", zap.Int("codes", n))
	}
	go refreshDiscounts(ctx, lg, discounts, cfg.Discounts.RefreshInterval)

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddReadinessCheck("discount_filter", time.Second,
		health.FlagCheck(discounts.Loaded, "discount filter not loaded"),
		health.WithThresholds(1, 1),
	)
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Payment processor and the server side of /create-payment-intent.
	if cfg.Payment.StripeSecretKey == "" {
		lg.Warn("Stripe secret key is not set, online payments will fail")
	}
	stripeAPI := stripepay.NewIntentAPI(cfg.Payment.StripeSecretKey)
	validator := discount.NewRepoValidator(discounts)
	intentService := payment.NewIntentService(
		stripepay.NewProcessor(stripeAPI),
		validator,
		cfg.Payment.Currency,
	)

	// Client side: the orchestrator reaches the intent server over HTTP.
	intents := intentclient.New(cfg.Payment.ServerURL, cfg.Payment.APIKey,
		intentclient.WithTimeout(cfg.Payment.Timeout),
		intentclient.WithLogger(lg.Named("intentclient")),
		intentclient.WithTransport(otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		)),
	)

	recorder := order.NewRecorder(orderRepo)
	checkoutService, err := checkout.NewService(auth.ContextSession{}, intents, recorder,
		checkout.WithReturnURL(cfg.Payment.ReturnURL),
		checkout.WithTracerProvider(m.TracerProvider()),
		checkout.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}

	// HTTP handlers.
	h := handler.NewHandler(
		intentService,
		checkoutService,
		validator,
		recorder,
		stripepay.NewSheetFactory(stripeAPI),
	)
	security := handler.NewSecurity(apikeyRepo, []byte(cfg.APIKeyPepper), []byte(cfg.Auth.JWTSecret))

	router := handler.NewRouter(h, security)
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	routeFinder := httpmiddleware.ChiRouteFinder(router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Online checkout waits on the intent server and the processor.
		WriteTimeout:   cfg.Payment.Timeout + 20*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key", "Idempotency-Key"},
				ExposeHeaders:    []string{"X-Request-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// refreshDiscounts rebuilds the discount filter every interval until ctx is done.
func refreshDiscounts(ctx context.Context, lg *zap.Logger, r *discount.FilteredRepository, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.Refresh(ctx)
			if err != nil {
				lg.Warn("Discount filter refresh failed", zap.Error(err))
				continue
			}
			lg.Debug("Discount filter refreshed", zap.Int("codes", n))
		}
	}
}
