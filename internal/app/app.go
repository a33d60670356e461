package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gigstastore/marketplace/internal/domain/billing"
	"github.com/gigstastore/marketplace/internal/domain/cart"
	"github.com/gigstastore/marketplace/internal/domain/checkout"
	"github.com/gigstastore/marketplace/internal/events"
	"github.com/gigstastore/marketplace/internal/handler"
	"github.com/gigstastore/marketplace/internal/notification"
	"github.com/gigstastore/marketplace/internal/payments"
	"github.com/gigstastore/marketplace/internal/storage/postgres"
	"github.com/gigstastore/marketplace/internal/storage/rediscart"
	"github.com/gigstastore/marketplace/internal/webhook"
	"github.com/gigstastore/marketplace/pkg/health"
	"github.com/gigstastore/marketplace/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and background
// workers, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	feeRate, err := cfg.ParsedFeeRate()
	if err != nil {
		return err
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Redis cart store.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	sellerRepo := postgres.NewSellerRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	tokenRepo := postgres.NewTokenRepository(pool)
	cartRepo := rediscart.NewStore(rdb, cfg.Redis.CartTTL)

	// Payment provider client.
	provider := payments.NewClient(payments.Config{
		BaseURL:    cfg.Payments.BaseURL,
		SecretKey:  cfg.Payments.SecretKey,
		Currency:   cfg.Payments.Currency,
		Timeout:    cfg.Payments.Timeout,
		MaxRetries: cfg.Payments.MaxRetries,
	}, lg.Named("payments"))

	// Optional side-effect sinks.
	var notifier checkout.Notifier
	if cfg.Email.SendGridKey != "" {
		notifier = notification.NewEmailNotifier(
			cfg.Email.SendGridKey, userRepo, cfg.Email.FromName, cfg.Email.FromEmail)
	}
	var publisher checkout.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub := events.NewPublisher(cfg.Kafka.Brokers, lg.Named("events"))
		defer func() { _ = kafkaPub.Close() }()
		publisher = kafkaPub
		healthSvc.AddReadinessCheck("kafka", 5*time.Second, kafkaPub.Ping)
	}
	healthSvc.Start(ctx, 10*time.Second)

	// Domain services.
	cartService := cart.NewService(cartRepo, productRepo)
	grouper := checkout.NewGrouper(cartRepo, productRepo, sellerRepo)
	checkoutService := checkout.NewService(grouper, userRepo, orderRepo, provider, feeRate)
	billingService := billing.NewService(provider)
	reconciler := checkout.NewReconciler(orderRepo, cartRepo, sellerRepo, provider, notifier, publisher)

	// Webhook workers.
	dispatcher := webhook.NewDispatcher(reconciler, cfg.Webhook.QueueSize, cfg.Webhook.Workers)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		if err := dispatcher.Run(zctx.Base(ctx, lg.Named("webhook"))); err != nil {
			lg.Error("Webhook dispatcher stopped", zap.Error(err))
		}
	}()

	// Pending-order janitor.
	if cfg.Janitor.PendingOrderTTL > 0 {
		go runJanitor(zctx.Base(ctx, lg.Named("janitor")), orderRepo, cfg.Janitor)
	}

	// HTTP handlers.
	h := handler.NewHandler(
		handler.Config{
			WebhookSecret:    cfg.Payments.WebhookSecret,
			WebhookTolerance: cfg.Webhook.Tolerance,
			TokenPepper:      []byte(cfg.TokenPepper),
		},
		cartService,
		checkoutService,
		billingService,
		productRepo,
		sellerRepo,
		tokenRepo,
		dispatcher,
	)

	mux := chi.NewRouter()
	mux.Get("/livez", healthSvc.LiveEndpoint)
	mux.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("marketplace-api"),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.SetReady(true)

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
	<-dispatcherDone
	return nil
}
