package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/juice-checkout/internal/domain/coupon"
	"github.com/xenking/juice-checkout/internal/domain/delivery"
	"github.com/xenking/juice-checkout/internal/domain/discount"
	"github.com/xenking/juice-checkout/internal/domain/inventory"
	"github.com/xenking/juice-checkout/internal/domain/order"
	"github.com/xenking/juice-checkout/internal/domain/wallet"
	"github.com/xenking/juice-checkout/internal/events"
	"github.com/xenking/juice-checkout/internal/handler"
	"github.com/xenking/juice-checkout/internal/i18n"
	"github.com/xenking/juice-checkout/internal/identity"
	"github.com/xenking/juice-checkout/internal/receipt"
	"github.com/xenking/juice-checkout/internal/storage/mongo"
	"github.com/xenking/juice-checkout/internal/storage/postgres"
	"github.com/xenking/juice-checkout/pkg/health"
	"github.com/xenking/juice-checkout/pkg/httpmiddleware"
)

const serviceName = "checkout-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("order_store", cfg.OrderStore),
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

	healthSvc := health.New()
	healthSvc.Add(health.Check{
		Name:    "postgres",
		Kind:    health.Readiness,
		Timeout: 5 * time.Second,
		Func:    health.PingCheck(pool),
	})
	healthSvc.Add(health.Check{
		Name: "goroutines",
		Kind: health.Liveness,
		Func: health.GoroutineCountCheck(10000),
	})

	orders, closeOrders, err := openOrderStore(ctx, cfg, pool, healthSvc)
	if err != nil {
		return err
	}
	defer closeOrders()

	publisher, closePublisher := newPublisher(lg, cfg.Kafka)
	defer closePublisher()

	deps, guard, err := newDeps(ctx, lg, m.MeterProvider(), cfg, pool)
	if err != nil {
		return err
	}
	deps.Orders = orders
	deps.Publisher = publisher

	orderService, err := order.NewService(deps,
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	var languages handler.LanguageMatcher
	if l, ok := deps.Localizer.(*i18n.Localizer); ok {
		languages = l
	}
	h := handler.New(orderService, identity.NewJWTProvider([]byte(cfg.JWTSecret)), languages)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, lg, m.TracerProvider(), m.MeterProvider(), cfg, h, healthSvc),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthSvc.Run(ctx, 10*time.Second)
	})
	if cfg.CouponRefresh > 0 {
		g.Go(func() error {
			refreshCoupons(ctx, lg, postgres.NewCouponRepository(pool), guard, cfg.CouponRefresh)
			return nil
		})
	}
	g.Go(func() error {
		// Graceful shutdown: wait for context cancellation, drain, then stop.
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
		return nil
	})
	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// newDeps builds the postgres backed collaborators of the order service.
func newDeps(
	ctx context.Context,
	lg *zap.Logger,
	mp metric.MeterProvider,
	cfg *Config,
	pool *pgxpool.Pool,
) (order.Deps, *coupon.BloomGuard, error) {
	coupons := postgres.NewCouponRepository(pool)
	codes, err := coupons.ListCodes(ctx)
	if err != nil {
		return order.Deps{}, nil, errors.Wrap(err, "list coupon codes")
	}
	lg.Info("Coupon filter loaded", zap.Int("codes", len(codes)))
	decoder := coupon.NewBloomGuard(coupon.NewRepoDecoder(coupons), codes, cfg.CouponFilterRate)

	auditor, err := discount.NewMeterAuditor(mp.Meter("checkout/discount"), discount.LogAuditor{})
	if err != nil {
		return order.Deps{}, nil, errors.Wrap(err, "create auditor")
	}

	deps := order.Deps{
		Baskets:    postgres.NewBasketRepository(pool),
		Inventory:  inventory.NewLedger(postgres.NewInventoryRepository(pool)),
		Discounts:  discount.NewResolver(decoder, discount.DefaultCampaigns(), auditor),
		Deliveries: delivery.NewResolver(postgres.NewDeliveryRepository(pool), cfg.StrictDelivery),
		Wallets:    wallet.NewLedger(postgres.NewWalletRepository(pool)),
	}

	if cfg.ReceiptDir != "" {
		r, err := receipt.NewArchiveRenderer(cfg.ReceiptDir)
		if err != nil {
			return order.Deps{}, nil, errors.Wrap(err, "create receipt renderer")
		}
		deps.Renderer = r
	}
	if cfg.TranslationsFile != "" {
		l, err := i18n.Load(cfg.TranslationsFile)
		if err != nil {
			return order.Deps{}, nil, errors.Wrap(err, "load translations")
		}
		deps.Localizer = l
	}
	return deps, decoder, nil
}

// refreshCoupons rebuilds the known coupon filter every interval so codes
// added by coupon-ingest become redeemable without a restart.
func refreshCoupons(ctx context.Context, lg *zap.Logger, repo *postgres.CouponRepository, guard *coupon.BloomGuard, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			codes, err := repo.ListCodes(ctx)
			if err != nil {
				lg.Warn("Refresh coupon filter", zap.Error(err))
				continue
			}
			guard.Refresh(codes)
			lg.Debug("Coupon filter refreshed", zap.Int("codes", len(codes)))
		}
	}
}

// openOrderStore selects the order repository. The returned close function is
// always safe to call.
func openOrderStore(ctx context.Context, cfg *Config, pool *pgxpool.Pool, hs *health.Health) (order.Repository, func(), error) {
	if cfg.OrderStore != StoreMongo {
		return postgres.NewOrderRepository(pool), func() {}, nil
	}

	client, err := mongo.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect mongo")
	}
	closeFn := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(shutdownCtx); err != nil {
			zctx.From(ctx).Warn("Mongo disconnect", zap.Error(err))
		}
	}

	repo := mongo.NewOrderRepository(client.Database(cfg.Mongo.Database))
	if err := repo.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, errors.Wrap(err, "ensure mongo indexes")
	}
	hs.Add(health.Check{
		Name:    "mongo",
		Kind:    health.Readiness,
		Timeout: 5 * time.Second,
		Func: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
	})
	return repo, closeFn, nil
}

// newPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func newPublisher(lg *zap.Logger, cfg KafkaConfig) (order.Publisher, func()) {
	brokers := events.ParseBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return events.Nop{}, func() {}
	}
	p := events.NewKafkaPublisher(brokers, cfg.Topic)
	lg.Info("Publishing order events", zap.Strings("brokers", brokers), zap.String("topic", cfg.Topic))
	return p, func() {
		if err := p.Close(); err != nil {
			lg.Warn("Close event publisher", zap.Error(err))
		}
	}
}

// newRouter mounts health probes and the API. CORS runs on the root router so
// preflight requests are answered before route matching. Probes are not rate
// limited.
func newRouter(
	ctx context.Context,
	lg *zap.Logger,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	cfg *Config,
	h *handler.Handler,
	hs *health.Health,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.Recovery(),
		httpmiddleware.Instrument(serviceName, tp, mp),
		httpmiddleware.LogRequests(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", "Accept-Language"},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
	)
	r.Get("/livez", hs.LiveEndpoint)
	r.Get("/readyz", hs.ReadyEndpoint)

	r.Group(func(r chi.Router) {
		r.Use(httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}))
		h.Register(r)
	})
	return r
}
