package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/HyperSlump/shop-sub000/internal/config"
	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
	emailinfra "github.com/HyperSlump/shop-sub000/internal/infra/email"
	"github.com/HyperSlump/shop-sub000/internal/infra/httpclient"
	kafkainfra "github.com/HyperSlump/shop-sub000/internal/infra/kafka"
	"github.com/HyperSlump/shop-sub000/internal/infra/metrics"
	"github.com/HyperSlump/shop-sub000/internal/infra/printful"
	s3infra "github.com/HyperSlump/shop-sub000/internal/infra/s3"
	stripeinfra "github.com/HyperSlump/shop-sub000/internal/infra/stripe"
	"github.com/HyperSlump/shop-sub000/internal/jobs/catalogwarm"
	pgrepo "github.com/HyperSlump/shop-sub000/internal/repo/postgres"
	redrepo "github.com/HyperSlump/shop-sub000/internal/repo/redis"
	catalogsvc "github.com/HyperSlump/shop-sub000/internal/services/catalog"
	checkoutsvc "github.com/HyperSlump/shop-sub000/internal/services/checkout"
	fulfillmentsvc "github.com/HyperSlump/shop-sub000/internal/services/fulfillment"
	ratesvc "github.com/HyperSlump/shop-sub000/internal/services/rate"
	shippingsvc "github.com/HyperSlump/shop-sub000/internal/services/shipping"
	webhooksvc "github.com/HyperSlump/shop-sub000/internal/services/webhook"
)

const bucketCheckTimeout = 5 * time.Second

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	alerts     *kafkainfra.AlertPublisher
	warmer     *catalogwarm.Job
	jobsCtx    context.Context
	stopJobs   context.CancelFunc
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	r := chi.NewRouter()
	ApplyMiddlewares(r, log, appMetrics)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	catalogCache := redrepo.NewCatalogCacheRepo(redisClient)
	claimRepo := redrepo.NewClaimRepo(redisClient)
	purchaseRepo := pgrepo.NewPurchaseRepo(pool)
	rateLimiter := ratesvc.NewLimiter(redrepo.NewRateRepo(redisClient),
		ratesvc.Window{Length: time.Minute, Limit: cfg.RateLimit.PerMinute},
		ratesvc.Window{Length: 10 * time.Second, Limit: cfg.RateLimit.Per10Sec},
	)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		Region:    cfg.S3.Region,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}
	downloads := fulfillmentsvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	if s3Client != nil {
		bucketCtx, cancel := context.WithTimeout(ctx, bucketCheckTimeout)
		if err := downloads.EnsureBucket(bucketCtx); err != nil {
			log.Warn("download bucket unavailable, links will be omitted", zap.Error(err))
		}
		cancel()
	}

	stripeAPI := stripeinfra.NewClient(stripeinfra.Config{
		SecretKey:  cfg.Stripe.SecretKey,
		APIURL:     cfg.Stripe.APIURL,
		HTTPClient: httpclient.New("stripe", cfg.Timeouts.Processor),
		Logger:     log,
	})
	successURL, cancelURL, returnURL := cfg.CheckoutURLs()
	processor := stripeinfra.NewProcessor(stripeAPI, stripeinfra.ProcessorConfig{
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
		ReturnURL:         returnURL,
		ShippingCountries: cfg.Stripe.ShippingCountries,
	})

	printfulClient, err := printful.NewClient(printful.Config{
		BaseURL:         cfg.Printful.BaseURL,
		APIKey:          cfg.Printful.APIKey,
		StoreID:         cfg.Printful.StoreID,
		Timeout:         cfg.Timeouts.Partner,
		BreakerFailures: cfg.Printful.BreakerFailures,
		BreakerCooldown: cfg.Printful.BreakerCooldown,
		HTTPClient:      httpclient.New("printful", cfg.Timeouts.Partner),
		Logger:          log,
	})
	if err != nil {
		return nil, fmt.Errorf("create printful client: %w", err)
	}

	catalogService := catalogsvc.NewService(catalogsvc.Dependencies{
		Digital:  stripeinfra.NewCatalogSource(stripeAPI, cfg.Stripe.Currency),
		Physical: printfulClient,
		Cache:    catalogCache,
		Logger:   log,
	}, catalogsvc.Config{
		CacheTTL:          cfg.Catalog.CacheTTL,
		DetailConcurrency: cfg.Catalog.DetailConcurrency,
	})
	checkoutService := checkoutsvc.NewService(checkoutsvc.Dependencies{
		Catalog:   catalogService,
		Processor: processor,
		Metrics:   appMetrics,
		Logger:    log,
	}, checkoutsvc.Config{
		Mode:     enums.CheckoutMode(cfg.Stripe.CheckoutMode),
		Currency: cfg.Stripe.Currency,
	})
	shippingService := shippingsvc.NewService(printfulClient, cfg.Stripe.Currency)

	fulfillmentDeps := fulfillmentsvc.Dependencies{
		Ledger:  purchaseRepo,
		Links:   downloads,
		Catalog: catalogService,
		Claims:  claimRepo,
		Partner: printfulClient,
		Logger:  log,
	}
	if mailer, err := emailinfra.NewMailer(emailinfra.Config{
		APIKey:     cfg.Email.ResendAPIKey,
		From:       cfg.Email.From,
		BaseURL:    cfg.Email.BaseURL,
		HTTPClient: httpclient.New("resend", cfg.Timeouts.Email),
	}); err != nil {
		log.Warn("email init failed, digital access emails are disabled", zap.Error(err))
	} else {
		fulfillmentDeps.Mailer = mailer
	}
	fulfillmentService := fulfillmentsvc.NewService(fulfillmentDeps, fulfillmentsvc.Config{
		SiteURL:        cfg.SiteURL,
		DownloadTTL:    cfg.S3.DownloadTTL,
		DedupTTL:       cfg.Fulfillment.DedupTTL,
		LedgerTimeout:  cfg.Timeouts.Ledger,
		EmailTimeout:   cfg.Timeouts.Email,
		PartnerTimeout: cfg.Timeouts.Partner,
	})

	alerts := kafkainfra.NewAlertPublisher(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic)
	if !alerts.Enabled() {
		log.Info("kafka brokers not configured, fulfillment alerts are log-only")
	}
	webhookService := webhooksvc.NewService(webhooksvc.Dependencies{
		Verifier:  stripeinfra.NewVerifier(cfg.Stripe.WebhookSecret),
		Fulfiller: fulfillmentService,
		Alerts:    alerts,
		Metrics:   appMetrics,
		Logger:    log,
	}, webhooksvc.Config{
		DigitalTimeout:  cfg.Timeouts.Branch,
		PhysicalTimeout: cfg.Timeouts.Branch,
	})

	RegisterRoutes(r, Dependencies{
		CatalogService:  catalogService,
		CheckoutService: checkoutService,
		ShippingService: shippingService,
		WebhookService:  webhookService,
		RateLimiter:     rateLimiter,
		Metrics:         appMetrics,
		Logger:          log,
		Config:          cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	jobsCtx, stopJobs := context.WithCancel(context.WithoutCancel(ctx))

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		alerts:     alerts,
		warmer:     catalogwarm.New(catalogService, cfg.Catalog.WarmInterval, log),
		jobsCtx:    jobsCtx,
		stopJobs:   stopJobs,
		httpRouter: r,
	}, nil
}

// Run serves HTTP and keeps the catalog cache warm until Shutdown.
func (a *App) Run() error {
	go a.warmer.Start(a.jobsCtx)

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	a.stopJobs()
	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if err := a.alerts.Close(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
