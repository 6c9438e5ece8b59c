package fulfillment

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
	"github.com/HyperSlump/shop-sub000/internal/domain/model"
	"github.com/HyperSlump/shop-sub000/internal/infra/email"
	"github.com/HyperSlump/shop-sub000/internal/infra/printful"
)

const (
	OutcomeOK        = "ok"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"

	defaultLedgerTimeout  = 5 * time.Second
	defaultEmailTimeout   = 10 * time.Second
	defaultPartnerTimeout = 15 * time.Second
	defaultDownloadTTL    = 24 * time.Hour
	defaultDedupTTL       = 72 * time.Hour
)

type PurchaseLedger interface {
	RecordBatch(ctx context.Context, purchases []model.Purchase) ([]string, error)
}

type Mailer interface {
	Send(ctx context.Context, msg email.Message) (string, error)
}

type LinkSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Catalog interface {
	ResolveAll(ctx context.Context, ids []string) (map[string]model.Product, error)
}

type OrderClaims interface {
	Claim(ctx context.Context, externalID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, externalID string) error
}

type Partner interface {
	FindOrder(ctx context.Context, externalID string) (printful.Order, bool, error)
	CreateDraftOrder(ctx context.Context, order model.FulfillmentOrder) (printful.Order, error)
}

type Dependencies struct {
	Ledger  PurchaseLedger
	Mailer  Mailer
	Links   LinkSigner
	Catalog Catalog
	Claims  OrderClaims
	Partner Partner
	Logger  *zap.Logger
}

type Config struct {
	SiteURL        string
	DownloadTTL    time.Duration
	DedupTTL       time.Duration
	LedgerTimeout  time.Duration
	EmailTimeout   time.Duration
	PartnerTimeout time.Duration
}

// Result reports one fulfillment branch. Err is a *errs.FulfillmentError.
type Result struct {
	Kind    enums.FulfillmentKind
	Outcome string
	// Recorded counts ledger rows written by this delivery.
	Recorded int
	EmailID  string
	OrderID  int64
	Err      error
}

type Service struct {
	ledger  PurchaseLedger
	mailer  Mailer
	links   LinkSigner
	catalog Catalog
	claims  OrderClaims
	partner Partner
	log     *zap.Logger
	cfg     Config
}

func NewService(deps Dependencies, cfg Config) *Service {
	cfg.SiteURL = strings.TrimRight(strings.TrimSpace(cfg.SiteURL), "/")
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = defaultDownloadTTL
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = defaultDedupTTL
	}
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = defaultLedgerTimeout
	}
	if cfg.EmailTimeout <= 0 {
		cfg.EmailTimeout = defaultEmailTimeout
	}
	if cfg.PartnerTimeout <= 0 {
		cfg.PartnerTimeout = defaultPartnerTimeout
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		ledger:  deps.Ledger,
		mailer:  deps.Mailer,
		links:   deps.Links,
		catalog: deps.Catalog,
		claims:  deps.Claims,
		partner: deps.Partner,
		log:     log,
		cfg:     cfg,
	}
}
