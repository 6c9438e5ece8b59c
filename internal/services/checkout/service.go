package checkout

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
	"github.com/HyperSlump/shop-sub000/internal/domain/errs"
	"github.com/HyperSlump/shop-sub000/internal/domain/model"
	stripeinfra "github.com/HyperSlump/shop-sub000/internal/infra/stripe"
	"github.com/HyperSlump/shop-sub000/internal/services/cart"
)

// Processor metadata values are capped at 500 characters.
const maxItemDetailsLen = 500

type Resolver interface {
	ResolveAll(ctx context.Context, ids []string) (map[string]model.Product, error)
}

type Processor interface {
	CreateCharge(ctx context.Context, req model.ChargeRequest) (model.CheckoutSession, error)
}

type Recorder interface {
	Checkout(mode, outcome string)
}

type Dependencies struct {
	Catalog   Resolver
	Processor Processor
	Metrics   Recorder
	Logger    *zap.Logger
}

type Config struct {
	Mode     enums.CheckoutMode
	Currency string
}

type Service struct {
	catalog   Resolver
	processor Processor
	metrics   Recorder
	log       *zap.Logger
	cfg       Config
}

func NewService(deps Dependencies, cfg Config) *Service {
	if !cfg.Mode.Valid() {
		cfg.Mode = enums.CheckoutModeEmbedded
	}
	cfg.Currency = strings.ToLower(strings.TrimSpace(cfg.Currency))
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		catalog:   deps.Catalog,
		processor: deps.Processor,
		metrics:   deps.Metrics,
		log:       log,
		cfg:       cfg,
	}
}

func (s *Service) Mode() enums.CheckoutMode {
	return s.cfg.Mode
}

// CreateSession prices every cart line from the catalog and opens a payment
// with the processor. Client-supplied amounts are never charged.
func (s *Service) CreateSession(ctx context.Context, lines []model.CartLine) (model.CheckoutSession, error) {
	req, err := s.buildCharge(ctx, lines)
	if err != nil {
		s.record("rejected")
		return model.CheckoutSession{}, err
	}

	session, err := s.processor.CreateCharge(ctx, req)
	if err != nil {
		s.record("failed")
		return model.CheckoutSession{}, err
	}
	if session.AmountMinor == 0 {
		session.AmountMinor = req.AmountMinor()
	}
	if session.Currency == "" {
		session.Currency = req.Currency
	}

	s.record("ok")
	s.log.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.String("mode", string(req.Mode)),
		zap.Int64("amount_minor", session.AmountMinor),
		zap.Int("lines", len(req.Lines)),
	)
	return session, nil
}

func (s *Service) buildCharge(ctx context.Context, lines []model.CartLine) (model.ChargeRequest, error) {
	normalized := cart.New()
	for _, line := range lines {
		normalized.Add(model.Product{ID: strings.TrimSpace(line.ID), Name: line.Name, Image: line.Image, Amount: line.Amount})
	}
	if normalized.Len() == 0 {
		return model.ChargeRequest{}, errs.Invalid("cart is empty")
	}

	entries := normalized.Items()
	ids := make([]string, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
	}
	resolved, err := s.catalog.ResolveAll(ctx, ids)
	if err != nil {
		return model.ChargeRequest{}, err
	}

	req := model.ChargeRequest{Mode: s.cfg.Mode, Currency: s.cfg.Currency}
	details := make([]model.LineItem, 0, len(entries))
	for _, entry := range entries {
		product := resolved[entry.ID]
		if product.Currency != "" && !strings.EqualFold(product.Currency, s.cfg.Currency) {
			return model.ChargeRequest{}, errs.Invalid("product %q is priced in %s", entry.ID, product.Currency)
		}
		if !product.Amount.IsPositive() {
			return model.ChargeRequest{}, errs.Invalid("product %q has no price", entry.ID)
		}
		if !entry.Amount.Equal(product.Amount) {
			s.log.Warn("cart amount differs from catalog price",
				zap.String("id", entry.ID),
				zap.String("client_amount", entry.Amount.String()),
				zap.String("catalog_amount", product.Amount.String()),
			)
		}

		image := product.Image
		if image == "" {
			image = entry.Image
		}
		productType := product.Type()
		req.Lines = append(req.Lines, model.ChargeLine{
			ID:          product.ID,
			Name:        product.Name,
			Image:       image,
			AmountMinor: product.Amount.Shift(2).Round(0).IntPart(),
			Type:        productType,
		})
		if productType == enums.ProductTypePhysical {
			req.CollectShipping = true
		}

		item := model.LineItem{ID: product.ID, Name: product.Name, Type: productType}
		if v := product.Metadata[model.MetaVariantID]; v != "" && productType == enums.ProductTypePhysical {
			item.VariantID = json.Number(v)
		}
		details = append(details, item)
	}

	encoded, err := encodeItemDetails(details)
	if err != nil {
		return model.ChargeRequest{}, err
	}
	req.ItemDetails = encoded
	return req, nil
}

// encodeItemDetails drops item names when the full form does not fit the
// processor's metadata limit. Fulfillment only needs ids and types.
func encodeItemDetails(items []model.LineItem) (string, error) {
	encoded, err := stripeinfra.EncodeItemDetails(items)
	if err != nil {
		return "", err
	}
	if len(encoded) <= maxItemDetailsLen {
		return encoded, nil
	}

	compact := make([]model.LineItem, len(items))
	for i, item := range items {
		item.Name = ""
		compact[i] = item
	}
	encoded, err = stripeinfra.EncodeItemDetails(compact)
	if err != nil {
		return "", err
	}
	if len(encoded) > maxItemDetailsLen {
		return "", errs.Invalid("cart has too many items (%d)", len(items))
	}
	return encoded, nil
}

func (s *Service) record(outcome string) {
	if s.metrics != nil {
		s.metrics.Checkout(string(s.cfg.Mode), outcome)
	}
}
