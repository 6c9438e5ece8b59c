package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/HyperSlump/shop-sub000/internal/domain/errs"
	"github.com/HyperSlump/shop-sub000/internal/domain/model"
	"github.com/HyperSlump/shop-sub000/internal/infra/printful"
)

const (
	SourceDigital  = "digital"
	SourcePhysical = "physical"

	defaultDetailConcurrency = 4
)

type DigitalSource interface {
	ListDigital(ctx context.Context) ([]model.Product, error)
}

type PhysicalSource interface {
	ListStoreProducts(ctx context.Context) ([]printful.StoreProduct, error)
	GetProduct(ctx context.Context, syncProductID int64) (model.Product, error)
}

type Cache interface {
	Get(ctx context.Context, source string) ([]model.Product, bool, error)
	Set(ctx context.Context, source string, products []model.Product, ttl time.Duration) error
}

type Dependencies struct {
	Digital  DigitalSource
	Physical PhysicalSource
	Cache    Cache
	Logger   *zap.Logger
}

type Config struct {
	CacheTTL          time.Duration
	DetailConcurrency int
}

type Service struct {
	digital  DigitalSource
	physical PhysicalSource
	cache    Cache
	log      *zap.Logger
	cfg      Config

	group singleflight.Group
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = defaultDetailConcurrency
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		digital:  deps.Digital,
		physical: deps.Physical,
		cache:    deps.Cache,
		log:      log,
		cfg:      cfg,
	}
}

// ListProducts returns digital products followed by physical ones. A source
// that fails contributes nothing; the error is only logged.
func (s *Service) ListProducts(ctx context.Context) []model.Product {
	digital, physical, _, _ := s.snapshot(ctx)

	out := make([]model.Product, 0, len(digital)+len(physical))
	out = append(out, digital...)
	return append(out, physical...)
}

// Refresh fetches both sources bypassing the cache and stores the results.
func (s *Service) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := s.fetchAndStore(ctx, SourceDigital, s.fetchDigital)
		return err
	})
	g.Go(func() error {
		_, err := s.fetchAndStore(ctx, SourcePhysical, s.fetchPhysical)
		return err
	})
	return g.Wait()
}

// Resolve returns the trusted catalog entry for a cart id. Physical base ids
// resolve only when the product has exactly one variant.
func (s *Service) Resolve(ctx context.Context, id string) (model.Product, error) {
	id = strings.TrimSpace(id)
	resolved, err := s.ResolveAll(ctx, []string{id})
	if err != nil {
		return model.Product{}, err
	}
	return resolved[id], nil
}

// ResolveAll resolves every id against a single catalog load and fetches only
// the sources the ids need. The map holds each id that resolved; err joins
// the failures of the rest.
func (s *Service) ResolveAll(ctx context.Context, ids []string) (map[string]model.Product, error) {
	var needDigital, needPhysical bool
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, _, ok := model.ParsePhysicalID(id); ok {
			needPhysical = true
		} else {
			needDigital = true
		}
	}

	var digital, physical []model.Product
	var digitalErr, physicalErr error
	var g errgroup.Group
	if needDigital {
		g.Go(func() error {
			digital, digitalErr = s.load(ctx, SourceDigital, s.fetchDigital)
			return nil
		})
	}
	if needPhysical {
		g.Go(func() error {
			physical, physicalErr = s.load(ctx, SourcePhysical, s.fetchPhysical)
			return nil
		})
	}
	_ = g.Wait()

	resolved := make(map[string]model.Product, len(ids))
	var failures []error
	var digitalReported, physicalReported bool
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		product, err := resolveOne(id, digital, physical, digitalErr, physicalErr)
		if err == nil {
			resolved[id] = product
			continue
		}
		// A source outage is reported once however many ids it affects.
		switch {
		case digitalErr != nil && err == digitalErr:
			if digitalReported {
				continue
			}
			digitalReported = true
		case physicalErr != nil && err == physicalErr:
			if physicalReported {
				continue
			}
			physicalReported = true
		}
		failures = append(failures, err)
	}

	switch len(failures) {
	case 0:
		return resolved, nil
	case 1:
		return resolved, failures[0]
	default:
		return resolved, errors.Join(failures...)
	}
}

func resolveOne(id string, digital, physical []model.Product, digitalErr, physicalErr error) (model.Product, error) {
	if id == "" {
		return model.Product{}, errs.Invalid("product id is required")
	}

	if productID, variantID, ok := model.ParsePhysicalID(id); ok {
		product, found := findByID(physical, model.PhysicalID(productID))
		if !found {
			if physicalErr != nil {
				return model.Product{}, physicalErr
			}
			return model.Product{}, errs.Invalid("unknown product %q", id)
		}
		return resolveVariant(product, id, variantID)
	}

	product, found := findByID(digital, id)
	if !found {
		if digitalErr != nil {
			return model.Product{}, digitalErr
		}
		return model.Product{}, errs.Invalid("unknown product %q", id)
	}
	return product, nil
}

func resolveVariant(product model.Product, id string, variantID int64) (model.Product, error) {
	if variantID == 0 {
		if len(product.Variants) != 1 {
			return model.Product{}, errs.Invalid("product %q requires a variant", id)
		}
		return product.WithVariant(product.Variants[0]), nil
	}
	for _, v := range product.Variants {
		if v.ID == id {
			return product.WithVariant(v), nil
		}
	}
	return model.Product{}, errs.Invalid("unknown variant %q", id)
}

func findByID(products []model.Product, id string) (model.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

func (s *Service) snapshot(ctx context.Context) (digital, physical []model.Product, digitalErr, physicalErr error) {
	var g errgroup.Group
	g.Go(func() error {
		digital, digitalErr = s.load(ctx, SourceDigital, s.fetchDigital)
		return nil
	})
	g.Go(func() error {
		physical, physicalErr = s.load(ctx, SourcePhysical, s.fetchPhysical)
		return nil
	})
	_ = g.Wait()
	return digital, physical, digitalErr, physicalErr
}

func (s *Service) load(ctx context.Context, source string, fetch func(context.Context) ([]model.Product, error)) ([]model.Product, error) {
	if s.cache != nil && s.cfg.CacheTTL > 0 {
		cached, found, err := s.cache.Get(ctx, source)
		if err != nil {
			s.log.Warn("catalog cache read failed", zap.String("source", source), zap.Error(err))
		}
		if found {
			return cached, nil
		}
	}

	products, err := s.fetchAndStore(ctx, source, fetch)
	if err != nil {
		s.log.Warn("catalog source failed", zap.String("source", source), zap.Error(err))
		return nil, err
	}
	return products, nil
}

func (s *Service) fetchAndStore(ctx context.Context, source string, fetch func(context.Context) ([]model.Product, error)) ([]model.Product, error) {
	v, err, _ := s.group.Do(source, func() (any, error) {
		products, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil && s.cfg.CacheTTL > 0 {
			if err := s.cache.Set(ctx, source, products, s.cfg.CacheTTL); err != nil {
				s.log.Warn("catalog cache write failed", zap.String("source", source), zap.Error(err))
			}
		}
		return products, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s catalog: %w", source, err)
	}
	return v.([]model.Product), nil
}

func (s *Service) fetchDigital(ctx context.Context) ([]model.Product, error) {
	if s.digital == nil {
		return []model.Product{}, nil
	}
	return s.digital.ListDigital(ctx)
}

func (s *Service) fetchPhysical(ctx context.Context) ([]model.Product, error) {
	if s.physical == nil {
		return []model.Product{}, nil
	}

	listed, err := s.physical.ListStoreProducts(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]*model.Product, len(listed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DetailConcurrency)
	for i, sp := range listed {
		g.Go(func() error {
			product, err := s.physical.GetProduct(gctx, sp.ID)
			if err != nil {
				s.log.Debug("physical product dropped", zap.Int64("sync_product_id", sp.ID), zap.Error(err))
				return nil
			}
			details[i] = &product
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.Product, 0, len(details))
	for _, p := range details {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}
