package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/HyperSlump/shop-sub000/internal/domain/model"
)

const catalogPrefix = "catalog:"

// CatalogCacheRepo stores one product list per catalog source.
type CatalogCacheRepo struct {
	client *goredis.Client
}

func NewCatalogCacheRepo(client *goredis.Client) *CatalogCacheRepo {
	return &CatalogCacheRepo{client: client}
}

// Get reports found=false on a cache miss.
func (r *CatalogCacheRepo) Get(ctx context.Context, source string) ([]model.Product, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, catalogKey(source)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get catalog cache: %w", err)
	}

	var products []model.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, false, fmt.Errorf("decode catalog cache: %w", err)
	}
	return products, true, nil
}

func (r *CatalogCacheRepo) Set(ctx context.Context, source string, products []model.Product, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return nil
	}
	if products == nil {
		products = []model.Product{}
	}

	raw, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encode catalog cache: %w", err)
	}
	if err := r.client.Set(ctx, catalogKey(source), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set catalog cache: %w", err)
	}
	return nil
}

func (r *CatalogCacheRepo) Invalidate(ctx context.Context, sources ...string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if len(sources) == 0 {
		return nil
	}

	keys := make([]string, 0, len(sources))
	for _, source := range sources {
		keys = append(keys, catalogKey(source))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

func catalogKey(source string) string {
	return catalogPrefix + strings.ToLower(strings.TrimSpace(source))
}
