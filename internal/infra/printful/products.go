package printful

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
	"github.com/HyperSlump/shop-sub000/internal/domain/model"
)

const (
	storePageSize = 100
	// maxStorePages bounds the listing if the partner ignores offset.
	maxStorePages = 50
)

type StoreProduct struct {
	ID           int64  `json:"id"`
	ExternalID   string `json:"external_id"`
	Name         string `json:"name"`
	Variants     int    `json:"variants"`
	Synced       int    `json:"synced"`
	ThumbnailURL string `json:"thumbnail_url"`
	IsIgnored    bool   `json:"is_ignored"`
}

type SyncVariant struct {
	ID            int64           `json:"id"`
	ExternalID    string          `json:"external_id"`
	SyncProductID int64           `json:"sync_product_id"`
	Name          string          `json:"name"`
	RetailPrice   decimal.Decimal `json:"retail_price"`
	Currency      string          `json:"currency"`
	VariantID     int64           `json:"variant_id"`
	IsIgnored     bool            `json:"is_ignored"`
	Files         []struct {
		Type       string `json:"type"`
		PreviewURL string `json:"preview_url"`
	} `json:"files"`
	Product struct {
		VariantID int64  `json:"variant_id"`
		ProductID int64  `json:"product_id"`
		Image     string `json:"image"`
		Name      string `json:"name"`
	} `json:"product"`
}

type productDetail struct {
	SyncProduct  StoreProduct  `json:"sync_product"`
	SyncVariants []SyncVariant `json:"sync_variants"`
}

// ListStoreProducts pages through the store's sync products and drops ignored ones.
func (c *Client) ListStoreProducts(ctx context.Context) ([]StoreProduct, error) {
	var out []StoreProduct
	for page := 0; page < maxStorePages; page++ {
		var products []StoreProduct
		path := fmt.Sprintf("/store/products?limit=%d&offset=%d", storePageSize, page*storePageSize)
		if err := c.DoJSON(ctx, "list store products", http.MethodGet, path, nil, &products); err != nil {
			return nil, err
		}

		for _, p := range products {
			if !p.IsIgnored {
				out = append(out, p)
			}
		}
		if len(products) < storePageSize {
			return out, nil
		}
	}

	c.logger.Warn("store product listing truncated", zap.Int("pages", maxStorePages), zap.Int("page_size", storePageSize))
	return out, nil
}

// GetProduct fetches one store product with its variants as a catalog entry.
func (c *Client) GetProduct(ctx context.Context, syncProductID int64) (model.Product, error) {
	var detail productDetail
	path := "/store/products/" + strconv.FormatInt(syncProductID, 10)
	if err := c.DoJSON(ctx, "get store product", http.MethodGet, path, nil, &detail); err != nil {
		return model.Product{}, err
	}

	product, ok := toProduct(detail)
	if !ok {
		return model.Product{}, fmt.Errorf("store product %d has no sellable variants", syncProductID)
	}
	return product, nil
}

func toProduct(detail productDetail) (model.Product, bool) {
	sp := detail.SyncProduct
	if sp.ID <= 0 {
		return model.Product{}, false
	}

	var (
		variants []model.Variant
		currency string
		minPrice decimal.Decimal
	)
	for _, sv := range detail.SyncVariants {
		if sv.IsIgnored || sv.ID <= 0 || !sv.RetailPrice.IsPositive() {
			continue
		}
		variantID := sv.VariantID
		if variantID == 0 {
			variantID = sv.Product.VariantID
		}
		variants = append(variants, model.Variant{
			ID:            model.PhysicalVariantID(sp.ID, sv.ID),
			Name:          strings.TrimSpace(sv.Name),
			Image:         variantImage(sv),
			Amount:        sv.RetailPrice,
			VariantID:     variantID,
			SyncVariantID: sv.ID,
		})
		if len(variants) == 1 || sv.RetailPrice.LessThan(minPrice) {
			minPrice = sv.RetailPrice
		}
		if currency == "" {
			currency = strings.ToLower(strings.TrimSpace(sv.Currency))
		}
	}
	if len(variants) == 0 {
		return model.Product{}, false
	}

	meta := map[string]string{model.MetaType: string(enums.ProductTypePhysical)}
	if len(variants) == 1 {
		meta[model.MetaVariantID] = strconv.FormatInt(variants[0].VariantID, 10)
		meta[model.MetaSyncVariantID] = strconv.FormatInt(variants[0].SyncVariantID, 10)
	}

	return model.Product{
		ID:        model.PhysicalID(sp.ID),
		ProductID: strconv.FormatInt(sp.ID, 10),
		Name:      strings.TrimSpace(sp.Name),
		Image:     sp.ThumbnailURL,
		Amount:    minPrice,
		Currency:  currency,
		Metadata:  meta,
		Variants:  variants,
	}, true
}

func variantImage(sv SyncVariant) string {
	for _, f := range sv.Files {
		if f.Type == "preview" && f.PreviewURL != "" {
			return f.PreviewURL
		}
	}
	return sv.Product.Image
}
