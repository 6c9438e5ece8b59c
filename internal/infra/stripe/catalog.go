package stripe

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
	"github.com/HyperSlump/shop-sub000/internal/domain/model"
)

// CatalogSource lists active one-time prices as digital products.
type CatalogSource struct {
	api      *client.API
	currency string
}

func NewCatalogSource(api *client.API, currency string) *CatalogSource {
	return &CatalogSource{
		api:      api,
		currency: strings.ToLower(strings.TrimSpace(currency)),
	}
}

func (s *CatalogSource) ListDigital(ctx context.Context) ([]model.Product, error) {
	if s == nil || s.api == nil {
		return nil, upstreamError("list prices", errNotConfigured)
	}

	params := &stripego.PriceListParams{
		Active: stripego.Bool(true),
		Type:   stripego.String(string(stripego.PriceTypeOneTime)),
	}
	if s.currency != "" {
		params.Currency = stripego.String(s.currency)
	}
	params.Context = ctx
	params.AddExpand("data.product")

	var products []model.Product
	iter := s.api.Prices.List(params)
	for iter.Next() {
		if p, ok := productFromPrice(iter.Price()); ok {
			products = append(products, p)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, upstreamError("list prices", err)
	}

	return products, nil
}

func productFromPrice(price *stripego.Price) (model.Product, bool) {
	if price == nil || !price.Active || price.Product == nil {
		return model.Product{}, false
	}
	product := price.Product
	if product.Deleted || (product.Name != "" && !product.Active) {
		return model.Product{}, false
	}
	// Products tagged PHYSICAL in Stripe are sold through the print partner.
	if t := product.Metadata[model.MetaType]; t != "" && enums.ParseProductType(t) != enums.ProductTypeDigital {
		return model.Product{}, false
	}

	meta := make(map[string]string, len(product.Metadata)+len(price.Metadata)+1)
	for k, v := range product.Metadata {
		meta[k] = v
	}
	for k, v := range price.Metadata {
		meta[k] = v
	}
	meta[model.MetaType] = string(enums.ProductTypeDigital)

	name := strings.TrimSpace(product.Name)
	if name == "" {
		name = strings.TrimSpace(price.Nickname)
	}
	var image string
	if len(product.Images) > 0 {
		image = product.Images[0]
	}

	return model.Product{
		ID:        price.ID,
		ProductID: product.ID,
		Name:      name,
		Image:     image,
		Amount:    decimal.New(price.UnitAmount, -2),
		Currency:  strings.ToLower(string(price.Currency)),
		Metadata:  meta,
	}, true
}
