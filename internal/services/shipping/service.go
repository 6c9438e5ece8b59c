package shipping

import (
	"context"
	"strconv"
	"strings"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
	"github.com/HyperSlump/shop-sub000/internal/domain/errs"
	"github.com/HyperSlump/shop-sub000/internal/domain/model"
	"github.com/HyperSlump/shop-sub000/internal/infra/printful"
	"github.com/HyperSlump/shop-sub000/internal/services/cart"
)

type RateQuoter interface {
	ShippingRates(ctx context.Context, recipient model.Address, items []printful.RateItem, currency string) ([]model.ShippingRate, error)
}

// Item is a cart entry as sent for a shipping quote. ID is optional.
type Item struct {
	ID       string
	Metadata map[string]string
}

type Service struct {
	partner  RateQuoter
	currency string
}

func NewService(partner RateQuoter, currency string) *Service {
	return &Service{partner: partner, currency: strings.ToLower(strings.TrimSpace(currency))}
}

// Estimate quotes shipping for the physical items only. A cart without
// physical items has no applicable rates and makes no partner call.
func (s *Service) Estimate(ctx context.Context, recipient model.Address, items []Item) ([]model.ShippingRate, error) {
	rateItems, err := physicalRateItems(items)
	if err != nil {
		return nil, err
	}
	if len(rateItems) == 0 {
		return []model.ShippingRate{}, nil
	}

	if missing := recipient.MissingFields(); len(missing) > 0 {
		return nil, errs.Invalid("recipient missing %s", strings.Join(missing, ", "))
	}

	rates, err := s.partner.ShippingRates(ctx, recipient, rateItems, s.currency)
	if err != nil {
		return nil, err
	}
	if rates == nil {
		rates = []model.ShippingRate{}
	}
	return rates, nil
}

func physicalRateItems(items []Item) ([]printful.RateItem, error) {
	seen := cart.New()
	out := make([]printful.RateItem, 0, len(items))
	for _, item := range items {
		if enums.ParseProductType(item.Metadata[model.MetaType]) != enums.ProductTypePhysical {
			continue
		}
		if id := strings.TrimSpace(item.ID); id != "" && !seen.Add(model.Product{ID: id}) {
			continue
		}

		raw := strings.TrimSpace(item.Metadata[model.MetaVariantID])
		variantID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || variantID <= 0 {
			return nil, errs.Invalid("physical item %q has no variant_id", item.ID)
		}
		out = append(out, printful.RateItem{VariantID: variantID, Quantity: 1})
	}
	return out, nil
}
