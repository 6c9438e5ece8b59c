package printful

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/HyperSlump/shop-sub000/internal/domain/model"
)

type RateItem struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

type shippingRatesRequest struct {
	Recipient rateRecipient `json:"recipient"`
	Items     []RateItem    `json:"items"`
	Currency  string        `json:"currency,omitempty"`
}

type rateRecipient struct {
	Address1    string `json:"address1"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
	StateCode   string `json:"state_code,omitempty"`
	Zip         string `json:"zip,omitempty"`
}

type shippingRate struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Rate            decimal.Decimal `json:"rate"`
	Currency        string          `json:"currency"`
	MinDeliveryDays int             `json:"minDeliveryDays"`
	MaxDeliveryDays int             `json:"maxDeliveryDays"`
}

func (c *Client) ShippingRates(ctx context.Context, recipient model.Address, items []RateItem, currency string) ([]model.ShippingRate, error) {
	req := shippingRatesRequest{
		Recipient: rateRecipient{
			Address1:    recipient.Address1,
			City:        recipient.City,
			CountryCode: recipient.CountryCode,
			StateCode:   recipient.StateCode,
			Zip:         recipient.Zip,
		},
		Items:    items,
		Currency: strings.ToUpper(strings.TrimSpace(currency)),
	}

	var rates []shippingRate
	if err := c.DoJSON(ctx, "estimate shipping rates", http.MethodPost, "/shipping/rates", req, &rates); err != nil {
		return nil, err
	}

	out := make([]model.ShippingRate, 0, len(rates))
	for _, r := range rates {
		out = append(out, model.ShippingRate{
			ID:              r.ID,
			Name:            r.Name,
			Rate:            r.Rate,
			Currency:        strings.ToLower(r.Currency),
			MinDeliveryDays: r.MinDeliveryDays,
			MaxDeliveryDays: r.MaxDeliveryDays,
		})
	}
	return out, nil
}
