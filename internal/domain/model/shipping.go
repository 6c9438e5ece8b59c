package model

import "github.com/shopspring/decimal"

type ShippingRate struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Rate            decimal.Decimal `json:"rate"`
	Currency        string          `json:"currency"`
	MinDeliveryDays int             `json:"min_delivery_days"`
	MaxDeliveryDays int             `json:"max_delivery_days"`
}
