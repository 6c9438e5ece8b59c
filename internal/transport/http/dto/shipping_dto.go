package dto

import "github.com/HyperSlump/shop-sub000/internal/domain/model"

type ShippingItem struct {
	ID       string         `json:"id,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

type ShippingRatesRequest struct {
	Recipient *model.Address `json:"recipient"`
	Items     []ShippingItem `json:"items"`
}

type ShippingRatesResponse struct {
	Rates []model.ShippingRate `json:"rates"`
}
