package dto

import "github.com/HyperSlump/shop-sub000/internal/domain/model"

type ProductsResponse struct {
	Products []model.Product `json:"products"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}
