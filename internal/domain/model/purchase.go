package model

import "time"

type Purchase struct {
	ID              int64     `json:"id"`
	CustomerEmail   string    `json:"customer_email"`
	StripeSessionID string    `json:"stripe_session_id"`
	PriceID         string    `json:"price_id"`
	IsVerified      bool      `json:"is_verified"`
	CreatedAt       time.Time `json:"created_at"`
}
