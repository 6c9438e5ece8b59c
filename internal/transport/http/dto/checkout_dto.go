package dto

import "github.com/shopspring/decimal"

type CartItem struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Image  string          `json:"image,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

type CheckoutRequest struct {
	Cart []CartItem `json:"cart"`
}

// CheckoutResponse carries either ClientSecret (intent, embedded) or URL (hosted).
type CheckoutResponse struct {
	ClientSecret string `json:"clientSecret,omitempty"`
	URL          string `json:"url,omitempty"`
	SessionID    string `json:"sessionId"`
}
