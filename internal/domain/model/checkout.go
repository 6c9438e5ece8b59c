package model

import (
	"github.com/shopspring/decimal"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
)

// CartLine is one cart entry as submitted by the client. Amount is advisory.
type CartLine struct {
	ID     string
	Name   string
	Image  string
	Amount decimal.Decimal
}

// ChargeLine is a line item priced from the catalog, in minor units.
type ChargeLine struct {
	ID          string
	Name        string
	Image       string
	AmountMinor int64
	Type        enums.ProductType
}

// ChargeRequest is what the payment processor is asked to collect.
type ChargeRequest struct {
	Mode            enums.CheckoutMode
	Currency        string
	Lines           []ChargeLine
	ItemDetails     string
	CollectShipping bool
}

func (r ChargeRequest) AmountMinor() int64 {
	var total int64
	for _, line := range r.Lines {
		total += line.AmountMinor
	}
	return total
}

type CheckoutSession struct {
	ID           string
	ClientSecret string
	URL          string
	AmountMinor  int64
	Currency     string
}
