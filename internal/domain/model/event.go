package model

import (
	"encoding/json"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
)

const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
)

// LineItem is one element of the item_details metadata array.
type LineItem struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      enums.ProductType `json:"type"`
	VariantID json.Number       `json:"variant_id,omitempty"`
}

// PaymentEvent is a verified processor notification. The concrete type is one
// of SessionCompleted, IntentSucceeded or Ignored.
type PaymentEvent interface {
	EventID() string
	EventType() string
	isPaymentEvent()
}

// PaidOrder is the part of a payment event fulfillment works from.
type PaidOrder struct {
	ObjectID string
	Email    string
	Shipping *Address
	Items    []LineItem
	// ItemsErr is set when item_details was present but could not be decoded.
	ItemsErr error
}

func (o PaidOrder) ItemsOfType(t enums.ProductType) []LineItem {
	var out []LineItem
	for _, item := range o.Items {
		if item.Type == t {
			out = append(out, item)
		}
	}
	return out
}

type SessionCompleted struct {
	ID string
	PaidOrder
}

func (e SessionCompleted) EventID() string   { return e.ID }
func (e SessionCompleted) EventType() string { return EventCheckoutSessionCompleted }
func (SessionCompleted) isPaymentEvent()     {}

type IntentSucceeded struct {
	ID string
	PaidOrder
}

func (e IntentSucceeded) EventID() string   { return e.ID }
func (e IntentSucceeded) EventType() string { return EventPaymentIntentSucceeded }
func (IntentSucceeded) isPaymentEvent()     {}

// Ignored is any verified event type that needs no fulfillment.
type Ignored struct {
	ID   string
	Type string
}

func (e Ignored) EventID() string   { return e.ID }
func (e Ignored) EventType() string { return e.Type }
func (Ignored) isPaymentEvent()     {}
