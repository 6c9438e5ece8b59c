package stripe

import (
	"encoding/json"
	"fmt"
	"strings"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
	"github.com/HyperSlump/shop-sub000/internal/domain/errs"
	"github.com/HyperSlump/shop-sub000/internal/domain/model"
)

// Verifier authenticates webhook deliveries and decodes them into payment events.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: strings.TrimSpace(secret)}
}

// Verify rejects unsigned, mis-signed or malformed payloads with errs.ErrVerification.
func (v *Verifier) Verify(payload []byte, signature string) (model.PaymentEvent, error) {
	if v == nil || v.secret == "" {
		return nil, fmt.Errorf("%w: webhook secret is not configured", errs.ErrVerification)
	}
	if strings.TrimSpace(signature) == "" {
		return nil, fmt.Errorf("%w: missing signature", errs.ErrVerification)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrVerification, err)
	}

	return parseEvent(event)
}

type legacySessionFields struct {
	ShippingDetails *stripego.ShippingDetails `json:"shipping_details"`
}

func parseEvent(event stripego.Event) (model.PaymentEvent, error) {
	eventType := string(event.Type)
	if eventType != model.EventCheckoutSessionCompleted && eventType != model.EventPaymentIntentSucceeded {
		return model.Ignored{ID: event.ID, Type: eventType}, nil
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: event %s has no data object", errs.ErrVerification, event.ID)
	}

	if eventType == model.EventCheckoutSessionCompleted {
		var session stripego.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("%w: decode checkout session: %v", errs.ErrVerification, err)
		}
		var legacy legacySessionFields
		_ = json.Unmarshal(event.Data.Raw, &legacy)

		return model.SessionCompleted{ID: event.ID, PaidOrder: sessionOrder(&session, legacy)}, nil
	}

	var intent stripego.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("%w: decode payment intent: %v", errs.ErrVerification, err)
	}
	return model.IntentSucceeded{ID: event.ID, PaidOrder: intentOrder(&intent)}, nil
}

func sessionOrder(session *stripego.CheckoutSession, legacy legacySessionFields) model.PaidOrder {
	var email string
	if session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}
	email = firstNonEmpty(email, session.CustomerEmail, session.Metadata["email"], session.Metadata["customer_email"])

	shipping := legacy.ShippingDetails
	if shipping == nil && session.CollectedInformation != nil && session.CollectedInformation.ShippingDetails != nil {
		collected := session.CollectedInformation.ShippingDetails
		shipping = &stripego.ShippingDetails{Address: collected.Address, Name: collected.Name}
	}

	order := model.PaidOrder{
		ObjectID: session.ID,
		Email:    email,
		Shipping: toAddress(shipping, email),
	}
	order.Items, order.ItemsErr = parseItemDetails(session.Metadata[itemDetailsKey])
	return order
}

func intentOrder(intent *stripego.PaymentIntent) model.PaidOrder {
	email := firstNonEmpty(intent.ReceiptEmail, intent.Metadata["email"], intent.Metadata["customer_email"])

	order := model.PaidOrder{
		ObjectID: intent.ID,
		Email:    email,
		Shipping: toAddress(intent.Shipping, email),
	}
	order.Items, order.ItemsErr = parseItemDetails(intent.Metadata[itemDetailsKey])
	return order
}

// parseItemDetails decodes the item_details metadata. A malformed value yields
// no items and a non-nil error for logging.
func parseItemDetails(raw string) ([]model.LineItem, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var items []model.LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode item_details: %w", err)
	}

	out := items[:0]
	for _, item := range items {
		item.ID = strings.TrimSpace(item.ID)
		item.Type = enums.ParseProductType(string(item.Type))
		if item.ID == "" {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// EncodeItemDetails renders checkout lines into the item_details metadata value.
func EncodeItemDetails(items []model.LineItem) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode item_details: %w", err)
	}
	return string(raw), nil
}

func toAddress(details *stripego.ShippingDetails, email string) *model.Address {
	if details == nil || details.Address == nil {
		return nil
	}
	a := details.Address
	return &model.Address{
		Name:        details.Name,
		Address1:    a.Line1,
		Address2:    a.Line2,
		City:        a.City,
		StateCode:   a.State,
		CountryCode: a.Country,
		Zip:         a.PostalCode,
		Phone:       details.Phone,
		Email:       email,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
