package stripe

import (
	"context"
	"fmt"
	"strings"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
	"github.com/HyperSlump/shop-sub000/internal/domain/model"
)

const itemDetailsKey = "item_details"

type ProcessorConfig struct {
	SuccessURL        string
	CancelURL         string
	ReturnURL         string
	ShippingCountries []string
}

// Processor creates payment intents and checkout sessions.
type Processor struct {
	api *client.API
	cfg ProcessorConfig
}

func NewProcessor(api *client.API, cfg ProcessorConfig) *Processor {
	return &Processor{api: api, cfg: cfg}
}

func (p *Processor) CreateCharge(ctx context.Context, req model.ChargeRequest) (model.CheckoutSession, error) {
	if p == nil || p.api == nil {
		return model.CheckoutSession{}, upstreamError("create charge", errNotConfigured)
	}

	switch req.Mode {
	case enums.CheckoutModeIntent:
		return p.createPaymentIntent(ctx, req)
	case enums.CheckoutModeEmbedded, enums.CheckoutModeHosted:
		return p.createCheckoutSession(ctx, req)
	default:
		return model.CheckoutSession{}, fmt.Errorf("unsupported checkout mode %q", req.Mode)
	}
}

func (p *Processor) createPaymentIntent(ctx context.Context, req model.ChargeRequest) (model.CheckoutSession, error) {
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(req.AmountMinor()),
		Currency: stripego.String(req.Currency),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(itemDetailsKey, req.ItemDetails)

	intent, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return model.CheckoutSession{}, upstreamError("create payment intent", err)
	}

	return model.CheckoutSession{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountMinor:  intent.Amount,
		Currency:     req.Currency,
	}, nil
}

func (p *Processor) createCheckoutSession(ctx context.Context, req model.ChargeRequest) (model.CheckoutSession, error) {
	lineItems := make([]*stripego.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, line := range req.Lines {
		productData := &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripego.String(line.Name),
		}
		if img := strings.TrimSpace(line.Image); img != "" {
			productData.Images = stripego.StringSlice([]string{img})
		}
		productData.AddMetadata("id", line.ID)
		productData.AddMetadata(model.MetaType, string(line.Type))

		lineItems = append(lineItems, &stripego.CheckoutSessionLineItemParams{
			Quantity: stripego.Int64(1),
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripego.String(req.Currency),
				UnitAmount:  stripego.Int64(line.AmountMinor),
				ProductData: productData,
			},
		})
	}

	params := &stripego.CheckoutSessionParams{
		Mode:      stripego.String(string(stripego.CheckoutSessionModePayment)),
		LineItems: lineItems,
	}
	params.Context = ctx
	params.AddMetadata(itemDetailsKey, req.ItemDetails)

	if req.Mode == enums.CheckoutModeEmbedded {
		params.UIMode = stripego.String(string(stripego.CheckoutSessionUIModeEmbedded))
		params.ReturnURL = stripego.String(p.cfg.ReturnURL)
	} else {
		params.SuccessURL = stripego.String(p.cfg.SuccessURL)
		params.CancelURL = stripego.String(p.cfg.CancelURL)
	}
	if req.CollectShipping && len(p.cfg.ShippingCountries) > 0 {
		params.ShippingAddressCollection = &stripego.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripego.StringSlice(p.cfg.ShippingCountries),
		}
	}

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return model.CheckoutSession{}, upstreamError("create checkout session", err)
	}

	out := model.CheckoutSession{
		ID:          session.ID,
		AmountMinor: session.AmountTotal,
		Currency:    req.Currency,
	}
	if req.Mode == enums.CheckoutModeHosted {
		out.URL = session.URL
	} else {
		out.ClientSecret = session.ClientSecret
	}
	if out.AmountMinor == 0 {
		out.AmountMinor = req.AmountMinor()
	}
	return out, nil
}
