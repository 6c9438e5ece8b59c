package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
	"github.com/HyperSlump/shop-sub000/internal/domain/model"
	stripeinfra "github.com/HyperSlump/shop-sub000/internal/infra/stripe"
	"github.com/HyperSlump/shop-sub000/internal/services/fulfillment"
	webhooksvc "github.com/HyperSlump/shop-sub000/internal/services/webhook"
)

const webhookSecret = "whsec_handler_test"

type fulfillerStub struct {
	mu       sync.Mutex
	digital  []string
	physical []string
}

func (f *fulfillerStub) FulfillDigital(_ context.Context, email, sessionID string, _ []model.LineItem) fulfillment.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.digital = append(f.digital, email+"|"+sessionID)
	return fulfillment.Result{Kind: enums.FulfillmentKindDigital, Outcome: fulfillment.OutcomeOK}
}

func (f *fulfillerStub) FulfillPhysical(_ context.Context, _ model.Address, _ []model.LineItem, externalID string) fulfillment.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.physical = append(f.physical, externalID)
	return fulfillment.Result{Kind: enums.FulfillmentKindPhysical, Outcome: fulfillment.OutcomeOK}
}

func newWebhookHandler(fulfiller *fulfillerStub, maxBody int64) *WebhookHandler {
	svc := webhooksvc.NewService(webhooksvc.Dependencies{
		Verifier:  stripeinfra.NewVerifier(webhookSecret),
		Fulfiller: fulfiller,
	}, webhooksvc.Config{})
	return NewWebhookHandler(svc, maxBody)
}

func signedRequest(payload string) *http.Request {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  webhookSecret,
	})
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

const completedSession = `{
  "id": "evt_h1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": "cs_h1",
    "object": "checkout.session",
    "customer_details": {"email": "fan@example.com"},
    "shipping_details": {"name": "Fan", "address": {"line1": "1 Main St", "city": "Austin", "country": "US"}},
    "metadata": {"item_details": "[{\"id\":\"price_1\",\"name\":\"Pack\",\"type\":\"DIGITAL\"},{\"id\":\"pf_1_2\",\"name\":\"Tee\",\"type\":\"PHYSICAL\",\"variant_id\":4011}]"}
  }}
}`

func TestWebhookDispatchesVerifiedSession(t *testing.T) {
	fulfiller := &fulfillerStub{}
	h := newWebhookHandler(fulfiller, 0)

	rr := httptest.NewRecorder()
	h.Handle(rr, signedRequest(completedSession))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body=%s", rr.Code, rr.Body.String())
	}
	if len(fulfiller.digital) != 1 || fulfiller.digital[0] != "fan@example.com|cs_h1" {
		t.Fatalf("unexpected digital dispatch: %v", fulfiller.digital)
	}
	if len(fulfiller.physical) != 1 || fulfiller.physical[0] != "cs_h1" {
		t.Fatalf("unexpected physical dispatch: %v", fulfiller.physical)
	}
}

func TestWebhookAcknowledgesUndecodableItemDetails(t *testing.T) {
	fulfiller := &fulfillerStub{}
	h := newWebhookHandler(fulfiller, 0)

	payload := `{
  "id": "evt_h3",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": "cs_h3",
    "object": "checkout.session",
    "customer_details": {"email": "fan@example.com"},
    "metadata": {"item_details": "[{not json"}
  }}
}`
	rr := httptest.NewRecorder()
	h.Handle(rr, signedRequest(payload))

	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"received":true`) {
		t.Fatalf("unexpected response: %d %s", rr.Code, rr.Body.String())
	}
	if len(fulfiller.digital)+len(fulfiller.physical) != 0 {
		t.Fatalf("undecodable item_details must not run fulfillment: digital=%v physical=%v", fulfiller.digital, fulfiller.physical)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	fulfiller := &fulfillerStub{}
	h := newWebhookHandler(fulfiller, 0)

	req := signedRequest(completedSession)
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rr := httptest.NewRecorder()
	h.Handle(rr, req)

	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "INVALID_SIGNATURE") {
		t.Fatalf("unexpected response: %d %s", rr.Code, rr.Body.String())
	}
	if len(fulfiller.digital)+len(fulfiller.physical) != 0 {
		t.Fatalf("no handler may run for an unverified delivery")
	}
}

func TestWebhookAcknowledgesUnhandledType(t *testing.T) {
	fulfiller := &fulfillerStub{}
	h := newWebhookHandler(fulfiller, 0)

	rr := httptest.NewRecorder()
	h.Handle(rr, signedRequest(`{"id":"evt_h2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}
	if len(fulfiller.digital)+len(fulfiller.physical) != 0 {
		t.Fatalf("unhandled event types must not run fulfillment")
	}
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	fulfiller := &fulfillerStub{}
	h := newWebhookHandler(fulfiller, 64)

	rr := httptest.NewRecorder()
	h.Handle(rr, signedRequest(completedSession))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
	if len(fulfiller.digital) != 0 {
		t.Fatalf("oversized body must not be processed")
	}
}
