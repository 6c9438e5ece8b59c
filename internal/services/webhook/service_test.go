package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
	"github.com/HyperSlump/shop-sub000/internal/domain/errs"
	"github.com/HyperSlump/shop-sub000/internal/domain/model"
	"github.com/HyperSlump/shop-sub000/internal/infra/kafka"
	"github.com/HyperSlump/shop-sub000/internal/services/fulfillment"
)

type verifierStub struct {
	event model.PaymentEvent
	err   error
}

func (v verifierStub) Verify([]byte, string) (model.PaymentEvent, error) {
	return v.event, v.err
}

type fulfillerStub struct {
	mu          sync.Mutex
	digital     [][]model.LineItem
	physical    [][]model.LineItem
	emails      []string
	externalIDs []string
	digitalRes  fulfillment.Result
	physicalRes fulfillment.Result
	panicOn     enums.FulfillmentKind
	deadlines   map[enums.FulfillmentKind]bool
}

func newFulfillerStub() *fulfillerStub {
	return &fulfillerStub{
		digitalRes:  fulfillment.Result{Kind: enums.FulfillmentKindDigital, Outcome: fulfillment.OutcomeOK},
		physicalRes: fulfillment.Result{Kind: enums.FulfillmentKindPhysical, Outcome: fulfillment.OutcomeOK},
		deadlines:   map[enums.FulfillmentKind]bool{},
	}
}

func (f *fulfillerStub) FulfillDigital(ctx context.Context, email, sessionID string, items []model.LineItem) fulfillment.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn == enums.FulfillmentKindDigital {
		panic("boom")
	}
	_, f.deadlines[enums.FulfillmentKindDigital] = ctx.Deadline()
	if ctx.Err() != nil {
		return fulfillment.Result{Kind: enums.FulfillmentKindDigital, Outcome: fulfillment.OutcomeFailed, Err: ctx.Err()}
	}
	f.digital = append(f.digital, items)
	f.emails = append(f.emails, email+"|"+sessionID)
	return f.digitalRes
}

func (f *fulfillerStub) FulfillPhysical(ctx context.Context, _ model.Address, items []model.LineItem, externalID string) fulfillment.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn == enums.FulfillmentKindPhysical {
		panic("boom")
	}
	_, f.deadlines[enums.FulfillmentKindPhysical] = ctx.Deadline()
	f.physical = append(f.physical, items)
	f.externalIDs = append(f.externalIDs, externalID)
	return f.physicalRes
}

type alertsStub struct {
	mu     sync.Mutex
	alerts []kafka.Alert
}

func (a *alertsStub) Publish(_ context.Context, alert kafka.Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return nil
}

type recorderStub struct {
	mu     sync.Mutex
	events []string
	kinds  []string
}

func (r *recorderStub) WebhookEvent(eventType, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType+":"+outcome)
}

func (r *recorderStub) Fulfillment(kind, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind+":"+outcome)
}

var (
	digitalItem  = model.LineItem{ID: "price_a", Name: "Drum Pack", Type: enums.ProductTypeDigital}
	physicalItem = model.LineItem{ID: "pf_10_100", Name: "Tee", Type: enums.ProductTypePhysical, VariantID: json.Number("4011")}
	address      = &model.Address{Name: "Ann", Address1: "1 Main St", City: "Austin", CountryCode: "US"}
)

func session(order model.PaidOrder) model.SessionCompleted {
	order.ObjectID = "cs_1"
	return model.SessionCompleted{ID: "evt_1", PaidOrder: order}
}

func newService(event model.PaymentEvent, verifyErr error, f *fulfillerStub) (*Service, *alertsStub, *recorderStub) {
	alerts := &alertsStub{}
	rec := &recorderStub{}
	svc := NewService(Dependencies{
		Verifier:  verifierStub{event: event, err: verifyErr},
		Fulfiller: f,
		Alerts:    alerts,
		Metrics:   rec,
	}, Config{DigitalTimeout: time.Second, PhysicalTimeout: time.Second})
	return svc, alerts, rec
}

// Scenario A: digital-only session with an email.
func TestHandleDigitalOnly(t *testing.T) {
	f := newFulfillerStub()
	svc, alerts, rec := newService(session(model.PaidOrder{Email: "a@b.com", Items: []model.LineItem{digitalItem}}), nil, f)

	out, err := svc.Handle(context.Background(), []byte("{}"), "sig")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !out.Handled || len(out.Results) != 1 || out.Results[0].Kind != enums.FulfillmentKindDigital {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(f.digital) != 1 || len(f.physical) != 0 || f.emails[0] != "a@b.com|cs_1" {
		t.Fatalf("unexpected dispatch: digital=%v physical=%v", f.digital, f.physical)
	}
	if !f.deadlines[enums.FulfillmentKindDigital] {
		t.Fatalf("digital branch must run with a deadline")
	}
	if len(alerts.alerts) != 0 || rec.kinds[0] != "digital:ok" || rec.events[0] != "checkout.session.completed:handled" {
		t.Fatalf("unexpected reporting: alerts=%v kinds=%v events=%v", alerts.alerts, rec.kinds, rec.events)
	}
}

// Scenario B: mixed cart where the physical branch fails; digital still runs.
func TestHandleMixedCartIsolatesFailures(t *testing.T) {
	f := newFulfillerStub()
	f.physicalRes = fulfillment.Result{
		Kind:    enums.FulfillmentKindPhysical,
		Outcome: fulfillment.OutcomeFailed,
		Err:     &errs.FulfillmentError{Kind: enums.FulfillmentKindPhysical, Err: errors.New("printful down")},
	}
	svc, alerts, rec := newService(session(model.PaidOrder{
		Email:    "a@b.com",
		Shipping: address,
		Items:    []model.LineItem{digitalItem, physicalItem},
	}), nil, f)

	out, err := svc.Handle(context.Background(), []byte("{}"), "sig")
	if err != nil {
		t.Fatalf("fulfillment failures must not surface: %v", err)
	}
	if len(out.Results) != 2 || len(f.digital) != 1 || len(f.physical) != 1 || f.externalIDs[0] != "cs_1" {
		t.Fatalf("both branches must run: %+v", out)
	}
	if len(alerts.alerts) != 1 || alerts.alerts[0].Kind != enums.FulfillmentKindPhysical || alerts.alerts[0].ObjectID != "cs_1" || alerts.alerts[0].EventID != "evt_1" {
		t.Fatalf("expected one physical alert, got %+v", alerts.alerts)
	}
	if len(rec.kinds) != 2 {
		t.Fatalf("expected two fulfillment metrics, got %v", rec.kinds)
	}
}

// Scenario C: verification failure reaches no handler.
func TestHandleRejectsUnverified(t *testing.T) {
	f := newFulfillerStub()
	verifyErr := errors.Join(errs.ErrVerification, errors.New("signature mismatch"))
	svc, _, rec := newService(nil, verifyErr, f)

	if _, err := svc.Handle(context.Background(), []byte("{}"), "bad"); !errors.Is(err, errs.ErrVerification) {
		t.Fatalf("expected ErrVerification, got %v", err)
	}
	if len(f.digital)+len(f.physical) != 0 {
		t.Fatalf("no handler may run for an unverified event")
	}
	if rec.events[0] != "unknown:rejected" {
		t.Fatalf("unexpected metrics: %v", rec.events)
	}
}

// Scenario D: unhandled types are acknowledged without fulfillment.
func TestHandleIgnoresOtherTypes(t *testing.T) {
	f := newFulfillerStub()
	svc, _, rec := newService(model.Ignored{ID: "evt_9", Type: "customer.created"}, nil, f)

	out, err := svc.Handle(context.Background(), []byte("{}"), "sig")
	if err != nil || out.Handled || out.EventType != "customer.created" {
		t.Fatalf("unexpected outcome: %+v err=%v", out, err)
	}
	if len(f.digital)+len(f.physical) != 0 || rec.events[0] != "customer.created:ignored" {
		t.Fatalf("ignored event must not dispatch")
	}
}

// Scenario E: physical items without shipping address skip the physical branch.
func TestHandlePhysicalWithoutShipping(t *testing.T) {
	f := newFulfillerStub()
	svc, alerts, _ := newService(model.IntentSucceeded{ID: "evt_2", PaidOrder: model.PaidOrder{
		ObjectID: "pi_1",
		Email:    "a@b.com",
		Items:    []model.LineItem{physicalItem},
	}}, nil, f)

	out, err := svc.Handle(context.Background(), []byte("{}"), "sig")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !out.Handled || len(out.Results) != 0 || len(f.physical) != 0 || len(alerts.alerts) != 0 {
		t.Fatalf("physical handler must not run: %+v", out)
	}
}

func TestHandleDigitalWithoutEmailSkipsDigital(t *testing.T) {
	f := newFulfillerStub()
	svc, _, _ := newService(session(model.PaidOrder{Shipping: address, Items: []model.LineItem{digitalItem, physicalItem}}), nil, f)

	out, _ := svc.Handle(context.Background(), []byte("{}"), "sig")
	if len(out.Results) != 1 || len(f.digital) != 0 || len(f.physical) != 1 {
		t.Fatalf("only the physical branch should run: %+v", out)
	}
}

func TestHandleRecoversBranchPanic(t *testing.T) {
	f := newFulfillerStub()
	f.panicOn = enums.FulfillmentKindDigital
	svc, alerts, _ := newService(session(model.PaidOrder{
		Email:    "a@b.com",
		Shipping: address,
		Items:    []model.LineItem{digitalItem, physicalItem},
	}), nil, f)

	out, err := svc.Handle(context.Background(), []byte("{}"), "sig")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(out.Results) != 2 || out.Results[0].Outcome != fulfillment.OutcomeFailed || out.Results[1].Outcome != fulfillment.OutcomeOK {
		t.Fatalf("panic must be isolated to its branch: %+v", out.Results)
	}
	var ferr *errs.FulfillmentError
	if !errors.As(out.Results[0].Err, &ferr) || ferr.Kind != enums.FulfillmentKindDigital {
		t.Fatalf("unexpected panic error: %v", out.Results[0].Err)
	}
	if len(alerts.alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerts.alerts))
	}
}

func TestHandleIgnoresClientCancellation(t *testing.T) {
	f := newFulfillerStub()
	svc, _, _ := newService(session(model.PaidOrder{Email: "a@b.com", Items: []model.LineItem{digitalItem}}), nil, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := svc.Handle(ctx, []byte("{}"), "sig")
	if err != nil || len(out.Results) != 1 || out.Results[0].Outcome != fulfillment.OutcomeOK {
		t.Fatalf("fulfillment must run detached from the caller: %+v err=%v", out, err)
	}
}
