package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
	"github.com/HyperSlump/shop-sub000/internal/domain/errs"
	"github.com/HyperSlump/shop-sub000/internal/domain/model"
	"github.com/HyperSlump/shop-sub000/internal/infra/kafka"
	"github.com/HyperSlump/shop-sub000/internal/services/fulfillment"
)

const (
	defaultBranchTimeout = 30 * time.Second
	alertTimeout         = 5 * time.Second
)

type Verifier interface {
	Verify(payload []byte, signature string) (model.PaymentEvent, error)
}

type Fulfiller interface {
	FulfillDigital(ctx context.Context, email, sessionID string, items []model.LineItem) fulfillment.Result
	FulfillPhysical(ctx context.Context, recipient model.Address, items []model.LineItem, externalID string) fulfillment.Result
}

type AlertPublisher interface {
	Publish(ctx context.Context, alert kafka.Alert) error
}

type Recorder interface {
	WebhookEvent(eventType, outcome string)
	Fulfillment(kind, outcome string)
}

type Dependencies struct {
	Verifier  Verifier
	Fulfiller Fulfiller
	Alerts    AlertPublisher
	Metrics   Recorder
	Logger    *zap.Logger
}

type Config struct {
	DigitalTimeout  time.Duration
	PhysicalTimeout time.Duration
}

// Outcome summarizes one verified delivery.
type Outcome struct {
	EventID   string
	EventType string
	Handled   bool
	Results   []fulfillment.Result
}

type Service struct {
	verifier  Verifier
	fulfiller Fulfiller
	alerts    AlertPublisher
	metrics   Recorder
	log       *zap.Logger
	cfg       Config
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.DigitalTimeout <= 0 {
		cfg.DigitalTimeout = defaultBranchTimeout
	}
	if cfg.PhysicalTimeout <= 0 {
		cfg.PhysicalTimeout = defaultBranchTimeout
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		verifier:  deps.Verifier,
		fulfiller: deps.Fulfiller,
		alerts:    deps.Alerts,
		metrics:   deps.Metrics,
		log:       log,
		cfg:       cfg,
	}
}

// Handle verifies a delivery and runs fulfillment for paid orders. The only
// error it returns is a verification failure; fulfillment problems are
// reported in the Outcome, logged and alerted.
func (s *Service) Handle(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	event, err := s.verifier.Verify(payload, signature)
	if err != nil {
		s.recordEvent("unknown", "rejected")
		s.log.Warn("webhook verification failed", zap.Error(err))
		return Outcome{}, err
	}

	out := Outcome{EventID: event.EventID(), EventType: event.EventType()}
	log := s.log.With(zap.String("event_id", out.EventID), zap.String("event_type", out.EventType))

	var order model.PaidOrder
	switch e := event.(type) {
	case model.SessionCompleted:
		order = e.PaidOrder
	case model.IntentSucceeded:
		order = e.PaidOrder
	default:
		s.recordEvent(out.EventType, "ignored")
		log.Debug("webhook event acknowledged without fulfillment")
		return out, nil
	}

	out.Handled = true
	s.recordEvent(out.EventType, "handled")
	if order.ItemsErr != nil {
		log.Warn("item_details could not be decoded, no items to fulfill", zap.String("object_id", order.ObjectID), zap.Error(order.ItemsErr))
	}

	// Fulfillment must finish even if the processor drops the connection.
	out.Results = s.dispatch(context.WithoutCancel(ctx), log, order)
	for _, res := range out.Results {
		s.report(ctx, log, out.EventID, order.ObjectID, res)
	}
	return out, nil
}

func (s *Service) dispatch(ctx context.Context, log *zap.Logger, order model.PaidOrder) []fulfillment.Result {
	type branch struct {
		kind    enums.FulfillmentKind
		timeout time.Duration
		run     func(context.Context) fulfillment.Result
	}

	var branches []branch
	if digital := order.ItemsOfType(enums.ProductTypeDigital); len(digital) > 0 {
		if order.Email == "" {
			log.Warn("digital items without customer email, skipping digital fulfillment", zap.String("object_id", order.ObjectID))
		} else {
			branches = append(branches, branch{
				kind:    enums.FulfillmentKindDigital,
				timeout: s.cfg.DigitalTimeout,
				run: func(ctx context.Context) fulfillment.Result {
					return s.fulfiller.FulfillDigital(ctx, order.Email, order.ObjectID, digital)
				},
			})
		}
	}
	if physical := order.ItemsOfType(enums.ProductTypePhysical); len(physical) > 0 {
		if order.Shipping == nil {
			log.Warn("physical items without shipping address, skipping physical fulfillment", zap.String("object_id", order.ObjectID))
		} else {
			recipient := *order.Shipping
			branches = append(branches, branch{
				kind:    enums.FulfillmentKindPhysical,
				timeout: s.cfg.PhysicalTimeout,
				run: func(ctx context.Context) fulfillment.Result {
					return s.fulfiller.FulfillPhysical(ctx, recipient, physical, order.ObjectID)
				},
			})
		}
	}

	results := make([]fulfillment.Result, len(branches))
	var wg sync.WaitGroup
	for i, b := range branches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("fulfillment branch panicked", zap.String("kind", string(b.kind)), zap.Any("panic", rec))
					results[i] = fulfillment.Result{
						Kind:    b.kind,
						Outcome: fulfillment.OutcomeFailed,
						Err:     &errs.FulfillmentError{Kind: b.kind, Err: fmt.Errorf("panic: %v", rec)},
					}
				}
			}()

			branchCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()
			results[i] = b.run(branchCtx)
			if results[i].Kind == "" {
				results[i].Kind = b.kind
			}
		}()
	}
	wg.Wait()

	return results
}

func (s *Service) report(ctx context.Context, log *zap.Logger, eventID, objectID string, res fulfillment.Result) {
	if s.metrics != nil {
		s.metrics.Fulfillment(string(res.Kind), res.Outcome)
	}
	if res.Err == nil {
		return
	}

	log.Error("fulfillment branch failed", zap.String("kind", string(res.Kind)), zap.String("object_id", objectID), zap.Error(res.Err))
	if s.alerts == nil {
		return
	}

	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()
	err := s.alerts.Publish(alertCtx, kafka.Alert{
		Kind:     res.Kind,
		EventID:  eventID,
		ObjectID: objectID,
		Error:    res.Err.Error(),
	})
	if err != nil {
		log.Warn("publish fulfillment alert failed", zap.Error(err))
	}
}

func (s *Service) recordEvent(eventType, outcome string) {
	if s.metrics != nil {
		s.metrics.WebhookEvent(eventType, outcome)
	}
}
