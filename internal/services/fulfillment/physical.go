package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
	"github.com/HyperSlump/shop-sub000/internal/domain/errs"
	"github.com/HyperSlump/shop-sub000/internal/domain/model"
)

const releaseTimeout = 2 * time.Second

// FulfillPhysical submits one draft order tagged with externalID. The order
// is created at most once per externalID: a live claim or an existing partner
// order both count as already fulfilled.
func (s *Service) FulfillPhysical(ctx context.Context, recipient model.Address, items []model.LineItem, externalID string) Result {
	result := Result{Kind: enums.FulfillmentKindPhysical}
	externalID = strings.TrimSpace(externalID)
	log := s.log.With(zap.String("external_id", externalID), zap.Int("items", len(items)))

	if externalID == "" {
		return s.physicalFailure(log, result, errs.Invalid("external id is required"))
	}
	if missing := recipient.MissingFields(); len(missing) > 0 {
		return s.physicalFailure(log, result, errs.Invalid("recipient missing %s", strings.Join(missing, ", ")))
	}
	orderItems := s.orderItems(log, items)
	if len(orderItems) == 0 {
		return s.physicalFailure(log, result, errs.Invalid("no physical items with a variant"))
	}
	if s.partner == nil {
		return s.physicalFailure(log, result, fmt.Errorf("physical fulfillment is not configured"))
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PartnerTimeout)
	defer cancel()

	claimed := false
	if s.claims != nil {
		ok, err := s.claims.Claim(ctx, externalID, s.cfg.DedupTTL)
		switch {
		case err != nil:
			log.Warn("order claim unavailable, relying on partner lookup", zap.Error(err))
		case !ok:
			log.Info("physical order already claimed")
			result.Outcome = OutcomeDuplicate
			return result
		default:
			claimed = true
		}
	}

	existing, found, err := s.partner.FindOrder(ctx, externalID)
	if err != nil {
		s.release(parent, log, externalID, claimed)
		return s.physicalFailure(log, result, fmt.Errorf("look up order: %w", err))
	}
	if found {
		log.Info("physical order already exists", zap.Int64("order_id", existing.ID))
		result.Outcome = OutcomeDuplicate
		result.OrderID = existing.ID
		return result
	}

	created, err := s.partner.CreateDraftOrder(ctx, model.FulfillmentOrder{
		ExternalID: externalID,
		Recipient:  recipient,
		Items:      orderItems,
	})
	if err != nil {
		s.release(parent, log, externalID, claimed)
		return s.physicalFailure(log, result, fmt.Errorf("create draft order: %w", err))
	}

	result.Outcome = OutcomeOK
	result.OrderID = created.ID
	log.Info("draft order created", zap.Int64("order_id", created.ID), zap.String("status", created.Status))
	return result
}

// orderItems prefers the store sync variant encoded in the item id and falls
// back to the catalog variant_id carried in metadata.
func (s *Service) orderItems(log *zap.Logger, items []model.LineItem) []model.OrderItem {
	out := make([]model.OrderItem, 0, len(items))
	for _, item := range items {
		var line model.OrderItem
		if _, syncVariantID, ok := model.ParsePhysicalID(item.ID); ok && syncVariantID > 0 {
			line.SyncVariantID = syncVariantID
		}
		if variantID, err := item.VariantID.Int64(); err == nil && variantID > 0 {
			line.VariantID = variantID
		}
		if line.SyncVariantID == 0 && line.VariantID == 0 {
			log.Warn("physical item without variant skipped", zap.String("id", item.ID))
			continue
		}
		line.Quantity = 1
		out = append(out, line)
	}
	return out
}

// release runs on its own deadline since the partner timeout may have fired.
func (s *Service) release(parent context.Context, log *zap.Logger, externalID string, claimed bool) {
	if !claimed {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), releaseTimeout)
	defer cancel()
	if err := s.claims.Release(ctx, externalID); err != nil {
		log.Warn("release order claim failed", zap.Error(err))
	}
}

func (s *Service) physicalFailure(log *zap.Logger, result Result, err error) Result {
	log.Error("physical fulfillment failed", zap.Error(err))
	result.Outcome = OutcomeFailed
	result.Err = &errs.FulfillmentError{Kind: enums.FulfillmentKindPhysical, Err: err}
	return result
}
