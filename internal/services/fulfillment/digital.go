package fulfillment

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
	"github.com/HyperSlump/shop-sub000/internal/domain/errs"
	"github.com/HyperSlump/shop-sub000/internal/domain/model"
	"github.com/HyperSlump/shop-sub000/internal/infra/email"
)

// FulfillDigital records the purchase and sends the access email. A
// redelivered event whose items are all recorded already sends nothing.
func (s *Service) FulfillDigital(ctx context.Context, customerEmail, sessionID string, items []model.LineItem) Result {
	result := Result{Kind: enums.FulfillmentKindDigital}
	log := s.log.With(zap.String("session_id", sessionID), zap.Int("items", len(items)))

	customerEmail = strings.TrimSpace(customerEmail)
	sessionID = strings.TrimSpace(sessionID)
	purchases := make([]model.Purchase, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		purchases = append(purchases, model.Purchase{
			CustomerEmail:   customerEmail,
			StripeSessionID: sessionID,
			PriceID:         id,
			IsVerified:      true,
		})
	}
	if customerEmail == "" || sessionID == "" || len(purchases) == 0 {
		return s.digitalFailure(log, result, errs.Invalid("digital fulfillment needs email, session and items"))
	}
	if s.ledger == nil || s.mailer == nil {
		return s.digitalFailure(log, result, fmt.Errorf("digital fulfillment is not configured"))
	}

	ledgerCtx, cancel := context.WithTimeout(ctx, s.cfg.LedgerTimeout)
	inserted, err := s.ledger.RecordBatch(ledgerCtx, purchases)
	cancel()
	if err != nil {
		return s.digitalFailure(log, result, fmt.Errorf("record purchases: %w", err))
	}
	result.Recorded = len(inserted)
	if len(inserted) == 0 {
		log.Info("digital purchase already recorded, access email skipped")
		result.Outcome = OutcomeDuplicate
		return result
	}

	// Download links and catalog lookups share the email timeout.
	emailCtx, cancel := context.WithTimeout(ctx, s.cfg.EmailTimeout)
	defer cancel()

	msg, err := email.RenderAccess(customerEmail, email.AccessEmail{
		Items:      s.accessItems(emailCtx, log, items),
		SuccessURL: s.successURL(sessionID),
	})
	if err != nil {
		return s.digitalFailure(log, result, err)
	}
	msg.IdempotencyKey = "access/" + sessionID
	msg.Tags = map[string]string{"kind": "access"}

	id, err := s.mailer.Send(emailCtx, msg)
	if err != nil {
		return s.digitalFailure(log, result, fmt.Errorf("send access email: %w", err))
	}

	result.Outcome = OutcomeOK
	result.EmailID = id
	log.Info("digital fulfillment completed", zap.Int("recorded", result.Recorded), zap.String("email_id", id))
	return result
}

func (s *Service) accessItems(ctx context.Context, log *zap.Logger, items []model.LineItem) []email.AccessItem {
	unique := make([]model.LineItem, 0, len(items))
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ID)
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		item.ID = id
		unique = append(unique, item)
		ids = append(ids, id)
	}

	var resolved map[string]model.Product
	if s.catalog != nil {
		var err error
		resolved, err = s.catalog.ResolveAll(ctx, ids)
		if err != nil {
			log.Warn("catalog lookup for downloads failed", zap.Error(err))
		}
	}

	out := make([]email.AccessItem, 0, len(unique))
	for _, item := range unique {
		entry := email.AccessItem{Name: strings.TrimSpace(item.Name)}
		if product, ok := resolved[item.ID]; ok {
			if entry.Name == "" {
				entry.Name = product.Name
			}
			entry.DownloadURL = s.downloadURL(ctx, log, product.Metadata[model.MetaFileKey])
		}
		if entry.Name == "" {
			entry.Name = item.ID
		}
		out = append(out, entry)
	}
	return out
}

func (s *Service) downloadURL(ctx context.Context, log *zap.Logger, fileKey string) string {
	fileKey = strings.TrimSpace(fileKey)
	if fileKey == "" || s.links == nil {
		return ""
	}
	link, err := s.links.PresignGet(ctx, fileKey, s.cfg.DownloadTTL)
	if err != nil {
		log.Warn("presign download failed", zap.String("file_key", fileKey), zap.Error(err))
		return ""
	}
	return link
}

func (s *Service) successURL(sessionID string) string {
	return s.cfg.SiteURL + "/success?session_id=" + url.QueryEscape(sessionID)
}

func (s *Service) digitalFailure(log *zap.Logger, result Result, err error) Result {
	log.Error("digital fulfillment failed", zap.Error(err))
	result.Outcome = OutcomeFailed
	result.Err = &errs.FulfillmentError{Kind: enums.FulfillmentKindDigital, Err: err}
	return result
}
