package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HyperSlump/shop-sub000/internal/domain/model"
)

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

// RecordBatch writes every purchase in one transaction and returns the price
// ids that were newly recorded. Rows already present for the same session and
// price are left untouched, so a redelivered event returns an empty slice.
func (r *PurchaseRepo) RecordBatch(ctx context.Context, purchases []model.Purchase) ([]string, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(purchases) == 0 {
		return nil, nil
	}
	for _, p := range purchases {
		if strings.TrimSpace(p.CustomerEmail) == "" || strings.TrimSpace(p.StripeSessionID) == "" || strings.TrimSpace(p.PriceID) == "" {
			return nil, fmt.Errorf("invalid purchase record payload")
		}
	}

	inserted := make([]string, 0, len(purchases))
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		for _, p := range purchases {
			var priceID string
			err := tx.QueryRow(ctx, `
INSERT INTO purchases (
	customer_email,
	stripe_session_id,
	price_id,
	is_verified,
	created_at
) VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (stripe_session_id, price_id) DO NOTHING
RETURNING price_id
`, strings.TrimSpace(p.CustomerEmail), strings.TrimSpace(p.StripeSessionID), strings.TrimSpace(p.PriceID), p.IsVerified).Scan(&priceID)
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("insert purchase: %w", err)
			}
			inserted = append(inserted, priceID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return inserted, nil
}

func (r *PurchaseRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Purchase, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, customer_email, stripe_session_id, price_id, is_verified, created_at
FROM purchases
WHERE stripe_session_id = $1
ORDER BY id ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list purchases by session: %w", err)
	}
	defer rows.Close()

	items := make([]model.Purchase, 0)
	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(&p.ID, &p.CustomerEmail, &p.StripeSessionID, &p.PriceID, &p.IsVerified, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}

	return items, nil
}
