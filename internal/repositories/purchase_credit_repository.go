package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	intconfig "rentcore/internal/config"
	"rentcore/internal/domain"
	"rentcore/internal/domain/models"
)

type PurchaseCreditRepository struct {
	DB *sql.DB
}

func (r PurchaseCreditRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// LatestUnredeemed returns the newest unredeemed credit of one of kinds for the owner.
func (r PurchaseCreditRepository) LatestUnredeemed(ctx context.Context, ownerID int64, kinds []string) (models.PurchaseCredit, error) {
	if ownerID <= 0 || len(kinds) == 0 {
		return models.PurchaseCredit{}, domain.NotFoundError{Resource: "purchase credit"}
	}

	args := []any{ownerID}
	for _, k := range kinds {
		args = append(args, k)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(kinds)), ",")

	query := `
		SELECT id, owner_id, kind, is_redeemed, COALESCE(payment_intent_id, ''), created_at
		FROM purchase_credits
		WHERE owner_id = ? AND is_redeemed = 0 AND kind IN (` + placeholders + `)
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var c models.PurchaseCredit
	err := r.db().QueryRowContext(ctx, query, args...).Scan(
		&c.ID, &c.OwnerID, &c.Kind, &c.IsRedeemed, &c.PaymentIntentID, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PurchaseCredit{}, domain.NotFoundError{Resource: "purchase credit", Err: err}
	}
	if err != nil {
		return models.PurchaseCredit{}, fmt.Errorf("select purchase credit: %w", err)
	}
	return c, nil
}
