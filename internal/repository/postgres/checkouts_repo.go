package postgres

import (
	"context"

	"github.com/baharkarakas/coursepay/internal/models"
	repo "github.com/baharkarakas/coursepay/internal/repository"
)

type checkoutsRepo struct{ q querier }

func (r *checkoutsRepo) Create(ctx context.Context, c models.Checkout) (models.Checkout, error) {
	err := r.q.QueryRow(ctx, `
INSERT INTO checkouts (correlation_code, buyer_id, total_amount, gateway, cart_id)
VALUES ($1,$2,$3,$4,$5)
RETURNING created_at`,
		c.CorrelationCode, c.BuyerID, c.TotalAmount, c.Gateway, c.CartID,
	).Scan(&c.CreatedAt)
	if isUniqueViolation(err, "checkouts_pkey") {
		return models.Checkout{}, repo.ErrDuplicateCode
	}
	return c, err
}

func (r *checkoutsRepo) Get(ctx context.Context, code string) (models.Checkout, error) {
	var c models.Checkout
	err := r.q.QueryRow(ctx, `
SELECT correlation_code, buyer_id, total_amount, gateway, cart_id, created_at
  FROM checkouts
 WHERE correlation_code=$1`, code,
	).Scan(&c.CorrelationCode, &c.BuyerID, &c.TotalAmount, &c.Gateway, &c.CartID, &c.CreatedAt)
	return c, notFound(err)
}

func (r *checkoutsRepo) DeleteEmpty(ctx context.Context) (int64, error) {
	tag, err := r.q.Exec(ctx, `
DELETE FROM checkouts c
 WHERE NOT EXISTS (SELECT 1 FROM transactions t WHERE t.correlation_code = c.correlation_code)`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
