package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/coursepay/internal/models"
)

type transactionsRepo struct{ q querier }

const txnColumns = `id, buyer_id, course_id, amount, gateway, status, correlation_code, created_at, updated_at`

func scanTxn(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.BuyerID, &t.CourseID, &t.Amount, &t.Gateway, &t.Status, &t.CorrelationCode, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func collectTxns(rows pgx.Rows, err error) ([]models.Transaction, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) CreateBatch(ctx context.Context, txns []models.Transaction) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		created, err := scanTxn(r.q.QueryRow(ctx, `
INSERT INTO transactions (id, buyer_id, course_id, amount, gateway, status, correlation_code)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING `+txnColumns,
			t.ID, t.BuyerID, t.CourseID, t.Amount, t.Gateway, t.Status, t.CorrelationCode,
		))
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	t, err := scanTxn(r.q.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id=$1`, id))
	return t, notFound(err)
}

func (r *transactionsRepo) LockByCode(ctx context.Context, code string) ([]models.Transaction, error) {
	return collectTxns(r.q.Query(ctx, `
SELECT `+txnColumns+`
  FROM transactions
 WHERE correlation_code=$1
 ORDER BY id
   FOR UPDATE`, code))
}

func (r *transactionsRepo) SettlePending(ctx context.Context, code string, status models.TransactionStatus) ([]models.Transaction, error) {
	return collectTxns(r.q.Query(ctx, `
UPDATE transactions
   SET status=$2, updated_at=now()
 WHERE correlation_code=$1 AND status='PENDING'
RETURNING `+txnColumns, code, status))
}

func (r *transactionsRepo) List(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	return collectTxns(r.q.Query(ctx, `
SELECT `+txnColumns+`
  FROM transactions
 ORDER BY created_at DESC, id
 LIMIT $1 OFFSET $2`, limit, offset))
}

func (r *transactionsRepo) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]models.Transaction, error) {
	return collectTxns(r.q.Query(ctx, `
SELECT `+txnColumns+`
  FROM transactions
 WHERE buyer_id=$1
 ORDER BY created_at DESC, id
 LIMIT $2 OFFSET $3`, buyerID, limit, offset))
}

func (r *transactionsRepo) ListByCourse(ctx context.Context, courseID string, limit, offset int) ([]models.Transaction, error) {
	return collectTxns(r.q.Query(ctx, `
SELECT `+txnColumns+`
  FROM transactions
 WHERE course_id=$1
 ORDER BY created_at DESC, id
 LIMIT $2 OFFSET $3`, courseID, limit, offset))
}

func (r *transactionsRepo) Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, int, error) {
	var (
		total decimal.Decimal
		count int
	)
	err := r.q.QueryRow(ctx, `
SELECT COALESCE(SUM(amount), 0), COUNT(*)
  FROM transactions
 WHERE status='SUCCESS' AND created_at >= $1 AND created_at < $2`, from, to,
	).Scan(&total, &count)
	return total, count, err
}

func (r *transactionsRepo) DeleteByCourse(ctx context.Context, courseID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM transactions WHERE course_id=$1`, courseID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
