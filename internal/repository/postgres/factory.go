package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/baharkarakas/coursepay/internal/repository"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every repo runs
// unchanged inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Repos() repo.Repositories {
	return newRepositories(s.pool)
}

func (s *Store) InTx(ctx context.Context, fn func(r repo.Repositories) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	}, func(tx pgx.Tx) error {
		return fn(newRepositories(tx))
	})
}

func newRepositories(q querier) repo.Repositories {
	return repo.Repositories{
		Transactions: &transactionsRepo{q},
		Checkouts:    &checkoutsRepo{q},
		Enrollments:  &enrollmentsRepo{q},
		Progress:     &progressRepo{q},
		Certificates: &certificatesRepo{q},
		Catalog:      &catalogRepo{q},
		Content:      &catalogRepo{q},
		Users:        &usersRepo{q},
		Carts:        &cartsRepo{q},
		Locks:        &locksRepo{q},
	}
}

type locksRepo struct{ q querier }

func (r *locksRepo) LockBuyer(ctx context.Context, buyerID string) error {
	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "checkout:"+buyerID)
	return err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
