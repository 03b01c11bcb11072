package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/coursepay/internal/models"
	repo "github.com/baharkarakas/coursepay/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page is a limit/offset window; zero Limit means the default size.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type RevenueReport struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Total        decimal.Decimal `json:"total"`
	Transactions int             `json:"transactions"`
}

// TransactionService answers ledger queries; it never mutates.
type TransactionService struct {
	store repo.Store
}

func NewTransactionService(store repo.Store) *TransactionService {
	return &TransactionService{store: store}
}

func (s *TransactionService) ListByBuyer(ctx context.Context, buyerID string, p Page) ([]models.Transaction, error) {
	p = p.normalize()
	return s.store.Repos().Transactions.ListByBuyer(ctx, buyerID, p.Limit, p.Offset)
}

// Get returns one transaction if the actor bought it or is an admin.
func (s *TransactionService) Get(ctx context.Context, actor Actor, id string) (models.Transaction, error) {
	t, err := s.store.Repos().Transactions.GetByID(ctx, id)
	if err != nil {
		return models.Transaction{}, notFound(err, "transaction "+id)
	}
	if !actor.canSee(t.BuyerID) {
		return models.Transaction{}, ErrForbidden
	}
	return t, nil
}

// ListAll pages through every transaction, newest first. Admin only.
func (s *TransactionService) ListAll(ctx context.Context, p Page) ([]models.Transaction, error) {
	p = p.normalize()
	return s.store.Repos().Transactions.List(ctx, p.Limit, p.Offset)
}

func (s *TransactionService) ListByCourse(ctx context.Context, courseID string, p Page) ([]models.Transaction, error) {
	r := s.store.Repos()
	if _, err := r.Catalog.GetCourse(ctx, courseID); err != nil {
		return nil, notFound(err, "course "+courseID)
	}
	p = p.normalize()
	return r.Transactions.ListByCourse(ctx, courseID, p.Limit, p.Offset)
}

// Revenue sums successful transactions created in [from, to).
func (s *TransactionService) Revenue(ctx context.Context, from, to time.Time) (RevenueReport, error) {
	if !from.Before(to) {
		return RevenueReport{}, validationf("from must be before to")
	}
	total, n, err := s.store.Repos().Transactions.Revenue(ctx, from, to)
	if err != nil {
		return RevenueReport{}, err
	}
	return RevenueReport{From: from, To: to, Total: total, Transactions: n}, nil
}
