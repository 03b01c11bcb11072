package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/coursepay/internal/gateway"
	"github.com/baharkarakas/coursepay/internal/idgen"
	"github.com/baharkarakas/coursepay/internal/metrics"
	"github.com/baharkarakas/coursepay/internal/models"
	repo "github.com/baharkarakas/coursepay/internal/repository"
)

// PaymentURLBuilder is the outbound half of the payment gateway.
type PaymentURLBuilder interface {
	CreatePaymentURL(req gateway.PaymentRequest) (string, error)
}

const (
	codeAttempts   = 3
	orderInfoTitle = 3
)

// PaymentOptions are the caller-tunable parts of a checkout; zero values mean defaults.
type PaymentOptions struct {
	Gateway   models.PaymentGateway
	ReturnURL string
	BankCode  string
}

type CheckoutResult struct {
	PaymentURL      string               `json:"paymentUrl"`
	TransactionCode string               `json:"transactionCode"`
	Amount          decimal.Decimal      `json:"amount"`
	CartID          *string              `json:"cartId,omitempty"`
	Transactions    []models.Transaction `json:"transactions"`
}

type CheckoutService struct {
	store repo.Store
	ids   idgen.Generator
	gw    PaymentURLBuilder
	log   *slog.Logger
}

func NewCheckoutService(store repo.Store, ids idgen.Generator, gw PaymentURLBuilder, log *slog.Logger) *CheckoutService {
	return &CheckoutService{store: store, ids: ids, gw: gw, log: log}
}

// PurchaseCourse starts a payment for a single course.
func (s *CheckoutService) PurchaseCourse(ctx context.Context, buyerID, courseID string, opts PaymentOptions) (CheckoutResult, error) {
	if strings.TrimSpace(courseID) == "" {
		return CheckoutResult{}, validationf("course id required")
	}
	res, err := s.BeginCheckout(ctx, buyerID, []string{courseID}, nil, opts)
	if err == nil {
		metrics.CheckoutsTotal.WithLabelValues("single").Inc()
	}
	return res, err
}

// CheckoutCart starts one payment covering every course in the buyer's cart.
// The cart is cleared only once the payment settles.
func (s *CheckoutService) CheckoutCart(ctx context.Context, buyerID string, opts PaymentOptions) (CheckoutResult, error) {
	cart, err := s.store.Repos().Carts.GetByUser(ctx, buyerID)
	if errors.Is(err, repo.ErrNotFound) {
		return CheckoutResult{}, ErrEmptyCart
	}
	if err != nil {
		return CheckoutResult{}, err
	}
	if len(cart.Items) == 0 {
		return CheckoutResult{}, ErrEmptyCart
	}

	courseIDs := make([]string, 0, len(cart.Items))
	for _, it := range cart.Items {
		courseIDs = append(courseIDs, it.CourseID)
	}
	cartID := cart.ID
	res, err := s.BeginCheckout(ctx, buyerID, courseIDs, &cartID, opts)
	if err == nil {
		metrics.CheckoutsTotal.WithLabelValues("cart").Inc()
	}
	return res, err
}

// BeginCheckout creates one PENDING transaction per course, all under a fresh
// correlation code, and returns the signed payment URL. Nothing is written when
// the buyer already owns any of the courses.
func (s *CheckoutService) BeginCheckout(ctx context.Context, buyerID string, courseIDs []string, cartID *string, opts PaymentOptions) (CheckoutResult, error) {
	if strings.TrimSpace(buyerID) == "" {
		return CheckoutResult{}, validationf("buyer id required")
	}
	courseIDs = dedupe(courseIDs)
	if len(courseIDs) == 0 {
		return CheckoutResult{}, validationf("at least one course required")
	}
	gw := opts.Gateway
	if gw == "" {
		gw = models.GatewayVNPay
	}
	if gw != models.GatewayVNPay {
		return CheckoutResult{}, validationf("payment gateway %s is not supported", gw)
	}

	for attempt := 1; ; attempt++ {
		code := s.ids.CorrelationCode()
		res, err := s.checkout(ctx, code, buyerID, courseIDs, cartID, gw, opts)
		if errors.Is(err, repo.ErrDuplicateCode) && attempt < codeAttempts {
			s.log.Warn("correlation code collision, retrying", "code", code, "attempt", attempt)
			continue
		}
		var owned *repo.CourseOwnedError
		if errors.As(err, &owned) {
			return CheckoutResult{}, fmt.Errorf("%w: %w", ErrAlreadyEnrolled, err)
		}
		if err != nil {
			return CheckoutResult{}, err
		}
		s.log.Info("checkout started", "code", code, "buyer", buyerID, "courses", len(courseIDs), "amount", res.Amount.String())
		return res, nil
	}
}

func (s *CheckoutService) checkout(ctx context.Context, code, buyerID string, courseIDs []string, cartID *string, gw models.PaymentGateway, opts PaymentOptions) (CheckoutResult, error) {
	var res CheckoutResult
	err := s.store.InTx(ctx, func(r repo.Repositories) error {
		if err := r.Locks.LockBuyer(ctx, buyerID); err != nil {
			return err
		}
		ok, err := r.Users.Exists(ctx, buyerID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: buyer %s", ErrNotFound, buyerID)
		}

		courses, err := r.Catalog.GetCourses(ctx, courseIDs)
		if err != nil {
			return err
		}
		if missing := missingCourse(courseIDs, courses); missing != "" {
			return fmt.Errorf("%w: course %s", ErrNotFound, missing)
		}

		owned, err := r.Enrollments.Owned(ctx, buyerID, courseIDs)
		if err != nil {
			return err
		}
		if len(owned) > 0 {
			return &repo.CourseOwnedError{CourseID: owned[0]}
		}

		items := make([]models.LineItem, 0, len(courses))
		total := decimal.Zero
		for _, c := range courses {
			if !c.Price.IsPositive() {
				return validationf("course %s has no payable price", c.ID)
			}
			items = append(items, models.LineItem{CourseID: c.ID, Title: c.Title, Price: c.Price})
			total = total.Add(c.Price)
		}

		if _, err := r.Checkouts.Create(ctx, models.Checkout{
			CorrelationCode: code,
			BuyerID:         buyerID,
			TotalAmount:     total,
			Gateway:         gw,
			CartID:          cartID,
		}); err != nil {
			return err
		}

		txns := make([]models.Transaction, 0, len(items))
		for _, it := range items {
			txns = append(txns, models.Transaction{
				BuyerID:         buyerID,
				CourseID:        it.CourseID,
				Amount:          it.Price,
				Gateway:         gw,
				Status:          models.TxnPending,
				CorrelationCode: code,
			})
		}
		created, err := r.Transactions.CreateBatch(ctx, txns)
		if err != nil {
			return err
		}

		// a URL failure rolls the rows back
		url, err := s.gw.CreatePaymentURL(gateway.PaymentRequest{
			CorrelationCode: code,
			Amount:          total,
			Description:     orderInfo(items, cartID != nil),
			ReturnURL:       opts.ReturnURL,
			BankCode:        opts.BankCode,
		})
		if err != nil {
			return fmt.Errorf("create payment url: %w", err)
		}

		res = CheckoutResult{
			PaymentURL:      url,
			TransactionCode: code,
			Amount:          total,
			CartID:          cartID,
			Transactions:    created,
		}
		return nil
	})
	return res, err
}

func orderInfo(items []models.LineItem, fromCart bool) string {
	if !fromCart && len(items) == 1 {
		return "Payment for course: " + items[0].Title
	}
	titles := make([]string, 0, orderInfoTitle)
	for i, it := range items {
		if i == orderInfoTitle {
			break
		}
		titles = append(titles, it.Title)
	}
	info := "Cart payment: " + strings.Join(titles, ", ")
	if extra := len(items) - orderInfoTitle; extra > 0 {
		info += fmt.Sprintf(" and %d more", extra)
	}
	return info
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingCourse(want []string, got []models.Course) string {
	found := make(map[string]struct{}, len(got))
	for _, c := range got {
		found[c.ID] = struct{}{}
	}
	for _, id := range want {
		if _, ok := found[id]; !ok {
			return id
		}
	}
	return ""
}
