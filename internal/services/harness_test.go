package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/coursepay/internal/config"
	"github.com/baharkarakas/coursepay/internal/gateway"
	"github.com/baharkarakas/coursepay/internal/logger"
	"github.com/baharkarakas/coursepay/internal/models"
	"github.com/baharkarakas/coursepay/internal/notify"
	repo "github.com/baharkarakas/coursepay/internal/repository"
	"github.com/baharkarakas/coursepay/internal/repository/memory"
	"github.com/baharkarakas/coursepay/internal/worker"
)

const testSecret = "TESTSECRET"

var testGatewayConfig = config.VNPay{
	URL:        "https://sandbox.example/pay",
	ReturnURL:  "http://localhost:3000/payment/vnpay-return",
	TmnCode:    "TMN01",
	HashSecret: testSecret,
}

// seqIDs hands out scripted correlation codes first, then sequential ones.
type seqIDs struct {
	mu       sync.Mutex
	scripted []string
	n        int
}

func (g *seqIDs) CorrelationCode() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.scripted) > 0 {
		c := g.scripted[0]
		g.scripted = g.scripted[1:]
		return c
	}
	g.n++
	return fmt.Sprintf("TXN_%d", g.n)
}

func (g *seqIDs) CertificateNumber() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("CERT-%d", g.n)
}

type recordingNotifier struct {
	mu         sync.Mutex
	purchases  []notify.PurchaseEvent
	completion []notify.CompletionEvent
}

func (n *recordingNotifier) CoursePurchased(_ context.Context, ev notify.PurchaseEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.purchases = append(n.purchases, ev)
	return nil
}

func (n *recordingNotifier) EnrollmentCompleted(_ context.Context, ev notify.CompletionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completion = append(n.completion, ev)
	return nil
}

func (n *recordingNotifier) counts() (purchases, completions int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.purchases), len(n.completion)
}

// countingStore counts cart clears and can make them fail.
type countingStore struct {
	repo.Store
	clears    atomic.Int32
	clearFail bool
}

type countingCarts struct {
	repo.Carts
	s *countingStore
}

func (c countingCarts) Clear(ctx context.Context, cartID string) error {
	c.s.clears.Add(1)
	if c.s.clearFail {
		return errors.New("cart service unavailable")
	}
	return c.Carts.Clear(ctx, cartID)
}

func (s *countingStore) Repos() repo.Repositories {
	r := s.Store.Repos()
	r.Carts = countingCarts{Carts: r.Carts, s: s}
	return r
}

type harness struct {
	mem       *memory.Store
	store     *countingStore
	ids       *seqIDs
	notifier  *recordingNotifier
	gw        *gateway.VNPay
	checkout  *CheckoutService
	callbacks *CallbackProcessor
	enroll    *EnrollmentEngine
	certs     *CertificateTrigger
	txns      *TransactionService
	teardown  *CourseTeardown
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.Discard()
	h := &harness{
		mem:      memory.NewStore(),
		ids:      &seqIDs{},
		notifier: &recordingNotifier{},
		gw:       gateway.NewVNPay(testGatewayConfig),
	}
	h.store = &countingStore{Store: h.mem}
	h.certs = NewCertificateTrigger(h.store, h.ids, h.notifier, log)
	h.enroll = NewEnrollmentEngine(h.store, h.certs, h.notifier, worker.Inline{Log: log}, log)
	h.checkout = NewCheckoutService(h.store, h.ids, h.gw, log)
	h.callbacks = NewCallbackProcessor(h.store, h.gw, h.enroll, log)
	h.txns = NewTransactionService(h.store)
	h.teardown = NewCourseTeardown(h.store, log)
	return h
}

func (h *harness) buyer() models.User {
	return h.mem.AddUser(models.User{Email: "buyer@example.com"})
}

func (h *harness) course(title string, price int64, lessons int) (models.Course, []models.Lesson) {
	owner := h.mem.AddUser(models.User{Email: "owner@example.com", Role: "instructor"})
	return h.mem.AddCourse(title, decimal.NewFromInt(price), &owner.ID, lessons)
}

// notification builds a correctly signed gateway notification.
func notification(code string, amount decimal.Decimal, responseCode string) map[string]string {
	p := map[string]string{
		gateway.ParamTxnRef:        code,
		gateway.ParamAmount:        gateway.MinorUnits(amount),
		gateway.ParamResponseCode:  responseCode,
		gateway.ParamTransactionNo: "14012345",
		"vnp_TmnCode":              "TMN01",
	}
	p[gateway.ParamSecureHash] = gateway.Sign(testSecret, gateway.Canonical(p))
	return p
}

func (h *harness) rows(t *testing.T, code string) []models.Transaction {
	t.Helper()
	rows, err := h.mem.Repos().Transactions.LockByCode(context.Background(), code)
	require.NoError(t, err)
	return rows
}

func (h *harness) enrollments(t *testing.T, buyerID string) []models.Enrollment {
	t.Helper()
	out, err := h.mem.Repos().Enrollments.ListByBuyer(context.Background(), buyerID)
	require.NoError(t, err)
	return out
}
