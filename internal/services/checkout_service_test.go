package services

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/coursepay/internal/config"
	"github.com/baharkarakas/coursepay/internal/gateway"
	"github.com/baharkarakas/coursepay/internal/logger"
	"github.com/baharkarakas/coursepay/internal/models"
	repo "github.com/baharkarakas/coursepay/internal/repository"
)

func TestPurchaseCourse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.buyer()
	c, _ := h.course("Go Basics", 150000, 2)

	res, err := h.checkout.PurchaseCourse(ctx, b.ID, c.ID, PaymentOptions{})
	require.NoError(t, err)
	assert.Equal(t, "TXN_1", res.TransactionCode)
	assert.True(t, decimal.NewFromInt(150000).Equal(res.Amount))
	assert.Nil(t, res.CartID)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, models.TxnPending, res.Transactions[0].Status)
	assert.Equal(t, models.GatewayVNPay, res.Transactions[0].Gateway)

	u, err := url.Parse(res.PaymentURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "TXN_1", q.Get(gateway.ParamTxnRef))
	assert.Equal(t, "15000000", q.Get(gateway.ParamAmount))
	assert.Equal(t, "Payment for course: Go Basics", q.Get("vnp_OrderInfo"))
}

func TestCheckoutCart_OneCodeManyRows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.buyer()
	var titles []string
	for _, title := range []string{"A", "B", "C", "D", "E"} {
		c, _ := h.course(title, 100000, 1)
		h.mem.AddToCart(b.ID, c.ID)
		titles = append(titles, c.Title)
	}

	res, err := h.checkout.CheckoutCart(ctx, b.ID, PaymentOptions{BankCode: "NCB"})
	require.NoError(t, err)
	require.NotNil(t, res.CartID)
	assert.True(t, decimal.NewFromInt(500000).Equal(res.Amount))
	require.Len(t, res.Transactions, 5)
	for _, txn := range res.Transactions {
		assert.Equal(t, res.TransactionCode, txn.CorrelationCode)
		assert.True(t, decimal.NewFromInt(100000).Equal(txn.Amount), "each row keeps its own price")
	}

	u, err := url.Parse(res.PaymentURL)
	require.NoError(t, err)
	assert.Equal(t, "Cart payment: A, B, C and 2 more", u.Query().Get("vnp_OrderInfo"))
	assert.Equal(t, "NCB", u.Query().Get(gateway.ParamBankCode))

	checkout, err := h.mem.Repos().Checkouts.Get(ctx, res.TransactionCode)
	require.NoError(t, err)
	assert.Equal(t, *res.CartID, *checkout.CartID)
}

func TestCheckout_RejectsOwnedCourseWithoutWriting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.buyer()
	owned, _ := h.course("Owned", 100000, 1)
	fresh, _ := h.course("Fresh", 100000, 1)
	_, _, err := h.enroll.GrantEnrollment(ctx, b.ID, owned.ID, nil)
	require.NoError(t, err)

	h.mem.AddToCart(b.ID, fresh.ID)
	h.mem.AddToCart(b.ID, owned.ID)

	_, err = h.checkout.CheckoutCart(ctx, b.ID, PaymentOptions{})
	require.ErrorIs(t, err, ErrAlreadyEnrolled)
	var ownedErr *repo.CourseOwnedError
	require.ErrorAs(t, err, &ownedErr)
	assert.Equal(t, owned.ID, ownedErr.CourseID)

	txns, err := h.txns.ListByBuyer(ctx, b.ID, Page{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestCheckout_RetriesOnCodeCollision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.buyer()
	c1, _ := h.course("One", 1000, 1)
	c2, _ := h.course("Two", 1000, 1)

	h.ids.scripted = []string{"TXN_same"}
	_, err := h.checkout.PurchaseCourse(ctx, b.ID, c1.ID, PaymentOptions{})
	require.NoError(t, err)

	h.ids.scripted = []string{"TXN_same", "TXN_same", "TXN_other"}
	res, err := h.checkout.PurchaseCourse(ctx, b.ID, c2.ID, PaymentOptions{})
	require.NoError(t, err)
	assert.Equal(t, "TXN_other", res.TransactionCode)
}

func TestCheckout_GivesUpAfterRepeatedCollisions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.buyer()
	c1, _ := h.course("One", 1000, 1)
	c2, _ := h.course("Two", 1000, 1)

	h.ids.scripted = []string{"TXN_same"}
	_, err := h.checkout.PurchaseCourse(ctx, b.ID, c1.ID, PaymentOptions{})
	require.NoError(t, err)

	h.ids.scripted = []string{"TXN_same", "TXN_same", "TXN_same"}
	_, err = h.checkout.PurchaseCourse(ctx, b.ID, c2.ID, PaymentOptions{})
	assert.ErrorIs(t, err, repo.ErrDuplicateCode)
}

func TestCheckout_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.buyer()
	c, _ := h.course("Paid", 1000, 1)
	free, _ := h.course("Free", 0, 1)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"unknown buyer", func() error {
			_, err := h.checkout.PurchaseCourse(ctx, "nobody", c.ID, PaymentOptions{})
			return err
		}, ErrNotFound},
		{"unknown course", func() error {
			_, err := h.checkout.PurchaseCourse(ctx, b.ID, "missing", PaymentOptions{})
			return err
		}, ErrNotFound},
		{"empty course id", func() error {
			_, err := h.checkout.PurchaseCourse(ctx, b.ID, " ", PaymentOptions{})
			return err
		}, ErrValidation},
		{"free course", func() error {
			_, err := h.checkout.PurchaseCourse(ctx, b.ID, free.ID, PaymentOptions{})
			return err
		}, ErrValidation},
		{"unsupported gateway", func() error {
			_, err := h.checkout.PurchaseCourse(ctx, b.ID, c.ID, PaymentOptions{Gateway: models.GatewayMoMo})
			return err
		}, ErrValidation},
		{"no cart", func() error {
			_, err := h.checkout.CheckoutCart(ctx, b.ID, PaymentOptions{})
			return err
		}, ErrEmptyCart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
		})
	}

	txns, err := h.txns.ListByBuyer(ctx, b.ID, Page{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestCheckout_UnconfiguredGatewayRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.buyer()
	c, _ := h.course("Go", 1000, 1)

	svc := NewCheckoutService(h.store, h.ids, gateway.NewVNPay(config.VNPay{}), logger.Discard())
	_, err := svc.PurchaseCourse(ctx, b.ID, c.ID, PaymentOptions{})
	require.True(t, errors.Is(err, gateway.ErrNotConfigured))

	txns, err := h.txns.ListByBuyer(ctx, b.ID, Page{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestCheckout_DuplicatePendingAllowed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.buyer()
	c, _ := h.course("Go", 1000, 1)

	first, err := h.checkout.PurchaseCourse(ctx, b.ID, c.ID, PaymentOptions{})
	require.NoError(t, err)
	second, err := h.checkout.PurchaseCourse(ctx, b.ID, c.ID, PaymentOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, first.TransactionCode, second.TransactionCode)

	res := h.callbacks.HandleNotification(ctx, notification(second.TransactionCode, second.Amount, "00"))
	assert.Equal(t, OutcomeProcessed, res.Outcome)

	_, err = h.checkout.PurchaseCourse(ctx, b.ID, c.ID, PaymentOptions{})
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}
