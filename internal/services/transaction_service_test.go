package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionService_Access(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.buyer()
	c, _ := h.course("Go", 1000, 1)
	co, err := h.checkout.PurchaseCourse(ctx, b.ID, c.ID, PaymentOptions{})
	require.NoError(t, err)
	id := co.Transactions[0].ID

	got, err := h.txns.Get(ctx, Actor{UserID: b.ID}, id)
	require.NoError(t, err)
	assert.Equal(t, co.TransactionCode, got.CorrelationCode)

	_, err = h.txns.Get(ctx, Actor{UserID: "stranger"}, id)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.txns.Get(ctx, Actor{UserID: "root", Admin: true}, id)
	assert.NoError(t, err)

	_, err = h.txns.Get(ctx, Actor{UserID: b.ID}, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	byCourse, err := h.txns.ListByCourse(ctx, c.ID, Page{})
	require.NoError(t, err)
	assert.Len(t, byCourse, 1)

	_, err = h.txns.ListByCourse(ctx, "missing", Page{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionService_PagingAndRevenue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.buyer()

	var codes []CheckoutResult
	for i := 0; i < 3; i++ {
		c, _ := h.course("Go", 1500, 1)
		co, err := h.checkout.PurchaseCourse(ctx, b.ID, c.ID, PaymentOptions{})
		require.NoError(t, err)
		codes = append(codes, co)
	}
	h.callbacks.HandleNotification(ctx, notification(codes[0].TransactionCode, codes[0].Amount, "00"))
	h.callbacks.HandleNotification(ctx, notification(codes[1].TransactionCode, codes[1].Amount, "00"))
	h.callbacks.HandleNotification(ctx, notification(codes[2].TransactionCode, codes[2].Amount, "51"))

	page, err := h.txns.ListByBuyer(ctx, b.ID, Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, codes[2].TransactionCode, page[0].CorrelationCode, "newest first")

	rest, err := h.txns.ListByBuyer(ctx, b.ID, Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	now := time.Now()
	rep, err := h.txns.Revenue(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Transactions)
	assert.True(t, decimal.NewFromInt(3000).Equal(rep.Total))

	_, err = h.txns.Revenue(ctx, now, now)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransactionService_ListAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, second := h.buyer(), h.buyer()
	c1, _ := h.course("Go", 1000, 1)
	c2, _ := h.course("SQL", 2000, 1)
	_, err := h.checkout.PurchaseCourse(ctx, first.ID, c1.ID, PaymentOptions{})
	require.NoError(t, err)
	last, err := h.checkout.PurchaseCourse(ctx, second.ID, c2.ID, PaymentOptions{})
	require.NoError(t, err)

	all, err := h.txns.ListAll(ctx, Page{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, last.TransactionCode, all[0].CorrelationCode, "newest first across buyers")

	paged, err := h.txns.ListAll(ctx, Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, first.ID, paged[0].BuyerID)
}

func TestCourseTeardown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, co := cartCheckout(t, h, 2)
	h.callbacks.HandleNotification(ctx, notification(co.TransactionCode, co.Amount, "00"))
	require.Len(t, h.enrollments(t, b.ID), 2)

	doomed := co.Transactions[0].CourseID
	other := h.buyer()
	h.mem.AddToCart(other.ID, doomed)

	rep, err := h.teardown.Delete(ctx, doomed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rep.CartItems)
	assert.Equal(t, int64(1), rep.Enrollments)
	assert.Equal(t, int64(1), rep.Transactions)
	assert.Equal(t, int64(0), rep.Checkouts, "checkout still holds the other course")

	assert.Len(t, h.enrollments(t, b.ID), 1)
	assert.Len(t, h.rows(t, co.TransactionCode), 1)

	_, err = h.teardown.Delete(ctx, doomed)
	assert.ErrorIs(t, err, ErrNotFound)
}
