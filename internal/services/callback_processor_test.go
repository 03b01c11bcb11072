package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/coursepay/internal/gateway"
	"github.com/baharkarakas/coursepay/internal/models"
)

// cartCheckout puts n courses in a fresh buyer's cart and checks out.
func cartCheckout(t *testing.T, h *harness, n int) (models.User, CheckoutResult) {
	t.Helper()
	b := h.buyer()
	for i := 0; i < n; i++ {
		c, _ := h.course("course", 100000, 2)
		h.mem.AddToCart(b.ID, c.ID)
	}
	res, err := h.checkout.CheckoutCart(context.Background(), b.ID, PaymentOptions{})
	require.NoError(t, err)
	return b, res
}

func TestHandleNotification_CartFanOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, co := cartCheckout(t, h, 3)

	res := h.callbacks.HandleNotification(ctx, notification(co.TransactionCode, co.Amount, "00"))
	assert.Equal(t, OutcomeProcessed, res.Outcome)
	assert.Len(t, res.Settled, 3)

	for _, row := range h.rows(t, co.TransactionCode) {
		assert.Equal(t, models.TxnSuccess, row.Status)
	}
	enrollments := h.enrollments(t, b.ID)
	assert.Len(t, enrollments, 3)
	for _, e := range enrollments {
		assert.Equal(t, models.EnrollmentInProgress, e.Status)
		assert.NotNil(t, e.SourceTransactionID)
	}

	cart, err := h.mem.Repos().Carts.GetByUser(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, int32(1), h.store.clears.Load())

	purchases, _ := h.notifier.counts()
	assert.Equal(t, 3, purchases)
}

func TestHandleNotification_DuplicateIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, co := cartCheckout(t, h, 3)
	params := notification(co.TransactionCode, co.Amount, "00")

	first := h.callbacks.HandleNotification(ctx, params)
	second := h.callbacks.HandleNotification(ctx, params)

	assert.Equal(t, OutcomeProcessed, first.Outcome)
	assert.Equal(t, OutcomeAlreadyProcessed, second.Outcome)
	assert.Equal(t, models.TxnSuccess, second.Status)
	assert.Empty(t, second.Settled)
	assert.Len(t, h.enrollments(t, b.ID), 3)
	assert.Equal(t, int32(1), h.store.clears.Load())
}

func TestHandleNotification_ConcurrentDeliveries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, co := cartCheckout(t, h, 2)
	params := notification(co.TransactionCode, co.Amount, "00")

	const deliveries = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[Outcome]int{}
	)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := h.callbacks.HandleNotification(ctx, params)
			mu.Lock()
			outcomes[res.Outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, outcomes[OutcomeProcessed])
	assert.Equal(t, deliveries-1, outcomes[OutcomeAlreadyProcessed])
	assert.Len(t, h.enrollments(t, b.ID), 2)
	assert.Equal(t, int32(1), h.store.clears.Load())
}

func TestHandleNotification_FailedPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, co := cartCheckout(t, h, 2)

	res := h.callbacks.HandleNotification(ctx, notification(co.TransactionCode, co.Amount, "24"))
	assert.Equal(t, OutcomeProcessed, res.Outcome)
	assert.Equal(t, models.TxnFailed, res.Status)
	for _, row := range h.rows(t, co.TransactionCode) {
		assert.Equal(t, models.TxnFailed, row.Status)
	}
	assert.Empty(t, h.enrollments(t, b.ID))
	assert.Equal(t, int32(0), h.store.clears.Load())

	// a later success cannot revive a terminal row
	again := h.callbacks.HandleNotification(ctx, notification(co.TransactionCode, co.Amount, "00"))
	assert.Equal(t, OutcomeAlreadyProcessed, again.Outcome)
	assert.Equal(t, models.TxnFailed, again.Status)
	assert.Empty(t, h.enrollments(t, b.ID))
}

func TestHandleNotification_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, co := cartCheckout(t, h, 1)

	tampered := notification(co.TransactionCode, co.Amount, "00")
	tampered[gateway.ParamAmount] = "1"

	unsigned := notification(co.TransactionCode, co.Amount, "00")
	delete(unsigned, gateway.ParamSecureHash)

	tests := []struct {
		name   string
		params map[string]string
		want   Outcome
	}{
		{"tampered amount", tampered, OutcomeBadSignature},
		{"missing signature", unsigned, OutcomeBadSignature},
		{"unknown code", notification("TXN_nope", co.Amount, "00"), OutcomeNotFound},
		{"amount mismatch", notification(co.TransactionCode, decimal.NewFromInt(1), "00"), OutcomeInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := h.callbacks.HandleNotification(ctx, tt.params)
			assert.Equal(t, tt.want, res.Outcome)
		})
	}

	for _, row := range h.rows(t, co.TransactionCode) {
		assert.Equal(t, models.TxnPending, row.Status)
	}
}

func TestHandleNotification_EmptyIsProbe(t *testing.T) {
	h := newHarness(t)
	res := h.callbacks.HandleNotification(context.Background(), map[string]string{})
	assert.Equal(t, OutcomeProcessed, res.Outcome)
	assert.True(t, res.Probe)
}

func TestHandleNotification_CartClearFailureKeepsSettlement(t *testing.T) {
	h := newHarness(t)
	h.store.clearFail = true
	ctx := context.Background()
	b, co := cartCheckout(t, h, 2)

	res := h.callbacks.HandleNotification(ctx, notification(co.TransactionCode, co.Amount, "00"))
	assert.Equal(t, OutcomeProcessed, res.Outcome)
	assert.Len(t, h.enrollments(t, b.ID), 2)
	for _, row := range h.rows(t, co.TransactionCode) {
		assert.Equal(t, models.TxnSuccess, row.Status)
	}

	cart, err := h.mem.Repos().Carts.GetByUser(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestSettle_MockStatusTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, co := cartCheckout(t, h, 1)

	_, err := h.callbacks.Settle(ctx, co.TransactionCode, "paid")
	assert.ErrorIs(t, err, ErrValidation)

	res, err := h.callbacks.Settle(ctx, co.TransactionCode, "success")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, res.Outcome)
	assert.Len(t, h.enrollments(t, b.ID), 1)

	res, err = h.callbacks.Settle(ctx, co.TransactionCode, "FAILED")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, res.Outcome)
	assert.Equal(t, models.TxnSuccess, res.Status)

	res, err = h.callbacks.Settle(ctx, "TXN_missing", "SUCCESS")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
}
