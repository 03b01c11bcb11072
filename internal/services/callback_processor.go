package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/baharkarakas/coursepay/internal/gateway"
	"github.com/baharkarakas/coursepay/internal/metrics"
	"github.com/baharkarakas/coursepay/internal/models"
	repo "github.com/baharkarakas/coursepay/internal/repository"
	"github.com/baharkarakas/coursepay/internal/worker"
)

// CallbackVerifier is the inbound half of the payment gateway.
type CallbackVerifier interface {
	VerifyCallback(params map[string]string) bool
}

type Outcome string

const (
	OutcomeProcessed        Outcome = "processed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeBadSignature     Outcome = "bad_signature"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeInvalidAmount    Outcome = "invalid_amount"
	OutcomeError            Outcome = "error"
)

type SettlementResult struct {
	Outcome         Outcome                  `json:"outcome"`
	TransactionCode string                   `json:"transactionCode,omitempty"`
	Status          models.TransactionStatus `json:"status,omitempty"`
	// Settled holds the rows this call moved out of PENDING.
	Settled []models.Transaction `json:"settled,omitempty"`
	// Probe is set for an empty notification used as a liveness check.
	Probe bool `json:"-"`
}

type CallbackProcessor struct {
	store    repo.Store
	verifier CallbackVerifier
	enroll   *EnrollmentEngine
	log      *slog.Logger
}

func NewCallbackProcessor(store repo.Store, v CallbackVerifier, enroll *EnrollmentEngine, log *slog.Logger) *CallbackProcessor {
	return &CallbackProcessor{store: store, verifier: v, enroll: enroll, log: log}
}

// HandleNotification settles the checkout named by a signed gateway notification.
// It is safe to call any number of times for the same notification.
func (p *CallbackProcessor) HandleNotification(ctx context.Context, params map[string]string) SettlementResult {
	if len(params) == 0 {
		return SettlementResult{Outcome: OutcomeProcessed, Probe: true}
	}
	code := params[gateway.ParamTxnRef]
	if !p.verifier.VerifyCallback(params) {
		p.log.Warn("payment notification with bad signature, possible tampering", "code", code)
		return p.count(SettlementResult{Outcome: OutcomeBadSignature, TransactionCode: code})
	}

	status := models.TxnFailed
	if params[gateway.ParamResponseCode] == gateway.ResponseSuccess {
		status = models.TxnSuccess
	}
	amount, err := strconv.ParseInt(params[gateway.ParamAmount], 10, 64)
	if err != nil {
		p.log.Warn("payment notification with unreadable amount", "code", code, "amount", params[gateway.ParamAmount])
		return p.count(SettlementResult{Outcome: OutcomeInvalidAmount, TransactionCode: code})
	}

	res, err := p.settle(ctx, code, status, &amount)
	if err != nil {
		p.log.Error("settlement failed", "code", code, "err", err)
		return p.count(SettlementResult{Outcome: OutcomeError, TransactionCode: code})
	}
	return res
}

// Settle applies a status token ("SUCCESS" or "FAILED", any case) to a checkout
// without a gateway signature. Used by the mock callback endpoint.
func (p *CallbackProcessor) Settle(ctx context.Context, code, statusToken string) (SettlementResult, error) {
	if code == "" {
		return SettlementResult{}, validationf("transaction code required")
	}
	status, err := models.ParseSettlementStatus(statusToken)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return p.settle(ctx, code, status, nil)
}

// settle locks every row of the checkout group, moves the PENDING ones to status
// in one statement and, after commit, runs the success side effects for exactly
// the rows it changed. amountMinor, when set, must match the checkout total.
func (p *CallbackProcessor) settle(ctx context.Context, code string, status models.TransactionStatus, amountMinor *int64) (SettlementResult, error) {
	res := SettlementResult{TransactionCode: code, Status: status}
	var checkout models.Checkout

	err := p.store.InTx(ctx, func(r repo.Repositories) error {
		rows, err := r.Transactions.LockByCode(ctx, code)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			res.Outcome = OutcomeNotFound
			return nil
		}

		checkout, err = r.Checkouts.Get(ctx, code)
		if err != nil {
			return err
		}
		if amountMinor != nil && checkout.TotalAmount.Shift(2).IntPart() != *amountMinor {
			res.Outcome = OutcomeInvalidAmount
			return nil
		}

		if !hasPending(rows) {
			res.Outcome = OutcomeAlreadyProcessed
			res.Status = rows[0].Status
			return nil
		}
		res.Settled, err = r.Transactions.SettlePending(ctx, code, status)
		if err != nil {
			return err
		}
		if len(res.Settled) == 0 {
			res.Outcome = OutcomeAlreadyProcessed
			return nil
		}
		res.Outcome = OutcomeProcessed
		return nil
	})
	if err != nil {
		return SettlementResult{}, err
	}

	switch res.Outcome {
	case OutcomeProcessed:
		p.log.Info("checkout settled", "code", code, "status", status, "rows", len(res.Settled))
		if status == models.TxnSuccess {
			p.fanOut(context.WithoutCancel(ctx), checkout, res.Settled)
		}
	case OutcomeAlreadyProcessed:
		p.log.Info("checkout already settled", "code", code, "status", res.Status)
	case OutcomeInvalidAmount:
		p.log.Warn("notification amount does not match checkout", "code", code, "expected", checkout.TotalAmount.String(), "got", *amountMinor)
	case OutcomeNotFound:
		p.log.Warn("notification for unknown transaction code", "code", code)
	}
	return p.count(res), nil
}

// fanOut grants access for each settled row and then empties the originating cart.
// Failures are logged and never undo the settlement.
func (p *CallbackProcessor) fanOut(ctx context.Context, checkout models.Checkout, settled []models.Transaction) {
	for _, t := range settled {
		txn := t
		worker.BestEffort(ctx, p.log, "grant_enrollment", func(ctx context.Context) error {
			_, _, err := p.enroll.GrantEnrollment(ctx, txn.BuyerID, txn.CourseID, &txn.ID)
			return err
		})
	}
	if checkout.CartID != nil {
		cartID := *checkout.CartID
		worker.BestEffort(ctx, p.log, "clear_cart", func(ctx context.Context) error {
			return p.store.Repos().Carts.Clear(ctx, cartID)
		})
	}
}

func (p *CallbackProcessor) count(res SettlementResult) SettlementResult {
	metrics.SettlementsTotal.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

func hasPending(rows []models.Transaction) bool {
	for _, r := range rows {
		if !r.Status.Terminal() {
			return true
		}
	}
	return false
}
