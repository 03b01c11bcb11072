package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/baharkarakas/coursepay/internal/idgen"
	"github.com/baharkarakas/coursepay/internal/metrics"
	"github.com/baharkarakas/coursepay/internal/models"
	"github.com/baharkarakas/coursepay/internal/notify"
	repo "github.com/baharkarakas/coursepay/internal/repository"
	"github.com/baharkarakas/coursepay/internal/worker"
)

// CertificateTrigger issues at most one certificate per completed enrollment.
type CertificateTrigger struct {
	store    repo.Store
	ids      idgen.Generator
	notifier notify.Notifier
	log      *slog.Logger
}

func NewCertificateTrigger(store repo.Store, ids idgen.Generator, n notify.Notifier, log *slog.Logger) *CertificateTrigger {
	return &CertificateTrigger{store: store, ids: ids, notifier: n, log: log}
}

// TryIssue returns the enrollment's certificate, creating it when none exists yet.
// issued is false when a certificate was already there.
func (c *CertificateTrigger) TryIssue(ctx context.Context, enrollmentID string) (cert models.Certificate, issued bool, err error) {
	r := c.store.Repos()

	existing, err := r.Certificates.GetByEnrollment(ctx, enrollmentID)
	if err == nil {
		c.log.Info("certificate already issued", "enrollment", enrollmentID, "number", existing.CertificateNumber)
		return existing, false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return models.Certificate{}, false, err
	}

	enr, err := r.Enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return models.Certificate{}, false, notFound(err, "enrollment "+enrollmentID)
	}
	if enr.Status != models.EnrollmentCompleted {
		return models.Certificate{}, false, validationf("enrollment %s is not completed", enrollmentID)
	}

	cert, issued, err = r.Certificates.Create(ctx, models.Certificate{
		EnrollmentID:      enrollmentID,
		CertificateNumber: c.ids.CertificateNumber(),
	})
	if err != nil || !issued {
		return cert, false, err
	}

	metrics.CertificatesIssued.Inc()
	c.log.Info("certificate issued", "enrollment", enrollmentID, "number", cert.CertificateNumber)
	worker.BestEffort(ctx, c.log, "notify_completion", func(ctx context.Context) error {
		return c.notifier.EnrollmentCompleted(ctx, notify.CompletionEvent{
			BuyerID:           enr.BuyerID,
			CourseID:          enr.CourseID,
			EnrollmentID:      enr.ID,
			CertificateNumber: cert.CertificateNumber,
		})
	})
	return cert, true, nil
}
