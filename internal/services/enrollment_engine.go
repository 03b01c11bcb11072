package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/baharkarakas/coursepay/internal/metrics"
	"github.com/baharkarakas/coursepay/internal/models"
	"github.com/baharkarakas/coursepay/internal/notify"
	repo "github.com/baharkarakas/coursepay/internal/repository"
	"github.com/baharkarakas/coursepay/internal/worker"
)

type EnrollmentEngine struct {
	store    repo.Store
	certs    *CertificateTrigger
	notifier notify.Notifier
	dispatch worker.Dispatcher
	log      *slog.Logger
	now      func() time.Time
}

func NewEnrollmentEngine(store repo.Store, certs *CertificateTrigger, n notify.Notifier, d worker.Dispatcher, log *slog.Logger) *EnrollmentEngine {
	return &EnrollmentEngine{store: store, certs: certs, notifier: n, dispatch: d, log: log, now: time.Now}
}

// ProgressUpdate is the state after a lesson event.
type ProgressUpdate struct {
	Lesson     models.LessonProgress `json:"lesson"`
	Enrollment models.Enrollment     `json:"enrollment"`
}

// EnrollmentDetail is an enrollment with its per-lesson records.
type EnrollmentDetail struct {
	Enrollment  models.Enrollment       `json:"enrollment"`
	Lessons     []models.LessonProgress `json:"lessons"`
	Certificate *models.Certificate     `json:"certificate,omitempty"`
}

// GrantEnrollment gives the buyer access to the course. An existing enrollment is
// returned untouched with granted=false.
func (e *EnrollmentEngine) GrantEnrollment(ctx context.Context, buyerID, courseID string, sourceTxnID *string) (enr models.Enrollment, granted bool, err error) {
	r := e.store.Repos()

	existing, err := r.Enrollments.GetByBuyerCourse(ctx, buyerID, courseID)
	if err == nil {
		e.log.Debug("enrollment exists, skipping grant", "buyer", buyerID, "course", courseID)
		return existing, false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return models.Enrollment{}, false, err
	}

	course, err := r.Catalog.GetCourse(ctx, courseID)
	if err != nil {
		return models.Enrollment{}, false, notFound(err, "course "+courseID)
	}

	enr, granted, err = r.Enrollments.Create(ctx, models.Enrollment{
		BuyerID:             buyerID,
		CourseID:            courseID,
		SourceTransactionID: sourceTxnID,
		Status:              models.EnrollmentInProgress,
	})
	if err != nil || !granted {
		return enr, false, err
	}
	metrics.EnrollmentsGranted.Inc()
	e.log.Info("enrollment granted", "enrollment", enr.ID, "buyer", buyerID, "course", courseID)

	if course.InstructorID != nil {
		ev := notify.PurchaseEvent{
			OwnerID:      *course.InstructorID,
			BuyerID:      buyerID,
			CourseID:     courseID,
			CourseTitle:  course.Title,
			EnrollmentID: enr.ID,
		}
		e.dispatch.Dispatch("notify_owner", func(ctx context.Context) error {
			return e.notifier.CoursePurchased(ctx, ev)
		})
	}

	// a course without lessons is complete the moment it is granted
	enr, err = e.recompute(ctx, enr.ID)
	return enr, true, err
}

func (e *EnrollmentEngine) recompute(ctx context.Context, enrollmentID string) (models.Enrollment, error) {
	var enr models.Enrollment
	err := e.store.InTx(ctx, func(r repo.Repositories) error {
		cur, err := r.Enrollments.GetForUpdate(ctx, enrollmentID)
		if err != nil {
			return notFound(err, "enrollment "+enrollmentID)
		}
		enr, err = e.refresh(ctx, r, cur)
		return err
	})
	if err != nil {
		return models.Enrollment{}, err
	}
	e.afterUpdate(enr)
	return enr, nil
}

// refresh derives progress from completed lessons and persists it. Runs inside
// the transaction holding the enrollment lock.
func (e *EnrollmentEngine) refresh(ctx context.Context, r repo.Repositories, enr models.Enrollment) (models.Enrollment, error) {
	total, err := r.Content.CountLessons(ctx, enr.CourseID)
	if err != nil {
		return enr, err
	}
	done, err := r.Progress.CountCompleted(ctx, enr.ID)
	if err != nil {
		return enr, err
	}

	enr.Progress = models.CourseProgress(done, total)
	if enr.Progress >= 100 && enr.Status != models.EnrollmentCompleted {
		at := e.now().UTC()
		enr.Status = models.EnrollmentCompleted
		enr.CompletedAt = &at
	}
	if enr.Status == "" {
		enr.Status = models.EnrollmentInProgress
	}
	if err := r.Enrollments.UpdateProgress(ctx, enr.ID, enr.Progress, enr.Status, enr.CompletedAt); err != nil {
		return enr, err
	}
	return enr, nil
}

// afterUpdate fires the certificate trigger for completed enrollments. Runs after commit.
func (e *EnrollmentEngine) afterUpdate(enr models.Enrollment) {
	if enr.Status != models.EnrollmentCompleted || e.certs == nil {
		return
	}
	id := enr.ID
	e.dispatch.Dispatch("issue_certificate", func(ctx context.Context) error {
		_, _, err := e.certs.TryIssue(ctx, id)
		return err
	})
}

// MarkLessonCompleted records an explicit completion. Completing twice is harmless.
func (e *EnrollmentEngine) MarkLessonCompleted(ctx context.Context, actor Actor, enrollmentID, lessonID string) (ProgressUpdate, error) {
	return e.updateLesson(ctx, actor, enrollmentID, lessonID, func(p *models.LessonProgress) bool {
		return !p.IsCompleted
	})
}

// RecordWatchProgress stores the playback position and completes the lesson once
// watched/total reaches models.AutoCompleteRatio.
func (e *EnrollmentEngine) RecordWatchProgress(ctx context.Context, actor Actor, enrollmentID, lessonID string, watched, total int) (ProgressUpdate, error) {
	if total <= 0 {
		return ProgressUpdate{}, validationf("total duration must be > 0")
	}
	if watched < 0 {
		return ProgressUpdate{}, validationf("watched time must be >= 0")
	}
	if watched > total {
		watched = total
	}
	return e.updateLesson(ctx, actor, enrollmentID, lessonID, func(p *models.LessonProgress) bool {
		p.LastWatchedTime = watched
		p.TotalDuration = total
		return !p.IsCompleted && p.Watched()
	})
}

// updateLesson applies mutate to the lesson record under the enrollment lock.
// mutate reports whether the lesson should become completed.
func (e *EnrollmentEngine) updateLesson(ctx context.Context, actor Actor, enrollmentID, lessonID string, mutate func(p *models.LessonProgress) bool) (ProgressUpdate, error) {
	var out ProgressUpdate
	err := e.store.InTx(ctx, func(r repo.Repositories) error {
		enr, err := r.Enrollments.GetForUpdate(ctx, enrollmentID)
		if err != nil {
			return notFound(err, "enrollment "+enrollmentID)
		}
		if enr.BuyerID != actor.UserID {
			return ErrForbidden
		}
		lesson, err := r.Content.GetLesson(ctx, lessonID)
		if err != nil {
			return notFound(err, "lesson "+lessonID)
		}
		if lesson.CourseID != enr.CourseID {
			return validationf("lesson %s does not belong to this course", lessonID)
		}

		p, err := r.Progress.Get(ctx, enrollmentID, lessonID)
		if errors.Is(err, repo.ErrNotFound) {
			p = models.LessonProgress{EnrollmentID: enrollmentID, LessonID: lessonID}
		} else if err != nil {
			return err
		}

		completes := mutate(&p)
		if completes {
			at := e.now().UTC()
			p.IsCompleted = true
			p.CompletedAt = &at
		}
		if out.Lesson, err = r.Progress.Upsert(ctx, p); err != nil {
			return err
		}

		if completes {
			enr, err = e.refresh(ctx, r, enr)
			if err != nil {
				return err
			}
		}
		out.Enrollment = enr
		return nil
	})
	if err != nil {
		return ProgressUpdate{}, err
	}
	e.afterUpdate(out.Enrollment)
	return out, nil
}

func (e *EnrollmentEngine) ListEnrollments(ctx context.Context, buyerID string) ([]models.Enrollment, error) {
	return e.store.Repos().Enrollments.ListByBuyer(ctx, buyerID)
}

func (e *EnrollmentEngine) GetEnrollment(ctx context.Context, actor Actor, enrollmentID string) (EnrollmentDetail, error) {
	r := e.store.Repos()
	enr, err := r.Enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return EnrollmentDetail{}, notFound(err, "enrollment "+enrollmentID)
	}
	if !actor.canSee(enr.BuyerID) {
		return EnrollmentDetail{}, ErrForbidden
	}

	lessons, err := r.Progress.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return EnrollmentDetail{}, err
	}
	out := EnrollmentDetail{Enrollment: enr, Lessons: lessons}
	cert, err := r.Certificates.GetByEnrollment(ctx, enrollmentID)
	switch {
	case err == nil:
		out.Certificate = &cert
	case !errors.Is(err, repo.ErrNotFound):
		return EnrollmentDetail{}, err
	}
	return out, nil
}
