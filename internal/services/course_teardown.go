package services

import (
	"context"
	"log/slog"

	repo "github.com/baharkarakas/coursepay/internal/repository"
)

type TeardownReport struct {
	CourseID     string `json:"courseId"`
	CartItems    int64  `json:"cartItems"`
	Enrollments  int64  `json:"enrollments"`
	Transactions int64  `json:"transactions"`
	Checkouts    int64  `json:"checkouts"`
}

// CourseTeardown removes a course together with every record that references it.
type CourseTeardown struct {
	store repo.Store
	log   *slog.Logger
}

func NewCourseTeardown(store repo.Store, log *slog.Logger) *CourseTeardown {
	return &CourseTeardown{store: store, log: log}
}

// Delete runs in one transaction: cart items, enrollments (with their lesson
// progress and certificates), transactions, emptied checkouts, then the course.
func (t *CourseTeardown) Delete(ctx context.Context, courseID string) (TeardownReport, error) {
	rep := TeardownReport{CourseID: courseID}
	err := t.store.InTx(ctx, func(r repo.Repositories) error {
		if _, err := r.Catalog.GetCourse(ctx, courseID); err != nil {
			return notFound(err, "course "+courseID)
		}
		var err error
		if rep.CartItems, err = r.Carts.RemoveCourse(ctx, courseID); err != nil {
			return err
		}
		if rep.Enrollments, err = r.Enrollments.DeleteByCourse(ctx, courseID); err != nil {
			return err
		}
		if rep.Transactions, err = r.Transactions.DeleteByCourse(ctx, courseID); err != nil {
			return err
		}
		if rep.Checkouts, err = r.Checkouts.DeleteEmpty(ctx); err != nil {
			return err
		}
		return r.Catalog.DeleteCourse(ctx, courseID)
	})
	if err != nil {
		return TeardownReport{}, err
	}
	t.log.Info("course deleted", "course", courseID,
		"cart_items", rep.CartItems, "enrollments", rep.Enrollments,
		"transactions", rep.Transactions, "checkouts", rep.Checkouts)
	return rep, nil
}
