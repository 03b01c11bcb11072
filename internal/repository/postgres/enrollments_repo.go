package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/coursepay/internal/models"
)

type enrollmentsRepo struct{ q querier }

const enrollmentColumns = `id, buyer_id, course_id, source_transaction_id, enrolled_at, progress, status, completed_at`

func scanEnrollment(row pgx.Row) (models.Enrollment, error) {
	var e models.Enrollment
	err := row.Scan(&e.ID, &e.BuyerID, &e.CourseID, &e.SourceTransactionID, &e.EnrolledAt, &e.Progress, &e.Status, &e.CompletedAt)
	return e, err
}

func (r *enrollmentsRepo) Owned(ctx context.Context, buyerID string, courseIDs []string) ([]string, error) {
	rows, err := r.q.Query(ctx, `
SELECT course_id FROM enrollments
 WHERE buyer_id=$1 AND course_id = ANY($2)
 ORDER BY course_id`, buyerID, courseIDs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *enrollmentsRepo) GetByBuyerCourse(ctx context.Context, buyerID, courseID string) (models.Enrollment, error) {
	e, err := scanEnrollment(r.q.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE buyer_id=$1 AND course_id=$2`, buyerID, courseID))
	return e, notFound(err)
}

func (r *enrollmentsRepo) Create(ctx context.Context, e models.Enrollment) (models.Enrollment, bool, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = models.EnrollmentInProgress
	}
	created, err := scanEnrollment(r.q.QueryRow(ctx, `
INSERT INTO enrollments (id, buyer_id, course_id, source_transaction_id, progress, status, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (buyer_id, course_id) DO NOTHING
RETURNING `+enrollmentColumns,
		e.ID, e.BuyerID, e.CourseID, e.SourceTransactionID, e.Progress, e.Status, e.CompletedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := r.GetByBuyerCourse(ctx, e.BuyerID, e.CourseID)
		return existing, false, err
	}
	if err != nil {
		return models.Enrollment{}, false, err
	}
	return created, true, nil
}

func (r *enrollmentsRepo) GetByID(ctx context.Context, id string) (models.Enrollment, error) {
	e, err := scanEnrollment(r.q.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id=$1`, id))
	return e, notFound(err)
}

func (r *enrollmentsRepo) GetForUpdate(ctx context.Context, id string) (models.Enrollment, error) {
	e, err := scanEnrollment(r.q.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id=$1 FOR UPDATE`, id))
	return e, notFound(err)
}

func (r *enrollmentsRepo) ListByBuyer(ctx context.Context, buyerID string) ([]models.Enrollment, error) {
	rows, err := r.q.Query(ctx, `
SELECT `+enrollmentColumns+`
  FROM enrollments
 WHERE buyer_id=$1
 ORDER BY enrolled_at DESC, id`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *enrollmentsRepo) UpdateProgress(ctx context.Context, id string, progress float64, status models.EnrollmentStatus, completedAt *time.Time) error {
	_, err := r.q.Exec(ctx,
		`UPDATE enrollments SET progress=$2, status=$3, completed_at=$4 WHERE id=$1`,
		id, progress, status, completedAt,
	)
	return err
}

func (r *enrollmentsRepo) DeleteByCourse(ctx context.Context, courseID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM enrollments WHERE course_id=$1`, courseID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
