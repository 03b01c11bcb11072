package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/coursepay/internal/models"
)

type progressRepo struct{ q querier }

const progressColumns = `id, enrollment_id, lesson_id, is_completed, completed_at, last_watched_time, total_duration, updated_at`

func scanProgress(row pgx.Row) (models.LessonProgress, error) {
	var p models.LessonProgress
	err := row.Scan(&p.ID, &p.EnrollmentID, &p.LessonID, &p.IsCompleted, &p.CompletedAt, &p.LastWatchedTime, &p.TotalDuration, &p.UpdatedAt)
	return p, err
}

func (r *progressRepo) Get(ctx context.Context, enrollmentID, lessonID string) (models.LessonProgress, error) {
	p, err := scanProgress(r.q.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM lesson_progress WHERE enrollment_id=$1 AND lesson_id=$2`,
		enrollmentID, lessonID))
	return p, notFound(err)
}

// Upsert never clears is_completed or completed_at once set.
func (r *progressRepo) Upsert(ctx context.Context, p models.LessonProgress) (models.LessonProgress, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return scanProgress(r.q.QueryRow(ctx, `
INSERT INTO lesson_progress (id, enrollment_id, lesson_id, is_completed, completed_at, last_watched_time, total_duration)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (enrollment_id, lesson_id) DO UPDATE SET
  is_completed      = lesson_progress.is_completed OR EXCLUDED.is_completed,
  completed_at      = COALESCE(lesson_progress.completed_at, EXCLUDED.completed_at),
  last_watched_time = EXCLUDED.last_watched_time,
  total_duration    = EXCLUDED.total_duration,
  updated_at        = now()
RETURNING `+progressColumns,
		p.ID, p.EnrollmentID, p.LessonID, p.IsCompleted, p.CompletedAt, p.LastWatchedTime, p.TotalDuration,
	))
}

func (r *progressRepo) CountCompleted(ctx context.Context, enrollmentID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM lesson_progress WHERE enrollment_id=$1 AND is_completed`, enrollmentID,
	).Scan(&n)
	return n, err
}

func (r *progressRepo) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.LessonProgress, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+progressColumns+` FROM lesson_progress WHERE enrollment_id=$1 ORDER BY updated_at, id`, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LessonProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type certificatesRepo struct{ q querier }

func (r *certificatesRepo) GetByEnrollment(ctx context.Context, enrollmentID string) (models.Certificate, error) {
	var c models.Certificate
	err := r.q.QueryRow(ctx,
		`SELECT id, enrollment_id, certificate_number, issued_at FROM certificates WHERE enrollment_id=$1`, enrollmentID,
	).Scan(&c.ID, &c.EnrollmentID, &c.CertificateNumber, &c.IssuedAt)
	return c, notFound(err)
}

func (r *certificatesRepo) Create(ctx context.Context, c models.Certificate) (models.Certificate, bool, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := r.q.QueryRow(ctx, `
INSERT INTO certificates (id, enrollment_id, certificate_number)
VALUES ($1,$2,$3)
ON CONFLICT (enrollment_id) DO NOTHING
RETURNING issued_at`, c.ID, c.EnrollmentID, c.CertificateNumber,
	).Scan(&c.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := r.GetByEnrollment(ctx, c.EnrollmentID)
		return existing, false, err
	}
	if err != nil {
		return models.Certificate{}, false, err
	}
	return c, true, nil
}
