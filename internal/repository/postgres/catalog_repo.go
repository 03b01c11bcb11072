package postgres

import (
	"context"

	"github.com/baharkarakas/coursepay/internal/models"
)

// catalogRepo reads the catalog and content tables owned by other services.
type catalogRepo struct{ q querier }

func (r *catalogRepo) GetCourse(ctx context.Context, id string) (models.Course, error) {
	var c models.Course
	err := r.q.QueryRow(ctx,
		`SELECT id, title, price, instructor_id, created_at FROM courses WHERE id=$1`, id,
	).Scan(&c.ID, &c.Title, &c.Price, &c.InstructorID, &c.CreatedAt)
	return c, notFound(err)
}

func (r *catalogRepo) GetCourses(ctx context.Context, ids []string) ([]models.Course, error) {
	rows, err := r.q.Query(ctx, `
SELECT c.id, c.title, c.price, c.instructor_id, c.created_at
  FROM unnest($1::text[]) WITH ORDINALITY AS want(id, ord)
  JOIN courses c ON c.id = want.id
 ORDER BY want.ord`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Course
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Price, &c.InstructorID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *catalogRepo) DeleteCourse(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM courses WHERE id=$1`, id)
	return err
}

func (r *catalogRepo) GetLesson(ctx context.Context, id string) (models.Lesson, error) {
	var l models.Lesson
	err := r.q.QueryRow(ctx,
		`SELECT id, course_id, title, position FROM lessons WHERE id=$1`, id,
	).Scan(&l.ID, &l.CourseID, &l.Title, &l.Position)
	return l, notFound(err)
}

func (r *catalogRepo) CountLessons(ctx context.Context, courseID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM lessons WHERE course_id=$1`, courseID).Scan(&n)
	return n, err
}
