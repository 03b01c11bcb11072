package postgres

import (
	"context"

	"github.com/baharkarakas/coursepay/internal/models"
)

type usersRepo struct{ q querier }

func (r *usersRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

type cartsRepo struct{ q querier }

func (r *cartsRepo) GetByUser(ctx context.Context, userID string) (models.Cart, error) {
	var c models.Cart
	err := r.q.QueryRow(ctx, `SELECT id, user_id FROM carts WHERE user_id=$1`, userID).Scan(&c.ID, &c.UserID)
	if err != nil {
		return models.Cart{}, notFound(err)
	}

	rows, err := r.q.Query(ctx,
		`SELECT id, cart_id, course_id, added_at FROM cart_items WHERE cart_id=$1 ORDER BY added_at, id`, c.ID)
	if err != nil {
		return models.Cart{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it models.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.CourseID, &it.AddedAt); err != nil {
			return models.Cart{}, err
		}
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}

func (r *cartsRepo) Clear(ctx context.Context, cartID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID)
	return err
}

func (r *cartsRepo) RemoveCourse(ctx context.Context, courseID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM cart_items WHERE course_id=$1`, courseID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
