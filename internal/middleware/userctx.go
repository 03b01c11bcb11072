package middleware

import "context"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type userKey struct{}

type UserCtx struct {
	UserID string
	Role   string
}

func (u UserCtx) IsAdmin() bool { return u.Role == RoleAdmin }

func WithUser(ctx context.Context, u UserCtx) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func FromCtx(ctx context.Context) (UserCtx, bool) {
	u, ok := ctx.Value(userKey{}).(UserCtx)
	return u, ok && u.UserID != ""
}
