package services

import (
	"errors"
	"fmt"

	repo "github.com/baharkarakas/coursepay/internal/repository"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyEnrolled = errors.New("already enrolled")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrForbidden       = errors.New("forbidden")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFound translates a repository miss into ErrNotFound naming what was missing.
func notFound(err error, what string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

// Actor is the authenticated caller of a read operation.
type Actor struct {
	UserID string
	Admin  bool
}

func (a Actor) canSee(ownerID string) bool {
	return a.Admin || (a.UserID != "" && a.UserID == ownerID)
}
