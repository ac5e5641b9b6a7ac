package order

import (
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	"github.com/Zhima-Mochi/colleshop/internal/domain/user"
)

var (
	ErrNotFound          = domain.ErrNotFound
	ErrConflict          = domain.ErrConflict
	ErrInvalidTransition = domain.ErrInvalidTransition
	ErrInvalidStatus     = domain.ErrInvalidStatus
	ErrForbidden         = user.ErrForbidden
	ErrUnauthenticated   = user.ErrUnauthenticated
	ErrRepository        = errors.New("order: repository failure")
)

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, domain.ErrConflict):
		return ErrConflict
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "UNAUTHENTICATED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidStatus):
		return "STATUS_INVALID"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	default:
		return "REPOSITORY_FAILURE"
	}
}
