package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "secdash/internal/errors"
)

// translate maps GORM errors onto the application error set so callers never
// see driver details.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.ErrUserAlreadyExists
	default:
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
}
