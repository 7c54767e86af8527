package services

import (
	"errors"
	"strings"

	"keywe-backend/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// lookupError turns gorm.ErrRecordNotFound into a NotFound AppError and
// anything else into an internal error.
func lookupError(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NewNotFoundError(resource)
	}
	return utils.WrapInternal(err, "failed to load "+resource)
}

// isUniqueViolation recognises duplicate-key errors across the supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

func newID() string {
	return uuid.New().String()
}
