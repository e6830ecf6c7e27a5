package store

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/ltyyb/surveybot/src/shared/survey"
	"gorm.io/gorm"
)

// NewID returns a random 30 character lowercase hex identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:survey.ResponseIDLength]
}

// ShortOf returns the chat-friendly prefix of a response ID.
func ShortOf(responseID string) string {
	if len(responseID) <= survey.ShortIDLength {
		return responseID
	}
	return responseID[:survey.ShortIDLength]
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return survey.ErrNotFound
	}
	return err
}
