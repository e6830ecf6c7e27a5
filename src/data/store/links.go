package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ltyyb/surveybot/src/shared/survey"
	"gorm.io/gorm"
)

const (
	// LinkReuseWindow is how long an issued request link is handed out again.
	LinkReuseWindow = time.Hour
	// LinkValidity is how long a request link resolves to its user.
	LinkValidity = 2 * time.Hour
)

// Links issues short-lived request IDs embedded in survey links.
type Links struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLinks returns a link store over db.
func NewLinks(db *gorm.DB) *Links {
	return &Links{db: db, now: time.Now}
}

// Issue returns a request ID for userID, reusing one issued within the reuse window.
func (l *Links) Issue(ctx context.Context, userID string) (string, error) {
	now := l.now()

	var recent survey.RequestLink
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND created_at > ?", userID, now.Add(-LinkReuseWindow)).
		Order("created_at DESC").
		First(&recent).Error
	if err == nil {
		return recent.RequestID, nil
	}
	if !IsNotFound(notFound(err)) {
		return "", fmt.Errorf("issue link %s: %w", userID, err)
	}

	link := survey.RequestLink{RequestID: NewID(), UserID: userID, CreatedAt: now}
	if err := l.db.WithContext(ctx).Create(&link).Error; err != nil {
		return "", fmt.Errorf("issue link %s: %w", userID, err)
	}
	return link.RequestID, nil
}

// Resolve returns the user a still-valid request ID was issued to.
func (l *Links) Resolve(ctx context.Context, requestID string) (string, error) {
	var link survey.RequestLink
	err := l.db.WithContext(ctx).
		Where("request_id = ? AND created_at > ?", requestID, l.now().Add(-LinkValidity)).
		First(&link).Error
	if err != nil {
		return "", notFound(err)
	}
	return link.UserID, nil
}

// Purge deletes links past their validity and returns how many were removed.
func (l *Links) Purge(ctx context.Context) (int64, error) {
	res := l.db.WithContext(ctx).
		Where("created_at <= ?", l.now().Add(-LinkValidity)).
		Delete(&survey.RequestLink{})
	return res.RowsAffected, res.Error
}
