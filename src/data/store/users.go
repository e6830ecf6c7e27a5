package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ltyyb/surveybot/src/shared/survey"
	"gorm.io/gorm"
)

// Users is the directory linking chat identities to survey users.
type Users struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUsers returns a user directory over db.
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db, now: time.Now}
}

// Register returns the user for externalID, creating it when missing. The
// boolean reports whether a new row was created.
func (u *Users) Register(ctx context.Context, externalID string) (*survey.User, bool, error) {
	if existing, err := u.ByExternalID(ctx, externalID); err == nil {
		return existing, false, nil
	} else if !IsNotFound(err) {
		return nil, false, err
	}

	user := survey.User{
		UserID:         NewID(),
		ExternalUserID: externalID,
		CreatedAt:      u.now(),
	}
	if err := u.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicate(err) {
			// A concurrent registration won; return its row.
			existing, lookupErr := u.ByExternalID(ctx, externalID)
			return existing, false, lookupErr
		}
		return nil, false, fmt.Errorf("register %s: %w", externalID, err)
	}
	return &user, true, nil
}

// RegisterWithID stores a user whose ID was issued elsewhere, such as the web
// registration handshake. An existing identical pair is accepted.
func (u *Users) RegisterWithID(ctx context.Context, userID, externalID string) error {
	user := survey.User{UserID: userID, ExternalUserID: externalID, CreatedAt: u.now()}
	err := u.db.WithContext(ctx).Create(&user).Error
	if err == nil {
		return nil
	}
	if isDuplicate(err) {
		existing, lookupErr := u.ByID(ctx, userID)
		if lookupErr == nil && existing.ExternalUserID == externalID {
			return nil
		}
		return fmt.Errorf("register %s: identity already bound", externalID)
	}
	return fmt.Errorf("register %s: %w", externalID, err)
}

// ByID looks up a user by internal ID.
func (u *Users) ByID(ctx context.Context, userID string) (*survey.User, error) {
	var user survey.User
	if err := u.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// ByExternalID looks up a user by chat identity.
func (u *Users) ByExternalID(ctx context.Context, externalID string) (*survey.User, error) {
	var user survey.User
	if err := u.db.WithContext(ctx).Where("external_user_id = ?", externalID).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// IsVerified reports whether the chat identity passed review or was trusted.
func (u *Users) IsVerified(ctx context.Context, externalID string) (bool, error) {
	user, err := u.ByExternalID(ctx, externalID)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return user.IsVerified, nil
}

// SetVerified updates the flag and reports whether the row changed.
func (u *Users) SetVerified(ctx context.Context, userID string, verified bool) (bool, error) {
	res := u.db.WithContext(ctx).Model(&survey.User{}).
		Where("user_id = ? AND is_verified = ?", userID, !verified).
		Update("is_verified", verified)
	if res.Error != nil {
		return false, fmt.Errorf("set verified %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if _, err := u.ByID(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}
