// Package store persists survey responses, votes, users and request links.
// Every state transition is a single conditional statement so that several
// bot instances can share one database without in-process locking.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ltyyb/surveybot/src/logging"
	"github.com/ltyyb/surveybot/src/shared/survey"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const insertAttempts = 3

// ResponseStore is the persistence layer for responses and their archive.
type ResponseStore struct {
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time
}

// NewResponseStore returns a store over db.
func NewResponseStore(db *gorm.DB) *ResponseStore {
	return &ResponseStore{db: db, log: logging.For("store"), now: time.Now}
}

// Insert stores a new response and returns its ID. When the caller leaves the
// ID empty one is generated, and a short ID collision with an active response
// is retried with a fresh ID.
func (s *ResponseStore) Insert(ctx context.Context, r *survey.Response) (string, error) {
	if r == nil {
		return "", fmt.Errorf("store: nil response")
	}
	generated := r.ResponseID == ""
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	for attempt := 1; ; attempt++ {
		if generated {
			r.ResponseID = NewID()
		}
		r.ShortID = ShortOf(r.ResponseID)

		err := s.db.WithContext(ctx).Create(r).Error
		if err == nil {
			return r.ResponseID, nil
		}
		if !isDuplicate(err) {
			return "", fmt.Errorf("insert response: %w", err)
		}

		if _, lookupErr := s.ActiveByExternalUser(ctx, r.ExternalUserID); lookupErr == nil {
			return "", survey.ErrDuplicateSubmission
		}
		if !generated || attempt >= insertAttempts {
			return "", fmt.Errorf("insert response %s: %w", r.ResponseID, survey.ErrShortIDTaken)
		}
		s.log.Info().Str("short_id", r.ShortID).Int("attempt", attempt).Msg("insert: short id collision, regenerating")
	}
}

// Get returns the active response with the exact ID.
func (s *ResponseStore) Get(ctx context.Context, responseID string) (*survey.Response, error) {
	var r survey.Response
	if err := s.db.WithContext(ctx).Where("response_id = ?", responseID).First(&r).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// GetArchived returns the archived response with the exact ID.
func (s *ResponseStore) GetArchived(ctx context.Context, responseID string) (*survey.ArchivedResponse, error) {
	var r survey.ArchivedResponse
	if err := s.db.WithContext(ctx).Where("response_id = ?", responseID).First(&r).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// ActiveByExternalUser returns the live response owned by a chat identity.
func (s *ResponseStore) ActiveByExternalUser(ctx context.Context, externalUserID string) (*survey.Response, error) {
	var r survey.Response
	if err := s.db.WithContext(ctx).Where("external_user_id = ?", externalUserID).First(&r).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// MarkPushed flips is_pushed from false to true. It reports false when a peer
// already did so; the caller must then skip the notification.
func (s *ResponseStore) MarkPushed(ctx context.Context, responseID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&survey.Response{}).
		Where("response_id = ? AND is_pushed = ?", responseID, false).
		Update("is_pushed", true)
	if res.Error != nil {
		return false, fmt.Errorf("mark pushed %s: %w", responseID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkReviewed records the final outcome once. expireAt is only stored for rejections.
func (s *ResponseStore) MarkReviewed(ctx context.Context, responseID string, outcome survey.Outcome, reviewedAt time.Time, expireAt *time.Time) (bool, error) {
	if outcome != survey.OutcomeApproved && outcome != survey.OutcomeRejected {
		return false, fmt.Errorf("mark reviewed %s: invalid outcome %q", responseID, outcome)
	}
	updates := map[string]interface{}{
		"is_reviewed": true,
		"outcome":     outcome,
		"reviewed_at": reviewedAt,
	}
	if outcome == survey.OutcomeRejected && expireAt != nil {
		updates["expire_at"] = *expireAt
	}

	res := s.db.WithContext(ctx).Model(&survey.Response{}).
		Where("response_id = ? AND is_reviewed = ?", responseID, false).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("mark reviewed %s: %w", responseID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SetDisabled flips the disabled flag. It reports false when the flag already
// had the requested value.
func (s *ResponseStore) SetDisabled(ctx context.Context, responseID string, disabled bool) (bool, error) {
	res := s.db.WithContext(ctx).Model(&survey.Response{}).
		Where("response_id = ? AND is_disabled = ?", responseID, !disabled).
		Update("is_disabled", disabled)
	if res.Error != nil {
		return false, fmt.Errorf("set disabled %s: %w", responseID, res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if _, err := s.Get(ctx, responseID); err != nil {
		return false, err
	}
	return false, nil
}

// Archive moves a response into the archive table. The insert and the delete
// share a transaction: a failed insert never deletes the source row.
func (s *ResponseStore) Archive(ctx context.Context, responseID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r survey.Response
		if err := tx.Where("response_id = ?", responseID).First(&r).Error; err != nil {
			return notFound(err)
		}

		archived := r.Archived(s.now())
		if err := tx.Create(&archived).Error; err != nil {
			return fmt.Errorf("archive %s: insert: %w", responseID, err)
		}

		res := tx.Where("response_id = ?", responseID).Delete(&survey.Response{})
		if res.Error != nil || res.RowsAffected != 1 {
			s.log.Error().Err(res.Error).Str("response_id", responseID).Int64("rows", res.RowsAffected).
				Msg("archive: row copied but source delete failed, manual check required")
			return fmt.Errorf("archive %s: %w", responseID, survey.ErrIntegrity)
		}
		return nil
	})
}

// Restore moves an archived response back. It fails with ErrShortIDTaken or
// ErrDuplicateSubmission when an active row already claims the short ID or the
// owner, leaving the archive untouched.
func (s *ResponseStore) Restore(ctx context.Context, responseID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a survey.ArchivedResponse
		if err := tx.Where("response_id = ?", responseID).First(&a).Error; err != nil {
			return notFound(err)
		}

		var clash int64
		if err := tx.Model(&survey.Response{}).Where("short_id = ?", a.ShortID).Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			return fmt.Errorf("restore %s: %w", responseID, survey.ErrShortIDTaken)
		}
		if err := tx.Model(&survey.Response{}).Where("external_user_id = ?", a.ExternalUserID).Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			return fmt.Errorf("restore %s: %w", responseID, survey.ErrDuplicateSubmission)
		}

		active := a.Active()
		if err := tx.Create(&active).Error; err != nil {
			if isDuplicate(err) {
				return fmt.Errorf("restore %s: %w", responseID, survey.ErrShortIDTaken)
			}
			return fmt.Errorf("restore %s: insert: %w", responseID, err)
		}

		res := tx.Where("response_id = ?", responseID).Delete(&survey.ArchivedResponse{})
		if res.Error != nil || res.RowsAffected != 1 {
			s.log.Error().Err(res.Error).Str("response_id", responseID).Int64("rows", res.RowsAffected).
				Msg("restore: row copied but archive delete failed, manual check required")
			return fmt.Errorf("restore %s: %w", responseID, survey.ErrIntegrity)
		}
		return nil
	})
}

// HardDelete permanently removes a response from both tables with its votes.
func (s *ResponseStore) HardDelete(ctx context.Context, responseID string) (bool, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("response_id = ?", responseID).Delete(&survey.Response{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected
		res = tx.Where("response_id = ?", responseID).Delete(&survey.ArchivedResponse{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected
		return tx.Where("response_id = ?", responseID).Delete(&survey.Vote{}).Error
	})
	if err != nil {
		return false, fmt.Errorf("hard delete %s: %w", responseID, err)
	}
	return removed > 0, nil
}

const expiredWhere = "is_reviewed = ? AND outcome = ? AND expire_at IS NOT NULL AND expire_at <= ?"

// DeleteExpired removes a rejected response whose retention deadline is at or
// before now, from the active table or the archive. It reports false when the
// row is gone or not yet due.
func (s *ResponseStore) DeleteExpired(ctx context.Context, responseID string, now time.Time) (bool, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&survey.Response{}, &survey.ArchivedResponse{}} {
			res := tx.Where("response_id = ? AND "+expiredWhere, responseID, true, survey.OutcomeRejected, now).
				Delete(model)
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
		}
		if removed == 0 {
			return nil
		}
		return tx.Where("response_id = ?", responseID).Delete(&survey.Vote{}).Error
	})
	if err != nil {
		return false, fmt.Errorf("delete expired %s: %w", responseID, err)
	}
	return removed > 0, nil
}

// ListUnpushed returns responses whose moderation notice has not gone out.
func (s *ResponseStore) ListUnpushed(ctx context.Context) ([]survey.Response, error) {
	return s.list(ctx, "is_pushed = ?", false)
}

// ListUnreviewed returns responses without a final outcome.
func (s *ResponseStore) ListUnreviewed(ctx context.Context) ([]survey.Response, error) {
	return s.list(ctx, "is_reviewed = ?", false)
}

// ListExpired returns rejected responses whose retention deadline has passed.
// Archiving does not stop the clock, so archived rows are included.
func (s *ResponseStore) ListExpired(ctx context.Context, now time.Time) ([]survey.Response, error) {
	out, err := s.list(ctx, expiredWhere, true, survey.OutcomeRejected, now)
	if err != nil {
		return nil, err
	}
	var archived []survey.ArchivedResponse
	if err := s.db.WithContext(ctx).Where(expiredWhere, true, survey.OutcomeRejected, now).
		Order("created_at").Find(&archived).Error; err != nil {
		return nil, err
	}
	for _, a := range archived {
		out = append(out, a.Active())
	}
	return out, nil
}

func (s *ResponseStore) list(ctx context.Context, query string, args ...interface{}) ([]survey.Response, error) {
	var out []survey.Response
	if err := s.db.WithContext(ctx).Where(query, args...).Order("created_at").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetInsight stores generated insight text.
func (s *ResponseStore) SetInsight(ctx context.Context, responseID, insight string) error {
	res := s.db.WithContext(ctx).Model(&survey.Response{}).
		Where("response_id = ?", responseID).
		Update("insight", insight)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return survey.ErrNotFound
	}
	return nil
}

// IsNotFound reports whether err is a missing-row error from this package.
func IsNotFound(err error) bool {
	return errors.Is(err, survey.ErrNotFound)
}
