package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ltyyb/surveybot/src/shared/survey"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteTally stores one current vote per (response, voter).
type VoteTally struct {
	db *gorm.DB
}

// NewVoteTally returns a tally over db.
func NewVoteTally(db *gorm.DB) *VoteTally {
	return &VoteTally{db: db}
}

// Record upserts the voter's stance; a repeat vote replaces value and time.
// The response row is locked for the write, so a vote never lands on a
// response that was reviewed concurrently.
func (v *VoteTally) Record(ctx context.Context, responseID, voterID string, value survey.VoteValue, at time.Time) error {
	if !value.Valid() {
		return survey.ErrInvalidVote
	}
	vote := survey.Vote{
		ResponseID: responseID,
		VoterID:    voterID,
		Value:      value,
		VotedAt:    at,
	}
	return v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r survey.Response
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("response_id", "is_reviewed").
			Where("response_id = ?", responseID).
			First(&r).Error
		if err != nil {
			return notFound(err)
		}
		if r.IsReviewed {
			return survey.ErrAlreadyReviewed
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "response_id"}, {Name: "voter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "voted_at"}),
		}).Create(&vote).Error
		if err != nil {
			return fmt.Errorf("record vote %s/%s: %w", responseID, voterID, err)
		}
		return nil
	})
}

// Tally counts distinct voters per stance.
func (v *VoteTally) Tally(ctx context.Context, responseID string) (survey.Tally, error) {
	type agg struct {
		Value string
		Count int64
	}
	var rows []agg
	err := v.db.WithContext(ctx).Model(&survey.Vote{}).
		Select("value, count(*) as count").
		Where("response_id = ?", responseID).
		Group("value").
		Scan(&rows).Error
	if err != nil {
		return survey.Tally{}, fmt.Errorf("tally %s: %w", responseID, err)
	}

	var out survey.Tally
	for _, r := range rows {
		switch survey.VoteValue(r.Value) {
		case survey.VoteAgree:
			out.Agree = r.Count
		case survey.VoteDeny:
			out.Deny = r.Count
		}
	}
	return out, nil
}

// VoteOf returns the voter's current stance, or ErrNotFound.
func (v *VoteTally) VoteOf(ctx context.Context, responseID, voterID string) (survey.VoteValue, error) {
	var vote survey.Vote
	err := v.db.WithContext(ctx).Where("response_id = ? AND voter_id = ?", responseID, voterID).First(&vote).Error
	if err != nil {
		return "", notFound(err)
	}
	return vote.Value, nil
}
