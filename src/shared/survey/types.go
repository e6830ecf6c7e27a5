package survey

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// ResponseIDLength is the length of every generated response, user and request identifier.
	ResponseIDLength = 30
	// ShortIDLength is the prefix of a response ID used in chat commands.
	ShortIDLength = 8
)

// Outcome is the final review decision of a response.
type Outcome string

const (
	OutcomePending  Outcome = ""
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

// VoteValue is a moderator's stance on a response.
type VoteValue string

const (
	VoteAgree VoteValue = "agree"
	VoteDeny  VoteValue = "deny"
)

// Valid reports whether v is one of the accepted vote values.
func (v VoteValue) Valid() bool {
	return v == VoteAgree || v == VoteDeny
}

// ResponseFields holds the columns shared by active and archived responses.
type ResponseFields struct {
	ResponseID    string         `gorm:"primaryKey;size:30" json:"responseId"`
	UserID        string         `gorm:"size:30;index;not null" json:"userId"`
	SurveyVersion string         `gorm:"size:32;not null" json:"surveyVersion"`
	Answers       datatypes.JSON `gorm:"not null" json:"answers"`
	Insight       *string        `gorm:"type:text" json:"insight,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"createdAt"`
	IsPushed      bool           `gorm:"not null;default:false;index" json:"isPushed"`
	IsReviewed    bool           `gorm:"not null;default:false;index" json:"isReviewed"`
	IsDisabled    bool           `gorm:"not null;default:false" json:"isDisabled"`
	Outcome       Outcome        `gorm:"size:16;not null;default:''" json:"outcome"`
	ReviewedAt    *time.Time     `json:"reviewedAt,omitempty"`
	ExpireAt      *time.Time     `gorm:"index" json:"expireAt,omitempty"`
}

// Response is one survey submission awaiting or past moderation. An external
// identity owns at most one active response.
type Response struct {
	ResponseFields
	ShortID        string `gorm:"size:8;uniqueIndex;not null" json:"shortId"`
	ExternalUserID string `gorm:"size:64;uniqueIndex;not null" json:"externalUserId"`
}

func (Response) TableName() string { return "responses" }

// ArchivedResponse is a soft-deleted response. Short IDs are not unique here.
type ArchivedResponse struct {
	ResponseFields
	ShortID        string    `gorm:"size:8;index;not null" json:"shortId"`
	ExternalUserID string    `gorm:"size:64;index;not null" json:"externalUserId"`
	ArchivedAt     time.Time `gorm:"not null" json:"archivedAt"`
}

func (ArchivedResponse) TableName() string { return "archived_responses" }

// Vote is a single voter's current stance on a response.
type Vote struct {
	ResponseID string    `gorm:"primaryKey;size:30"`
	VoterID    string    `gorm:"primaryKey;size:64"`
	Value      VoteValue `gorm:"size:8;not null"`
	VotedAt    time.Time `gorm:"not null"`
}

func (Vote) TableName() string { return "response_votes" }

// User links a chat identity to an internal survey user.
type User struct {
	UserID         string    `gorm:"primaryKey;size:30" json:"userId"`
	ExternalUserID string    `gorm:"size:64;uniqueIndex;not null" json:"externalUserId"`
	IsVerified     bool      `gorm:"not null;default:false" json:"isVerified"`
	CreatedAt      time.Time `gorm:"not null" json:"createdAt"`
}

func (User) TableName() string { return "survey_users" }

// RequestLink is a short-lived token handed out in a survey link.
type RequestLink struct {
	RequestID string    `gorm:"primaryKey;size:30"`
	UserID    string    `gorm:"size:30;index;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (RequestLink) TableName() string { return "request_links" }

// Setting represents a configuration setting stored in the database
type Setting struct {
	ID     uint16 `gorm:"primaryKey"`
	Name   string `gorm:"size:64;uniqueIndex;not null"`
	Value  string `gorm:"type:text;not null"`
	Active bool   `gorm:"not null;default:true"`
}

// Models lists every table managed by the bot, in migration order.
func Models() []interface{} {
	return []interface{}{
		&Setting{}, &User{}, &RequestLink{},
		&Response{}, &ArchivedResponse{}, &Vote{},
	}
}

// Archived copies r into its archive shape.
func (r Response) Archived(at time.Time) ArchivedResponse {
	return ArchivedResponse{
		ResponseFields: r.ResponseFields,
		ShortID:        r.ShortID,
		ExternalUserID: r.ExternalUserID,
		ArchivedAt:     at,
	}
}

// Active copies an archived row back into the primary shape.
func (a ArchivedResponse) Active() Response {
	return Response{ResponseFields: a.ResponseFields, ShortID: a.ShortID, ExternalUserID: a.ExternalUserID}
}

// Tally is the current vote count of a response.
type Tally struct {
	Agree int64
	Deny  int64
}

// Total returns the number of distinct voters.
func (t Tally) Total() int64 { return t.Agree + t.Deny }
