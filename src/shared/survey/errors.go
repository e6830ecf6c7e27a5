package survey

import "errors"

var (
	ErrNotFound            = errors.New("survey: not found")
	ErrAlreadyReviewed     = errors.New("survey: response already reviewed")
	ErrDuplicateSubmission = errors.New("survey: identity already has an active response")
	ErrInvalidVersion      = errors.New("survey: unknown survey version")
	ErrShortIDTaken        = errors.New("survey: short id already in use")
	ErrInvalidVote         = errors.New("survey: invalid vote value")
	ErrUnauthorized        = errors.New("survey: admin permission required")
	ErrUnknownUser         = errors.New("survey: user is not registered")
	ErrInvalidAnswers      = errors.New("survey: answers are not a JSON object")
	// ErrIntegrity marks a partially applied move between the active and archive tables.
	ErrIntegrity = errors.New("survey: archive move left inconsistent state")
)
