package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/ltyyb/surveybot/src/shared/survey"
	"gorm.io/gorm"
)

// Scope selects which table a short ID is resolved against.
type Scope int

const (
	ScopeActive Scope = iota
	ScopeArchived
)

func (s Scope) String() string {
	if s == ScopeArchived {
		return "archived"
	}
	return "active"
}

// Resolver maps short IDs to full response IDs. It never writes.
type Resolver struct {
	db *gorm.DB
}

// NewResolver returns a resolver over db.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve returns the full response ID for id. Identifiers that already have
// full length are returned unchanged without touching the database.
func (r *Resolver) Resolve(ctx context.Context, id string, scope Scope) (string, error) {
	if len(id) >= survey.ResponseIDLength {
		return id, nil
	}
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return "", survey.ErrNotFound
	}

	var model interface{} = &survey.Response{}
	if scope == ScopeArchived {
		model = &survey.ArchivedResponse{}
	}

	var ids []string
	err := r.db.WithContext(ctx).Model(model).
		Where("short_id = ?", id).
		Order("created_at DESC").
		Limit(1).
		Pluck("response_id", &ids).Error
	if err != nil {
		return "", fmt.Errorf("resolve %s (%s): %w", id, scope, err)
	}
	if len(ids) == 0 {
		return "", survey.ErrNotFound
	}
	return ids[0], nil
}
