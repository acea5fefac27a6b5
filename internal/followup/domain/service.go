package domain

import (
	"context"
	"errors"
	"time"
)

type ListFollowUpsRequest struct {
	AsOf *time.Time
}

type Service interface {
	// ListFollowUps returns the groups that need attention, most urgent first.
	ListFollowUps(context.Context, ListFollowUpsRequest) ([]FollowUpGroup, error)
	// ContactGroup returns every unresolved item of one contact regardless
	// of notification recency.
	ContactGroup(ctx context.Context, contactID string, asOf time.Time) (FollowUpGroup, error)
}

var (
	ErrInvalidContact     = errors.New("invalid_contact_id")
	ErrContactNotFound    = errors.New("contact_not_found")
	ErrNoOutstandingItems = errors.New("no_outstanding_items")
)
