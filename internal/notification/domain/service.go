package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/mailroom/internal/notification/render"
)

type SendFollowUpRequest struct {
	ContactID       string `json:"-"`
	SubjectTemplate string `json:"subject"`
	BodyTemplate    string `json:"body"`
	SenderUserID    string `json:"sender_user_id"`
}

type PreviewRequest struct {
	// ContactID, when set, seeds the variables from the contact's
	// outstanding mail. Request variables override them.
	ContactID string         `json:"contact_id"`
	Subject   string         `json:"subject"`
	Body      string         `json:"body"`
	Variables map[string]any `json:"variables"`
}

type Service interface {
	SendFollowUp(context.Context, SendFollowUpRequest) (*NotificationLog, error)
	Preview(context.Context, PreviewRequest) (render.Rendered, error)
	ListHistory(ctx context.Context, contactID string, limit int) ([]NotificationLog, error)
}

var (
	ErrInvalidContact   = errors.New("invalid_contact_id")
	ErrMissingRecipient = errors.New("contact_missing_email")
	ErrEmptyTemplate    = errors.New("empty_template")
	ErrDeliveryFailed   = errors.New("notification_delivery_failed")
)

func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidContact),
		errors.Is(err, ErrMissingRecipient),
		errors.Is(err, ErrEmptyTemplate):
		return true
	default:
		return false
	}
}
