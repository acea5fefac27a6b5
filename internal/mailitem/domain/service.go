package domain

import (
	"context"
	"errors"
	"time"
)

type IntakeRequest struct {
	ContactID  string
	ItemType   string
	Quantity   int
	ReceivedAt *time.Time
}

type ChangeTypeRequest struct {
	ID       string
	ItemType string
}

type UpdateStatusRequest struct {
	ID     string
	Status string
}

type Service interface {
	Intake(context.Context, IntakeRequest) (MailItem, error)
	GetByID(context.Context, string) (MailItem, error)
	ChangeType(context.Context, ChangeTypeRequest) (MailItem, error)
	UpdateStatus(context.Context, UpdateStatusRequest) (MailItem, error)
}

var (
	ErrInvalidID       = errors.New("invalid_mail_item_id")
	ErrInvalidContact  = errors.New("invalid_contact_id")
	ErrInvalidItemType = errors.New("invalid_item_type")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrNotFound        = errors.New("mail_item_not_found")
)

func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidContact),
		errors.Is(err, ErrInvalidItemType),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidQuantity):
		return true
	default:
		return false
	}
}
