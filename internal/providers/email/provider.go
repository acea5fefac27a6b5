package email

import (
	"context"

	"github.com/google/uuid"
)

// Message is one outbound HTML notification.
type Message struct {
	To           string
	Subject      string
	HTML         string
	SenderUserID string
}

// Provider dispatches a message and returns the transport message id.
type Provider interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// NoOpProvider drops messages. It is used when no SMTP host is configured.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) (string, error) {
	return "noop-" + uuid.NewString(), nil
}
