package tenantctx

import (
	"context"
	"errors"
	"strings"
)

type keyType string

const (
	UserIDKey keyType = "user_id"
)

// WithUserID stores the tenant user id supplied by the auth layer.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, strings.TrimSpace(userID))
}

func UserID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(UserIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// ErrMissingUserID is returned when a tenant-scoped call has no user id.
var ErrMissingUserID = errors.New("missing_user_id")
