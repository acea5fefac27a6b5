package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/mailroom/internal/observability/context"
	"github.com/smallbiznis/mailroom/pkg/tenantctx"
)

const (
	HeaderUserID  = "X-User-ID"
	HeaderActorID = "X-Actor-ID"
)

// TenantRequired scopes the request to the mailroom owner named by the
// X-User-ID header. Authentication happens upstream.
func TenantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := tenantctx.WithUserID(c.Request.Context(), userID)
		if actor := strings.TrimSpace(c.GetHeader(HeaderActorID)); actor != "" {
			ctx = obscontext.WithActor(ctx, actor)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
