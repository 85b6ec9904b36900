package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ActorHeader carries the caller identity asserted by the upstream gateway.
	ActorHeader = "X-Actor-ID"
	// ContextActorKey is the gin context key storing the actor ID.
	ContextActorKey = "actorID"
)

// Actor copies the gateway-asserted caller identity onto the context. The
// header is trusted as-is; requests without it carry no actor.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := strings.TrimSpace(c.GetHeader(ActorHeader)); actor != "" {
			c.Set(ContextActorKey, actor)
		}
		c.Next()
	}
}

// ActorID returns the caller identity, or "" when none was asserted.
func ActorID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(ContextActorKey)
}
