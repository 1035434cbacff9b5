package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flocknet/flock/internal/engine"
	"github.com/flocknet/flock/pkg/telemetry"
)

// Identity headers set by the upstream gateway after it authenticates a
// request. This service trusts them; it never sees credentials.
const (
	HeaderAccount = "X-Flock-Account"
	HeaderRole    = "X-Flock-Role"
)

const identityKey = "flock.identity"

// withIdentity parses the gateway identity headers when present.
// Requests without them stay anonymous; handlers that need a caller sit
// behind requireIdentity.
func (r *Router) withIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderAccount)
		if raw == "" {
			c.Next()
			return
		}
		accountID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || accountID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Kind:  "unauthorized",
				Error: "malformed identity header",
			})
			return
		}
		c.Set(identityKey, engine.Identity{
			AccountID: accountID,
			Role:      parseRole(c.GetHeader(HeaderRole)),
		})
		c.Next()
	}
}

// requireIdentity rejects requests the gateway did not authenticate
func (r *Router) requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(identityKey); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Kind:  "unauthorized",
				Error: "authentication required",
			})
			return
		}
		c.Next()
	}
}

// currentIdentity returns the caller identity, zero for anonymous
func currentIdentity(c *gin.Context) engine.Identity {
	if v, ok := c.Get(identityKey); ok {
		if ident, ok := v.(engine.Identity); ok {
			return ident
		}
	}
	return engine.Identity{}
}

// parseRole maps the role header to a role. Unknown values fall back to
// the least privileged rather than erroring.
func parseRole(raw string) engine.Role {
	switch engine.Role(raw) {
	case engine.RoleModerator:
		return engine.RoleModerator
	case engine.RoleAdmin:
		return engine.RoleAdmin
	default:
		return engine.RoleUser
	}
}

// traceRequests opens a span per request so handler latency lines up
// with the store and webhook spans in traces
func (r *Router) traceRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), c.Request.Method+" "+c.FullPath())
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
