package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/roomlease/internal/auth/token"
	"github.com/smallbiznis/roomlease/internal/identity"
	obscontext "github.com/smallbiznis/roomlease/internal/observability/context"
)

const contextCallerKey = "caller"

// AuthRequired rejects requests without a valid bearer token.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := token.FromHeader(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		caller, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		setCaller(c, caller)
		c.Next()
	}
}

// OptionalAuth resolves the caller when a bearer token is present. An
// invalid token is still rejected.
func (s *Server) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := token.FromHeader(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		caller, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		setCaller(c, caller)
		c.Next()
	}
}

func setCaller(c *gin.Context, caller identity.CallerIdentity) {
	c.Set(contextCallerKey, caller)
	ctx := obscontext.WithActor(c.Request.Context(), caller.Role.String(), caller.ActorID())
	c.Request = c.Request.WithContext(ctx)
}

// callerFrom returns the anonymous caller when no middleware set one.
func callerFrom(c *gin.Context) identity.CallerIdentity {
	value, ok := c.Get(contextCallerKey)
	if !ok {
		return identity.CallerIdentity{}
	}
	caller, _ := value.(identity.CallerIdentity)
	return caller
}

// CORS allows local frontends plus any configured origins.
func CORS(allowed []string) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origins[strings.TrimRight(strings.TrimSpace(origin), "/")] = struct{}{}
	}

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if isLocalOrigin(origin) {
				return true
			}
			_, ok := origins[strings.TrimRight(origin, "/")]
			return ok
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
	})
}

func isLocalOrigin(origin string) bool {
	for _, prefix := range []string{"http://localhost", "http://127.0.0.1", "https://localhost"} {
		if origin == prefix || strings.HasPrefix(origin, prefix+":") {
			return true
		}
	}
	return false
}
