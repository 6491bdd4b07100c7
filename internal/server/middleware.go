package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vendaro/vendaro/internal/auth"
	orderdomain "github.com/vendaro/vendaro/internal/order/domain"
)

const contextActorKey = "actor"

// AuthRequired verifies the bearer token and stores the resolved actor
// on the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, auth.ErrMissingToken)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			AbortWithError(c, auth.ErrInvalidToken)
			return
		}

		actor, err := auth.ParseToken(s.cfg.AuthJWTSecret, strings.TrimSpace(token))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextActorKey, actor)
		c.Next()
	}
}

// RequireRole gates a route group to the given roles. AuthRequired must
// run first.
func (s *Server) RequireRole(roles ...orderdomain.ActorRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		AbortWithError(c, ErrForbidden)
	}
}

func actorFrom(c *gin.Context) (orderdomain.Actor, bool) {
	value, exists := c.Get(contextActorKey)
	if !exists {
		return orderdomain.Actor{}, false
	}
	actor, ok := value.(orderdomain.Actor)
	return actor, ok
}
