package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/dfund/marketplace/internal/auth/domain"
	obscontext "github.com/dfund/marketplace/internal/observability/context"
	"github.com/dfund/marketplace/internal/principal"
	"github.com/gin-gonic/gin"
)

const (
	contextUserIDKey    = "user_id"
	contextSessionIDKey = "session_id"
	bearerPrefix        = "bearer "
)

// AuthRequired accepts either a bearer access token or the session cookie.
// The resolved caller is placed on the request context for the services.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := s.resolveSession(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := principal.WithUserID(c.Request.Context(), session.UserID)
		ctx = principal.WithSessionID(ctx, session.ID)
		ctx = obscontext.WithActor(ctx, "user", session.UserID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Set(contextUserIDKey, session.UserID)
		c.Set(contextSessionIDKey, session.ID)
		c.Next()
	}
}

func (s *Server) resolveSession(c *gin.Context) (*authdomain.Session, error) {
	if token, ok := bearerToken(c); ok {
		return s.authsvc.ValidateAccessToken(c.Request.Context(), token)
	}

	token, ok := s.sessions.ReadToken(c)
	if !ok {
		return nil, ErrUnauthorized
	}
	return s.authsvc.Authenticate(c.Request.Context(), token)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

func userIDFromContext(c *gin.Context) (snowflake.ID, bool) {
	if value, ok := c.Get(contextUserIDKey); ok {
		if id, ok := value.(snowflake.ID); ok && id != 0 {
			return id, true
		}
	}
	return principal.UserIDFromContext(c.Request.Context())
}
