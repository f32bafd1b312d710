package server

import (
	"net/http"
	"strings"
	"time"

	auditdomain "github.com/dfund/marketplace/internal/audit/domain"
	authdomain "github.com/dfund/marketplace/internal/auth/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=320"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Role      string `json:"role" validate:"required,oneof=entrepreneur mentor investor talent"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Session     *authdomain.SessionView `json:"session"`
	AccessToken string                  `json:"access_token"`
	TokenType   string                  `json:"token_type"`
	ExpiresAt   time.Time               `json:"expires_at"`
}

type userResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Role      authdomain.Role `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

func newUserResponse(user *authdomain.User) userResponse {
	return userResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func (s *Server) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		AbortWithError(c, fromValidator(err))
		return
	}

	user, err := s.authsvc.Register(c.Request.Context(), authdomain.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      authdomain.Role(req.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		userID := user.ID.String()
		if err := s.auditSvc.AuditLog(c.Request.Context(), auditdomain.ActorTypeUser, &userID, auditdomain.ActionUserRegister, auditdomain.TargetTypeUser, &userID, map[string]any{
			"role": string(user.Role),
		}); err != nil {
			s.log.Warn("audit user.register failed", zap.Error(err))
		}
	}

	respond(c, http.StatusCreated, newUserResponse(user))
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		AbortWithError(c, fromValidator(err))
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)

	respond(c, http.StatusOK, loginResponse{
		Session:     result.Session,
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   result.ExpiresAt,
	})
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.authsvc.GetUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, newUserResponse(user))
}
