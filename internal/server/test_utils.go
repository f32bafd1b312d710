package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

// TestCleanup removes users whose email starts with prefix together with
// their sessions, opportunities and applications. Audit rows are kept.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "required", "prefix is required"))
		return
	}

	var removed int
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var userIDs []int64
		if err := tx.Table("users").
			Select("id").
			Where("email LIKE ?", prefix+"%").
			Scan(&userIDs).Error; err != nil {
			return err
		}
		removed = len(userIDs)
		if len(userIDs) == 0 {
			return nil
		}

		if err := tx.Exec(
			`DELETE FROM applications WHERE candidate_id IN ? OR opportunity_id IN (SELECT id FROM opportunities WHERE owner_id IN ?)`,
			userIDs, userIDs,
		).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM opportunities WHERE owner_id IN ?`, userIDs).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM sessions WHERE user_id IN ?`, userIDs).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM users WHERE id IN ?`, userIDs).Error
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("test cleanup", zap.String("prefix", prefix), zap.Int("users", removed))
	respond(c, http.StatusOK, gin.H{"users_removed": removed})
}
