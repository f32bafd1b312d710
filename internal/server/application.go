package server

import (
	"net/http"
	"strings"

	appdomain "github.com/dfund/marketplace/internal/application/domain"
	"github.com/gin-gonic/gin"
)

type CreateApplicationRequest struct {
	OpportunityID    string  `json:"opportunity_id" validate:"required"`
	Title            *string `json:"title"`
	GoalLetter       *string `json:"goal_letter"`
	ReferralCodeUsed *string `json:"referral_code_used"`
}

type UpdateApplicationRequest struct {
	Title            *string `json:"title"`
	GoalLetter       *string `json:"goal_letter"`
	ReferralCodeUsed *string `json:"referral_code_used"`
}

type ReviewApplicationRequest struct {
	Stage          string  `json:"stage" validate:"required"`
	FeedbackTitle  *string `json:"feedback_title"`
	ReviewFeedback *string `json:"review_feedback"`
}

func (s *Server) CreateApplication(c *gin.Context) {
	var req CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		AbortWithError(c, fromValidator(err))
		return
	}

	opportunityID, err := parseOptionalSnowflakeID(req.OpportunityID)
	if err != nil || opportunityID == nil {
		AbortWithError(c, appdomain.ErrInvalidOpportunity)
		return
	}

	app, err := s.applicationSvc.Create(c.Request.Context(), appdomain.CreateRequest{
		OpportunityID:    *opportunityID,
		Title:            req.Title,
		GoalLetter:       req.GoalLetter,
		ReferralCodeUsed: req.ReferralCodeUsed,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusCreated, app)
}

func (s *Server) UpdateApplication(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, appdomain.ErrInvalidID)
		return
	}

	var req UpdateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	app, err := s.applicationSvc.Update(c.Request.Context(), appdomain.UpdateRequest{
		ID:               id,
		Title:            req.Title,
		GoalLetter:       req.GoalLetter,
		ReferralCodeUsed: req.ReferralCodeUsed,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, app)
}

func (s *Server) SubmitApplication(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, appdomain.ErrInvalidID)
		return
	}

	app, err := s.applicationSvc.Submit(c.Request.Context(), appdomain.SubmitRequest{ID: id})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, app)
}

func (s *Server) ReviewApplication(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, appdomain.ErrInvalidID)
		return
	}

	var req ReviewApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		AbortWithError(c, fromValidator(err))
		return
	}

	app, err := s.applicationSvc.Review(c.Request.Context(), appdomain.ReviewRequest{
		ID:             id,
		Stage:          appdomain.Stage(strings.ToUpper(strings.TrimSpace(req.Stage))),
		FeedbackTitle:  req.FeedbackTitle,
		ReviewFeedback: req.ReviewFeedback,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, app)
}

func (s *Server) ListApplicationsByOpportunity(c *gin.Context) {
	opportunityID, err := parseIDParam(c, "opportunityId")
	if err != nil {
		AbortWithError(c, appdomain.ErrInvalidOpportunity)
		return
	}

	items, err := s.applicationSvc.ListByOpportunityForOwner(c.Request.Context(), appdomain.ListByOpportunityRequest{
		OpportunityID: opportunityID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}

func (s *Server) ListApplicationsByCandidate(c *gin.Context) {
	candidateID, err := parseIDParam(c, "userId")
	if err != nil {
		AbortWithError(c, newValidationError("userId", "invalid_id", "invalid userId"))
		return
	}

	items, err := s.applicationSvc.ListForCandidate(c.Request.Context(), appdomain.ListForCandidateRequest{
		CandidateID: candidateID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}
