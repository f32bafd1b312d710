package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	oppdomain "github.com/dfund/marketplace/internal/opportunity/domain"
	"github.com/gin-gonic/gin"
)

type opportunityFields struct {
	Punchline      *string    `json:"punchline" validate:"omitempty,max=500"`
	Description    *string    `json:"description" validate:"omitempty,max=20000"`
	City           *string    `json:"city" validate:"omitempty,max=120"`
	Country        *string    `json:"country" validate:"omitempty,max=120"`
	Region         *string    `json:"region" validate:"omitempty,max=120"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	ExpirationDate *time.Time `json:"expiration_date"`
	URL            *string    `json:"url" validate:"omitempty,url"`
	Tags           []string   `json:"tags" validate:"omitempty,max=50,dive,max=64"`
	Industries     []string   `json:"industries" validate:"omitempty,max=50,dive,max=64"`
	Markets        []string   `json:"markets" validate:"omitempty,max=50,dive,max=64"`
	Price          *float64   `json:"price"`
	Currency       *string    `json:"currency" validate:"omitempty,len=3"`
	ReferralAmount *float64   `json:"referral_amount"`
}

type CreateOpportunityRequest struct {
	opportunityFields
	Name              string `json:"name" validate:"required"`
	Type              string `json:"type" validate:"required"`
	Status            string `json:"status"`
	Remote            bool   `json:"remote"`
	ReferralAvailable bool   `json:"referral_available"`
}

type UpdateOpportunityRequest struct {
	opportunityFields
	Name              *string `json:"name"`
	Type              *string `json:"type"`
	Status            *string `json:"status"`
	Remote            *bool   `json:"remote"`
	ReferralAvailable *bool   `json:"referral_available"`
}

func (s *Server) ListOpportunities(c *gin.Context) {
	req, err := parseOpportunityListQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.opportunitySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

func (s *Server) ListOpportunitiesByOwner(c *gin.Context) {
	ownerID, err := parseIDParam(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req, err := parseOpportunityListQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req.OwnerID = ownerID

	resp, err := s.opportunitySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

func (s *Server) GetOpportunityByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.opportunitySvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

func (s *Server) CreateOpportunity(c *gin.Context) {
	var req CreateOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		AbortWithError(c, fromValidator(err))
		return
	}

	item, err := s.opportunitySvc.Create(c.Request.Context(), oppdomain.CreateRequest{
		Name:              req.Name,
		Punchline:         req.Punchline,
		Description:       req.Description,
		Type:              oppdomain.Type(strings.TrimSpace(req.Type)),
		Status:            oppdomain.Status(strings.TrimSpace(req.Status)),
		City:              req.City,
		Country:           req.Country,
		Region:            req.Region,
		Remote:            req.Remote,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		ExpirationDate:    req.ExpirationDate,
		URL:               req.URL,
		Tags:              req.Tags,
		Industries:        req.Industries,
		Markets:           req.Markets,
		Price:             req.Price,
		Currency:          req.Currency,
		ReferralAvailable: req.ReferralAvailable,
		ReferralAmount:    req.ReferralAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusCreated, item)
}

func (s *Server) UpdateOpportunity(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req UpdateOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		AbortWithError(c, fromValidator(err))
		return
	}

	update := oppdomain.UpdateRequest{
		ID:                id,
		Name:              req.Name,
		Punchline:         req.Punchline,
		Description:       req.Description,
		City:              req.City,
		Country:           req.Country,
		Region:            req.Region,
		Remote:            req.Remote,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		ExpirationDate:    req.ExpirationDate,
		URL:               req.URL,
		Tags:              req.Tags,
		Industries:        req.Industries,
		Markets:           req.Markets,
		Price:             req.Price,
		Currency:          req.Currency,
		ReferralAvailable: req.ReferralAvailable,
		ReferralAmount:    req.ReferralAmount,
	}
	if req.Type != nil {
		t := oppdomain.Type(strings.TrimSpace(*req.Type))
		update.Type = &t
	}
	if req.Status != nil {
		st := oppdomain.Status(strings.TrimSpace(*req.Status))
		update.Status = &st
	}

	item, err := s.opportunitySvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

func (s *Server) DeleteOpportunity(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.opportunitySvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseOpportunityListQuery(c *gin.Context) (oppdomain.ListRequest, error) {
	req := oppdomain.ListRequest{
		Status: oppdomain.Status(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Type:   oppdomain.Type(strings.ToUpper(strings.TrimSpace(c.Query("type")))),
		Search: strings.TrimSpace(c.Query("search")),
	}

	skip, err := parseOptionalInt(c.Query("skip"))
	if err != nil {
		return req, newValidationError("skip", "invalid_skip", "invalid skip")
	}
	take, err := parseOptionalInt(c.Query("take"))
	if err != nil {
		return req, newValidationError("take", "invalid_take", "invalid take")
	}
	ownerID, err := parseOptionalSnowflakeID(c.Query("owner_id"))
	if err != nil {
		return req, newValidationError("owner_id", "invalid_owner_id", "invalid owner_id")
	}

	if skip != nil {
		req.Skip = *skip
	}
	if take != nil {
		req.Take = *take
	}
	if ownerID != nil {
		req.OwnerID = *ownerID
	}
	return req, nil
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := parseOptionalSnowflakeID(c.Param(name))
	if err != nil || id == nil {
		return 0, newValidationError(name, "invalid_id", "invalid "+name)
	}
	return *id, nil
}
