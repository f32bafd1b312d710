package domain

import (
	"context"
	"errors"
	"time"

	"github.com/dfund/marketplace/pkg/db/pagination"
)

const (
	ActionApplicationCreate = "application.create"
	ActionApplicationUpdate = "application.update"
	ActionApplicationSubmit = "application.submit"
	ActionApplicationReview = "application.review"
	ActionOpportunityCreate = "opportunity.create"
	ActionOpportunityUpdate = "opportunity.update"
	ActionOpportunityDelete = "opportunity.delete"
	ActionOpportunityExpire = "opportunity.expire"
	ActionUserRegister      = "user.register"

	TargetTypeApplication = "application"
	TargetTypeOpportunity = "opportunity"
	TargetTypeUser        = "user"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	AuditLog(ctx context.Context, actorType ActorType, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	// List returns the calling user's own entries, newest first.
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
