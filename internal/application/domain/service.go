package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	OpportunityID    snowflake.ID
	Title            *string
	GoalLetter       *string
	ReferralCodeUsed *string
}

// UpdateRequest leaves nil fields unchanged.
type UpdateRequest struct {
	ID               snowflake.ID
	Title            *string
	GoalLetter       *string
	ReferralCodeUsed *string
}

type SubmitRequest struct {
	ID snowflake.ID
}

type ReviewRequest struct {
	ID             snowflake.ID
	Stage          Stage
	FeedbackTitle  *string
	ReviewFeedback *string
}

type ListByOpportunityRequest struct {
	OpportunityID snowflake.ID
}

type ListForCandidateRequest struct {
	CandidateID snowflake.ID
}

// Service is the application lifecycle engine. The caller is always taken
// from the request context.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (Application, error)
	Update(ctx context.Context, req UpdateRequest) (Application, error)
	Submit(ctx context.Context, req SubmitRequest) (Application, error)
	Review(ctx context.Context, req ReviewRequest) (Application, error)
	ListByOpportunityForOwner(ctx context.Context, req ListByOpportunityRequest) ([]ApplicationWithCandidate, error)
	ListForCandidate(ctx context.Context, req ListForCandidateRequest) ([]ApplicationWithOpportunity, error)
}

// OpportunityDirectory answers ownership questions about opportunities.
// GetOwnerID returns ErrOpportunityNotFound when the opportunity does not exist.
type OpportunityDirectory interface {
	GetOwnerID(ctx context.Context, opportunityID snowflake.ID) (snowflake.ID, error)
}

// Notifier receives lifecycle events after they are committed. Calls must
// not block on delivery.
type Notifier interface {
	NotifyOwnerOfSubmission(ctx context.Context, app Application, opp OpportunityRef)
	NotifyCandidateOfReview(ctx context.Context, app Application, opp OpportunityRef, accepted bool)
}
