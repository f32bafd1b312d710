package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Stage string

const (
	StageDraft       Stage = "DRAFT"
	StageSubmitted   Stage = "SUBMITTED"
	StageOwnerReview Stage = "OWNER_REVIEW"
	StageSuccess     Stage = "SUCCESS"
	StageArchived    Stage = "ARCHIVED"
)

func (s Stage) Valid() bool {
	switch s {
	case StageDraft, StageSubmitted, StageOwnerReview, StageSuccess, StageArchived:
		return true
	}
	return false
}

// IsReviewTarget reports whether an owner may move an application into s.
func (s Stage) IsReviewTarget() bool {
	switch s {
	case StageOwnerReview, StageSuccess, StageArchived:
		return true
	}
	return false
}

func (s Stage) IsTerminal() bool {
	return s == StageSuccess || s == StageArchived
}

// Application is one candidate's application to one opportunity. IsDraft
// mirrors Stage == DRAFT and IsClosed mirrors a terminal stage; both are
// persisted so list queries can filter on them.
type Application struct {
	ID               snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OpportunityID    snowflake.ID `gorm:"column:opportunity_id;not null;uniqueIndex:ux_applications_opportunity_candidate,priority:1" json:"opportunity_id"`
	CandidateID      snowflake.ID `gorm:"column:candidate_id;not null;uniqueIndex:ux_applications_opportunity_candidate,priority:2;index:idx_applications_candidate" json:"candidate_id"`
	Title            *string      `gorm:"column:title;type:text" json:"title"`
	GoalLetter       *string      `gorm:"column:goal_letter;type:text" json:"goal_letter"`
	ReferralCodeUsed *string      `gorm:"column:referral_code_used;type:varchar(64)" json:"referral_code_used"`
	Stage            Stage        `gorm:"column:stage;type:varchar(16);not null" json:"stage"`
	IsDraft          bool         `gorm:"column:is_draft;not null" json:"is_draft"`
	IsClosed         bool         `gorm:"column:is_closed;not null" json:"is_closed"`
	SubmissionDate   *time.Time   `gorm:"column:submission_date" json:"submission_date"`
	ReviewDate       *time.Time   `gorm:"column:review_date" json:"review_date"`
	ReviewFeedback   *string      `gorm:"column:review_feedback;type:text" json:"review_feedback"`
	FeedbackTitle    *string      `gorm:"column:feedback_title;type:text" json:"feedback_title"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Application) TableName() string { return "applications" }

type CandidateSummary struct {
	ID        snowflake.ID `json:"id"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Email     string       `json:"email"`
	Role      string       `json:"role"`
}

type OpportunitySummary struct {
	ID      snowflake.ID `json:"id"`
	OwnerID snowflake.ID `json:"owner_id"`
	Name    string       `json:"name"`
	Slug    string       `json:"slug"`
	Type    string       `json:"type"`
	Status  string       `json:"status"`
}

type ApplicationWithCandidate struct {
	Application
	Candidate CandidateSummary `json:"candidate"`
}

type ApplicationWithOpportunity struct {
	Application
	Opportunity OpportunitySummary `json:"opportunity"`
}

// OpportunityRef identifies the opportunity an event concerns.
type OpportunityRef struct {
	ID      snowflake.ID
	OwnerID snowflake.ID
}
