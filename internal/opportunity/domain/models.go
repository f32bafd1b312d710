package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Type string

const (
	TypeJobOpportunity        Type = "JOB_OPPORTUNITY"
	TypeTalentProfile         Type = "TALENT_PROFILE"
	TypeCoFounderOpportunity  Type = "CO_FOUNDER_OPPORTUNITY"
	TypeCoFounderProfile      Type = "CO_FOUNDER_PROFILE"
	TypeBusinessIdea          Type = "BUSINESS_IDEA"
	TypeSupportOffer          Type = "SUPPORT_OFFER"
	TypeServiceListing        Type = "SERVICE_LISTING"
	TypeServiceRequest        Type = "SERVICE_REQUEST"
	TypeDealFlow              Type = "DEAL_FLOW"
	TypeInvestorThesis        Type = "INVESTOR_THESIS"
	TypeInvestorProfile       Type = "INVESTOR_PROFILE"
	TypeFundingOpportunity    Type = "FUNDING_OPPORTUNITY"
	TypeEvent                 Type = "EVENT"
	TypeCallForStartups       Type = "CALL_FOR_STARTUPS"
	TypeMentorshipOffer       Type = "MENTORSHIP_BA_OFFER"
	TypeProjectSeekingSupport Type = "PROJECT_SEEKING_SUPPORT"
	TypeVentureProgram        Type = "VENTURE_PROGRAM"
	TypeChillWorkSpot         Type = "CHILL_WORK_SPOT"
	TypeMarketAdvisor         Type = "MARKET_ADVISOR"
)

var validTypes = map[Type]struct{}{
	TypeJobOpportunity:        {},
	TypeTalentProfile:         {},
	TypeCoFounderOpportunity:  {},
	TypeCoFounderProfile:      {},
	TypeBusinessIdea:          {},
	TypeSupportOffer:          {},
	TypeServiceListing:        {},
	TypeServiceRequest:        {},
	TypeDealFlow:              {},
	TypeInvestorThesis:        {},
	TypeInvestorProfile:       {},
	TypeFundingOpportunity:    {},
	TypeEvent:                 {},
	TypeCallForStartups:       {},
	TypeMentorshipOffer:       {},
	TypeProjectSeekingSupport: {},
	TypeVentureProgram:        {},
	TypeChillWorkSpot:         {},
	TypeMarketAdvisor:         {},
}

func (t Type) Valid() bool {
	_, ok := validTypes[t]
	return ok
}

type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
	StatusClosed   Status = "CLOSED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusActive, StatusArchived, StatusClosed:
		return true
	}
	return false
}

// Opportunity is a listing candidates can apply to. OwnerID never changes
// after creation.
type Opportunity struct {
	ID                snowflake.ID                `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OwnerID           snowflake.ID                `gorm:"column:owner_id;not null;index" json:"owner_id"`
	Name              string                      `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Slug              string                      `gorm:"column:slug;type:varchar(255);not null;uniqueIndex" json:"slug"`
	Punchline         *string                     `gorm:"column:punchline;type:text" json:"punchline,omitempty"`
	Description       *string                     `gorm:"column:description;type:text" json:"description,omitempty"`
	Type              Type                        `gorm:"column:type;type:varchar(48);not null;index" json:"type"`
	Status            Status                      `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	City              *string                     `gorm:"column:city;type:varchar(120)" json:"city,omitempty"`
	Country           *string                     `gorm:"column:country;type:varchar(120)" json:"country,omitempty"`
	Region            *string                     `gorm:"column:region;type:varchar(120)" json:"region,omitempty"`
	Remote            bool                        `gorm:"column:remote;not null" json:"remote"`
	StartDate         *time.Time                  `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate           *time.Time                  `gorm:"column:end_date" json:"end_date,omitempty"`
	ExpirationDate    *time.Time                  `gorm:"column:expiration_date" json:"expiration_date,omitempty"`
	URL               *string                     `gorm:"column:url;type:text" json:"url,omitempty"`
	Tags              datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`
	Industries        datatypes.JSONSlice[string] `gorm:"column:industries" json:"industries"`
	Markets           datatypes.JSONSlice[string] `gorm:"column:markets" json:"markets"`
	Price             *float64                    `gorm:"column:price" json:"price,omitempty"`
	Currency          *string                     `gorm:"column:currency;type:varchar(8)" json:"currency,omitempty"`
	ReferralAvailable bool                        `gorm:"column:referral_available;not null" json:"referral_available"`
	ReferralAmount    *float64                    `gorm:"column:referral_amount" json:"referral_amount,omitempty"`
	CreatedAt         time.Time                   `gorm:"column:created_at;not null;index" json:"created_at"`
	UpdatedAt         time.Time                   `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Opportunity) TableName() string { return "opportunities" }

// OwnerSummary is the public view of an opportunity owner.
type OwnerSummary struct {
	ID        snowflake.ID `json:"id"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
}

type OpportunityWithOwner struct {
	Opportunity
	Owner OwnerSummary `json:"owner"`
}
