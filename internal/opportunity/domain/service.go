package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	Name              string
	Punchline         *string
	Description       *string
	Type              Type
	Status            Status
	City              *string
	Country           *string
	Region            *string
	Remote            bool
	StartDate         *time.Time
	EndDate           *time.Time
	ExpirationDate    *time.Time
	URL               *string
	Tags              []string
	Industries        []string
	Markets           []string
	Price             *float64
	Currency          *string
	ReferralAvailable bool
	ReferralAmount    *float64
}

// UpdateRequest leaves nil fields unchanged.
type UpdateRequest struct {
	ID                snowflake.ID
	Name              *string
	Punchline         *string
	Description       *string
	Type              *Type
	Status            *Status
	City              *string
	Country           *string
	Region            *string
	Remote            *bool
	StartDate         *time.Time
	EndDate           *time.Time
	ExpirationDate    *time.Time
	URL               *string
	Tags              []string
	Industries        []string
	Markets           []string
	Price             *float64
	Currency          *string
	ReferralAvailable *bool
	ReferralAmount    *float64
}

type ListRequest struct {
	Status  Status
	Type    Type
	OwnerID snowflake.ID
	Search  string
	Skip    int
	Take    int
}

type ListResponse struct {
	Opportunities []OpportunityWithOwner `json:"opportunities"`
	Total         int64                  `json:"total"`
	Skip          int                    `json:"skip"`
	Take          int                    `json:"take"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (OpportunityWithOwner, error)
	Update(ctx context.Context, req UpdateRequest) (OpportunityWithOwner, error)
	Delete(ctx context.Context, id snowflake.ID) error
	GetByID(ctx context.Context, id snowflake.ID) (OpportunityWithOwner, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	GetOwnerID(ctx context.Context, id snowflake.ID) (snowflake.ID, error)
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("opportunity_not_found")
	ErrForbidden       = errors.New("opportunity_forbidden")
	ErrHasApplications = errors.New("opportunity_has_applications")
	ErrInvalidName     = errors.New("invalid_name")
	ErrNameTooLong     = errors.New("name_too_long")
	ErrInvalidType     = errors.New("invalid_type")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidDates    = errors.New("invalid_date_range")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidPaging   = errors.New("invalid_paging")
)
