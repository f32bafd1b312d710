package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status  Status
	Type    Type
	OwnerID snowflake.ID
	Search  string
	Skip    int
	Take    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, opportunity *Opportunity) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Opportunity, error)
	FindWithOwner(ctx context.Context, db *gorm.DB, id snowflake.ID) (*OpportunityWithOwner, error)
	FindOwnerID(ctx context.Context, db *gorm.DB, id snowflake.ID) (snowflake.ID, bool, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	CountApplications(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*OpportunityWithOwner, int64, error)
}
