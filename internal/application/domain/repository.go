package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, app *Application) error
	// FindByID returns nil, nil when the application does not exist. With
	// forUpdate the row stays locked until the surrounding transaction ends.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*Application, error)
	FindByPair(ctx context.Context, db *gorm.DB, opportunityID, candidateID snowflake.ID) (*Application, error)
	Save(ctx context.Context, db *gorm.DB, app *Application) error
	ListByOpportunity(ctx context.Context, db *gorm.DB, opportunityID snowflake.ID) ([]ApplicationWithCandidate, error)
	ListByCandidate(ctx context.Context, db *gorm.DB, candidateID snowflake.ID) ([]ApplicationWithOpportunity, error)
}
