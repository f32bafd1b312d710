package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/dfund/marketplace/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm-backed store keyed by snowflake ids.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	FindByID(ctx context.Context, id snowflake.ID) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, id snowflake.ID, fields map[string]any) (int64, error)
	Delete(ctx context.Context, id snowflake.ID) (int64, error)
	Count(ctx context.Context, query *T) (int64, error)
}
