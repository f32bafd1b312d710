package option

import (
	"github.com/dfund/marketplace/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a statement before it is executed.
type QueryOption interface {
	Apply(stmt *gorm.DB) *gorm.DB
}

type QueryOptionFunc func(stmt *gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(stmt *gorm.DB) *gorm.DB {
	return f(stmt)
}

// ApplyPagination limits the statement to one row past the page size so
// callers can detect whether another page exists.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return QueryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		size := page.PageSize
		if size <= 0 {
			size = pagination.DefaultPageSize
		}
		return stmt.Limit(size + 1)
	})
}

// ApplyOffset applies skip/take paging.
func ApplyOffset(skip, take int) QueryOption {
	return QueryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		if skip > 0 {
			stmt = stmt.Offset(skip)
		}
		if take > 0 {
			stmt = stmt.Limit(take)
		}
		return stmt
	})
}

// NewestFirst orders by created_at desc with id as the tie breaker.
func NewestFirst(table string) QueryOption {
	prefix := ""
	if table != "" {
		prefix = table + "."
	}
	return QueryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		return stmt.Order(prefix + "created_at DESC").Order(prefix + "id DESC")
	})
}

func Apply(stmt *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		stmt = opt.Apply(stmt)
	}
	return stmt
}
