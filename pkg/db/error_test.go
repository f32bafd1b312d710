package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm translated", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "pg unique violation", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "pg other code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "mysql", err: errors.New("Error 1062 (23000): Duplicate entry"), want: true},
		{name: "sqlite", err: errors.New("constraint failed: UNIQUE constraint failed: applications.opportunity_id"), want: true},
		{name: "unrelated", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicateKeyErr(tt.err))
		})
	}
}

func TestNewTestIsolated(t *testing.T) {
	first, err := NewTest()
	assert.NoError(t, err)
	second, err := NewTest()
	assert.NoError(t, err)

	assert.NoError(t, first.Exec("CREATE TABLE things (id INTEGER PRIMARY KEY)").Error)
	assert.Error(t, second.Exec("SELECT id FROM things").Error)
}
