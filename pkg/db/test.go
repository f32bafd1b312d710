package db

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// NewTest opens an isolated in-memory sqlite database.
func NewTest() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:dfund_test_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", testDBSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	// A shared-cache memory database disappears when its last connection closes.
	sqlDB.SetMaxOpenConns(1)
	return conn, nil
}
