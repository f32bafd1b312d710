package migration

import (
	"strings"

	"github.com/dfund/marketplace/internal/config"
	"github.com/dfund/marketplace/internal/seed"
	"github.com/dfund/marketplace/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Apply(conn, cfg.DBType); err != nil {
			return err
		}
		log.Info("database schema ready", zap.String("type", cfg.DBType))

		if cfg.Bootstrap.SeedDemoData {
			if err := seed.EnsureDemoData(conn); err != nil {
				return err
			}
			log.Info("demo data seeded")
		}
		return nil
	}),
)

// Apply brings the schema up to date for the given database type.
func Apply(conn *gorm.DB, dbType string) error {
	if strings.EqualFold(strings.TrimSpace(dbType), db.TypePostgres) {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	return AutoMigrate(conn)
}
