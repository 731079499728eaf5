package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/koreafit-backend/internal/data/db"
	idearepo "github.com/yungbote/koreafit-backend/internal/data/repos/ideas"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
)

type Repos struct {
	Ideas idearepo.IdeaStore
}

// openDB returns nil for the memory driver.
func openDB(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case DriverPostgres:
		pg, err := db.NewPostgresService(log, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if err := pg.AutoMigrateAll(); err != nil {
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
		return pg.DB(), nil
	case DriverSQLite:
		lite, err := db.NewSQLiteService(log, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		if err := lite.AutoMigrateAll(); err != nil {
			return nil, fmt.Errorf("sqlite automigrate: %w", err)
		}
		return lite.DB(), nil
	default:
		return nil, nil
	}
}

func wireRepos(theDB *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	if theDB == nil {
		return Repos{Ideas: idearepo.NewMemoryStore(log)}
	}
	return Repos{Ideas: idearepo.NewGormStore(theDB, log)}
}
