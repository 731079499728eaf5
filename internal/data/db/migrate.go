package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/koreafit-backend/internal/domain/ideas"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&ideas.Idea{},
	)
}
