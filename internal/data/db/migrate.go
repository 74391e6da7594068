package db

import (
	"fmt"

	types "github.com/yungbote/neurobridge-progress/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureProgressIndexes adds indexes gorm tags cannot express. The statements
// are valid on both Postgres and SQLite.
func EnsureProgressIndexes(db *gorm.DB) error {
	// lessonsCompleted snapshot counts completed rows per learner.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_page_progress_learner_completed
		ON page_progress (learner_id)
		WHERE completed = true;
	`).Error; err != nil {
		return fmt.Errorf("create idx_page_progress_learner_completed: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_certificate_learner_issued
		ON certificate (learner_id, issued_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_certificate_learner_issued: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_comment_user_active
		ON comment (user_id)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_comment_user_active: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...", "driver", s.driver)
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureProgressIndexes(s.db); err != nil {
		s.log.Error("Progress index migration failed", "error", err)
		return err
	}
	return nil
}
