package repos

import (
	"github.com/yungbote/neurobridge-progress/internal/data/repos/content"
	"github.com/yungbote/neurobridge-progress/internal/data/repos/progress"
	"github.com/yungbote/neurobridge-progress/internal/data/repos/user"
	"github.com/yungbote/neurobridge-progress/internal/platform/logger"
	"gorm.io/gorm"
)

type UserRepo = user.UserRepo

type CatalogRepo = content.CatalogRepo
type CommentRepo = content.CommentRepo

type PageProgressRepo = progress.PageProgressRepo
type CourseProgressRepo = progress.CourseProgressRepo
type StreakStateRepo = progress.StreakStateRepo
type AchievementDefinitionRepo = progress.AchievementDefinitionRepo
type AchievementUnlockRepo = progress.AchievementUnlockRepo
type CertificateRepo = progress.CertificateRepo

// Set is every table repo the engine uses, built over one *gorm.DB.
type Set struct {
	Users                  UserRepo
	Catalog                CatalogRepo
	Comments               CommentRepo
	PageProgress           PageProgressRepo
	CourseProgress         CourseProgressRepo
	Streaks                StreakStateRepo
	AchievementDefinitions AchievementDefinitionRepo
	AchievementUnlocks     AchievementUnlockRepo
	Certificates           CertificateRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Users:                  user.NewUserRepo(db, log),
		Catalog:                content.NewCatalogRepo(db, log),
		Comments:               content.NewCommentRepo(db, log),
		PageProgress:           progress.NewPageProgressRepo(db, log),
		CourseProgress:         progress.NewCourseProgressRepo(db, log),
		Streaks:                progress.NewStreakStateRepo(db, log),
		AchievementDefinitions: progress.NewAchievementDefinitionRepo(db, log),
		AchievementUnlocks:     progress.NewAchievementUnlockRepo(db, log),
		Certificates:           progress.NewCertificateRepo(db, log),
	}
}
