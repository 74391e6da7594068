package domain

import (
	"github.com/yungbote/neurobridge-progress/internal/domain/content"
	"github.com/yungbote/neurobridge-progress/internal/domain/progress"
	"github.com/yungbote/neurobridge-progress/internal/domain/user"
)

type (
	User = user.User

	Course        = content.Course
	CourseSection = content.CourseSection
	ContentPage   = content.ContentPage
	PageRef       = content.PageRef
	Comment       = content.Comment

	PageProgress          = progress.PageProgress
	CourseProgress        = progress.CourseProgress
	CourseAggregate       = progress.CourseAggregate
	StreakState           = progress.StreakState
	StreakTransition      = progress.StreakTransition
	AchievementDefinition = progress.AchievementDefinition
	AchievementUnlock     = progress.AchievementUnlock
	Certificate           = progress.Certificate
	LearnerStats          = progress.Stats
)

// Models returns every table owned or read by the engine, in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&CourseSection{},
		&ContentPage{},
		&Comment{},
		&PageProgress{},
		&CourseProgress{},
		&StreakState{},
		&AchievementDefinition{},
		&AchievementUnlock{},
		&Certificate{},
	}
}
