package progress

import (
	"time"

	"github.com/google/uuid"
)

// StreakState tracks consecutive local days with at least one completion.
// LastActivityDate is a calendar date (YYYY-MM-DD) in the streak timezone.
// Version backs optimistic concurrency on read-modify-write.
type StreakState struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	LearnerID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"learner_id"`
	CurrentStreak    int       `gorm:"column:current_streak;not null" json:"current_streak"`
	LongestStreak    int       `gorm:"column:longest_streak;not null" json:"longest_streak"`
	LastActivityDate string    `gorm:"column:last_activity_date;type:varchar(10);not null" json:"last_activity_date,omitempty"`
	Version          int       `gorm:"column:version;not null" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (StreakState) TableName() string { return "streak_state" }
