package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AchievementDefinition is a catalog entry. Code is the stable identifier
// used by clients; Predicate and Threshold drive evaluation.
type AchievementDefinition struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Code        string         `gorm:"column:code;not null;uniqueIndex" json:"code"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Description string         `gorm:"column:description" json:"description"`
	Predicate   string         `gorm:"column:predicate;not null" json:"predicate"`
	Threshold   int            `gorm:"column:threshold;not null" json:"threshold"`
	Metadata    datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (AchievementDefinition) TableName() string { return "achievement_definition" }

// AchievementUnlock records that a learner earned a definition. Unique per
// (learner, achievement); rows are never deleted.
type AchievementUnlock struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_achievement_unlock_learner_achievement,unique,priority:1" json:"learner_id"`
	AchievementID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_achievement_unlock_learner_achievement,unique,priority:2" json:"achievement_id"`
	AchievementCode string         `gorm:"column:achievement_code;not null" json:"achievement_code"`
	UnlockedAt      time.Time      `gorm:"column:unlocked_at;not null" json:"unlocked_at"`
	Snapshot        datatypes.JSON `gorm:"column:snapshot" json:"snapshot,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"-"`
}

func (AchievementUnlock) TableName() string { return "achievement_unlock" }
