package progress

import (
	"time"

	"github.com/google/uuid"
)

// CourseProgress is the rolled-up view of a learner's page ledger for one
// course. It is always rewritten from the ledger, never incremented.
type CourseProgress struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_course_progress_learner_course,unique,priority:1" json:"learner_id"`
	CourseID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_course_progress_learner_course,unique,priority:2;index" json:"course_id"`
	PercentComplete int        `gorm:"column:percent_complete;not null" json:"percent_complete"`
	Completed       bool       `gorm:"column:completed;not null" json:"completed"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	LastPageID      *uuid.UUID `gorm:"type:uuid;column:last_page_id" json:"last_page_id,omitempty"`
	LastAccessedAt  time.Time  `gorm:"column:last_accessed_at;not null" json:"last_accessed_at"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CourseProgress) TableName() string { return "course_progress" }
