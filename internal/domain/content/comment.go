package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a discussion post by a learner. Only the per-learner count feeds
// achievement evaluation.
type Comment struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	CourseID *uuid.UUID `gorm:"type:uuid;index" json:"course_id,omitempty"`
	PageID   *uuid.UUID `gorm:"type:uuid;index" json:"page_id,omitempty"`
	Body     string     `gorm:"column:body;not null" json:"body"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Comment) TableName() string { return "comment" }
