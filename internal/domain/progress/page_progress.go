package progress

import (
	"time"

	"github.com/google/uuid"
)

// PageProgress is the per-(learner, page) ledger row. At most one row exists
// per pair; CompletedAt is set iff Completed is true.
type PageProgress struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_page_progress_learner_page,unique,priority:1" json:"learner_id"`
	PageID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_page_progress_learner_page,unique,priority:2;index" json:"page_id"`
	Viewed      bool       `gorm:"column:viewed;not null" json:"viewed"`
	Completed   bool       `gorm:"column:completed;not null;index" json:"completed"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PageProgress) TableName() string { return "page_progress" }
