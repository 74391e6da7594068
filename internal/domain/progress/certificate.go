package progress

import (
	"time"

	"github.com/google/uuid"
)

// Certificate is issued at most once per (learner, course). CertificateNumber
// is globally unique and immutable once written.
type Certificate struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID         uuid.UUID `gorm:"type:uuid;not null;index:idx_certificate_learner_course,unique,priority:1" json:"learner_id"`
	CourseID          uuid.UUID `gorm:"type:uuid;not null;index:idx_certificate_learner_course,unique,priority:2" json:"course_id"`
	CertificateNumber string    `gorm:"column:certificate_number;not null;uniqueIndex" json:"certificate_number"`
	CompletedAt       time.Time `gorm:"column:completed_at;not null" json:"completed_at"`
	IssuedAt          time.Time `gorm:"column:issued_at;not null" json:"issued_at"`

	CreatedAt time.Time `gorm:"not null" json:"-"`
}

func (Certificate) TableName() string { return "certificate" }
