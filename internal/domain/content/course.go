package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Course struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title string    `gorm:"column:title;not null" json:"title"`
	Slug  string    `gorm:"column:slug;index" json:"slug,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

type CourseSection struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index:idx_course_section_course_position,priority:1" json:"course_id"`
	Position int       `gorm:"column:position;not null;index:idx_course_section_course_position,priority:2" json:"position"`
	Title    string    `gorm:"column:title;not null" json:"title"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseSection) TableName() string { return "course_section" }

// ContentPage is a single lesson page. A page belongs to exactly one section,
// and through it to exactly one course.
type ContentPage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SectionID uuid.UUID `gorm:"type:uuid;not null;index:idx_content_page_section_position,priority:1" json:"section_id"`
	Position  int       `gorm:"column:position;not null;index:idx_content_page_section_position,priority:2" json:"position"`
	Title     string    `gorm:"column:title;not null" json:"title"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentPage) TableName() string { return "content_page" }

// PageRef is a page resolved together with its owning course.
type PageRef struct {
	PageID    uuid.UUID `json:"page_id"`
	SectionID uuid.UUID `json:"section_id"`
	CourseID  uuid.UUID `json:"course_id"`
}
