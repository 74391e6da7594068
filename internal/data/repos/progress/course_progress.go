package progress

import (
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-progress/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseProgressRepo interface {
	GetByLearnerCourse(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.CourseProgress, error)
	// LockByLearnerCourse inserts a zero row when none exists, then reads it
	// under FOR UPDATE on Postgres so concurrent recomputes of the same course
	// serialise, including the first one. created reports that the zero row
	// was inserted by this call. SQLite already serialises writers and gets a
	// plain read.
	LockByLearnerCourse(dbc dbctx.Context, learnerID, courseID uuid.UUID, at time.Time) (row *types.CourseProgress, created bool, err error)

	// Upsert overwrites the derived fields keyed on (learner_id, course_id).
	// completed_at is first-write-wins: once stamped it is never replaced.
	Upsert(dbc dbctx.Context, row *types.CourseProgress) error
}

type courseProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseProgressRepo(db *gorm.DB, baseLog *logger.Logger) CourseProgressRepo {
	return &courseProgressRepo{db: db, log: baseLog.With("repo", "CourseProgressRepo")}
}

func (r *courseProgressRepo) GetByLearnerCourse(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.CourseProgress, error) {
	if learnerID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	var row types.CourseProgress
	if err := dbc.DB(r.db).
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *courseProgressRepo) LockByLearnerCourse(dbc dbctx.Context, learnerID, courseID uuid.UUID, at time.Time) (*types.CourseProgress, bool, error) {
	if learnerID == uuid.Nil || courseID == uuid.Nil {
		return nil, false, nil
	}
	at = at.UTC()
	seed := &types.CourseProgress{
		ID:             uuid.New(),
		LearnerID:      learnerID,
		CourseID:       courseID,
		LastAccessedAt: at,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	ins := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(seed)
	if ins.Error != nil {
		return nil, false, ins.Error
	}
	created := ins.RowsAffected == 1

	q := dbc.DB(r.db)
	if q.Dialector != nil && q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row types.CourseProgress
	if err := q.
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, false, err
	}
	if row.ID == uuid.Nil {
		return nil, false, nil
	}
	return &row, created, nil
}

func (r *courseProgressRepo) Upsert(dbc dbctx.Context, row *types.CourseProgress) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	updates := clause.AssignmentColumns([]string{
		"percent_complete",
		"completed",
		"last_page_id",
		"last_accessed_at",
		"updated_at",
	})
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "completed_at"},
		Value:  gorm.Expr("COALESCE(" + types.CourseProgress{}.TableName() + ".completed_at, excluded.completed_at)"),
	})
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}, {Name: "course_id"}},
			DoUpdates: updates,
		}).
		Create(row).Error
}
