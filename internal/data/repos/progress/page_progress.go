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

type PageProgressRepo interface {
	GetByLearnerPage(dbc dbctx.Context, learnerID, pageID uuid.UUID) (*types.PageProgress, error)
	ListByLearnerPages(dbc dbctx.Context, learnerID uuid.UUID, pageIDs []uuid.UUID) ([]*types.PageProgress, error)
	CountCompletedByLearner(dbc dbctx.Context, learnerID uuid.UUID) (int64, error)

	// UpsertCompletion writes viewed=true and the completion flag in one
	// statement keyed on (learner_id, page_id). An already-set completed_at is
	// preserved while the page stays completed and cleared when it is not.
	UpsertCompletion(dbc dbctx.Context, learnerID, pageID uuid.UUID, completed bool, at time.Time) error
	// UpsertView marks the page viewed without touching completion.
	UpsertView(dbc dbctx.Context, learnerID, pageID uuid.UUID, at time.Time) error
}

type pageProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPageProgressRepo(db *gorm.DB, baseLog *logger.Logger) PageProgressRepo {
	return &pageProgressRepo{db: db, log: baseLog.With("repo", "PageProgressRepo")}
}

var learnerPageConflict = []clause.Column{{Name: "learner_id"}, {Name: "page_id"}}

func (r *pageProgressRepo) GetByLearnerPage(dbc dbctx.Context, learnerID, pageID uuid.UUID) (*types.PageProgress, error) {
	if learnerID == uuid.Nil || pageID == uuid.Nil {
		return nil, nil
	}
	var row types.PageProgress
	if err := dbc.DB(r.db).
		Where("learner_id = ? AND page_id = ?", learnerID, pageID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *pageProgressRepo) ListByLearnerPages(dbc dbctx.Context, learnerID uuid.UUID, pageIDs []uuid.UUID) ([]*types.PageProgress, error) {
	out := []*types.PageProgress{}
	if learnerID == uuid.Nil || len(pageIDs) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("learner_id = ? AND page_id IN ?", learnerID, pageIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pageProgressRepo) CountCompletedByLearner(dbc dbctx.Context, learnerID uuid.UUID) (int64, error) {
	if learnerID == uuid.Nil {
		return 0, nil
	}
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.PageProgress{}).
		Where("learner_id = ? AND completed = ?", learnerID, true).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *pageProgressRepo) UpsertCompletion(dbc dbctx.Context, learnerID, pageID uuid.UUID, completed bool, at time.Time) error {
	at = at.UTC()
	row := &types.PageProgress{
		ID:        uuid.New(),
		LearnerID: learnerID,
		PageID:    pageID,
		Viewed:    true,
		Completed: completed,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if completed {
		row.CompletedAt = &at
	}
	updates := clause.AssignmentColumns([]string{"viewed", "completed", "updated_at"})
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "completed_at"},
		Value: gorm.Expr("CASE WHEN excluded.completed THEN COALESCE(" +
			types.PageProgress{}.TableName() + ".completed_at, excluded.completed_at) ELSE NULL END"),
	})
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{Columns: learnerPageConflict, DoUpdates: updates}).
		Create(row).Error
}

func (r *pageProgressRepo) UpsertView(dbc dbctx.Context, learnerID, pageID uuid.UUID, at time.Time) error {
	at = at.UTC()
	row := &types.PageProgress{
		ID:        uuid.New(),
		LearnerID: learnerID,
		PageID:    pageID,
		Viewed:    true,
		CreatedAt: at,
		UpdatedAt: at,
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   learnerPageConflict,
			DoUpdates: clause.AssignmentColumns([]string{"viewed", "updated_at"}),
		}).
		Create(row).Error
}
