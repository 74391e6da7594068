package progress

import (
	"github.com/google/uuid"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-progress/internal/platform/logger"
	"gorm.io/gorm"
)

// StreakStateRepo covers plain reads and the first insert. Updates go through
// aggregates.CASGuard so they are always version-checked.
type StreakStateRepo interface {
	GetByLearner(dbc dbctx.Context, learnerID uuid.UUID) (*types.StreakState, error)
	Create(dbc dbctx.Context, row *types.StreakState) error
}

type streakStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStreakStateRepo(db *gorm.DB, baseLog *logger.Logger) StreakStateRepo {
	return &streakStateRepo{db: db, log: baseLog.With("repo", "StreakStateRepo")}
}

func (r *streakStateRepo) GetByLearner(dbc dbctx.Context, learnerID uuid.UUID) (*types.StreakState, error) {
	if learnerID == uuid.Nil {
		return nil, nil
	}
	var row types.StreakState
	if err := dbc.DB(r.db).Where("learner_id = ?", learnerID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

// Create fails with a unique violation when a concurrent caller inserted first.
func (r *streakStateRepo) Create(dbc dbctx.Context, row *types.StreakState) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(row).Error
}
