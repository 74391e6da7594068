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

type AchievementDefinitionRepo interface {
	// UpsertByCode inserts or refreshes catalog entries keyed on code.
	UpsertByCode(dbc dbctx.Context, defs []*types.AchievementDefinition) error
	List(dbc dbctx.Context) ([]*types.AchievementDefinition, error)
	// ListNotUnlockedBy returns definitions the learner has not earned yet.
	ListNotUnlockedBy(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.AchievementDefinition, error)
}

type achievementDefinitionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAchievementDefinitionRepo(db *gorm.DB, baseLog *logger.Logger) AchievementDefinitionRepo {
	return &achievementDefinitionRepo{db: db, log: baseLog.With("repo", "AchievementDefinitionRepo")}
}

func (r *achievementDefinitionRepo) UpsertByCode(dbc dbctx.Context, defs []*types.AchievementDefinition) error {
	if len(defs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, d := range defs {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		d.UpdatedAt = now
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "description", "predicate", "threshold", "metadata", "updated_at",
			}),
		}).
		Create(&defs).Error
}

func (r *achievementDefinitionRepo) List(dbc dbctx.Context) ([]*types.AchievementDefinition, error) {
	out := []*types.AchievementDefinition{}
	if err := dbc.DB(r.db).Order("predicate ASC, threshold ASC, code ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *achievementDefinitionRepo) ListNotUnlockedBy(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.AchievementDefinition, error) {
	out := []*types.AchievementDefinition{}
	if learnerID == uuid.Nil {
		return out, nil
	}
	unlocked := dbc.DB(r.db).
		Model(&types.AchievementUnlock{}).
		Select("achievement_id").
		Where("learner_id = ?", learnerID)
	if err := dbc.DB(r.db).
		Where("id NOT IN (?)", unlocked).
		Order("predicate ASC, threshold ASC, code ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type AchievementUnlockRepo interface {
	// InsertIfAbsent reports true only when this call created the row.
	InsertIfAbsent(dbc dbctx.Context, row *types.AchievementUnlock) (bool, error)
	ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.AchievementUnlock, error)
}

type achievementUnlockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAchievementUnlockRepo(db *gorm.DB, baseLog *logger.Logger) AchievementUnlockRepo {
	return &achievementUnlockRepo{db: db, log: baseLog.With("repo", "AchievementUnlockRepo")}
}

func (r *achievementUnlockRepo) InsertIfAbsent(dbc dbctx.Context, row *types.AchievementUnlock) (bool, error) {
	if row == nil {
		return false, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *achievementUnlockRepo) ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.AchievementUnlock, error) {
	out := []*types.AchievementUnlock{}
	if learnerID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("learner_id = ?", learnerID).
		Order("unlocked_at ASC, achievement_code ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
