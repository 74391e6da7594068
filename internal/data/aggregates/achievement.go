package aggregates

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/neurobridge-progress/internal/data/repos"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	domainagg "github.com/yungbote/neurobridge-progress/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
	"gorm.io/datatypes"
)

type AchievementAggregateDeps struct {
	Base    BaseDeps
	Unlocks repos.AchievementUnlockRepo
}

type achievementAggregate struct {
	deps AchievementAggregateDeps
}

func NewAchievementAggregate(deps AchievementAggregateDeps) domainagg.AchievementAggregate {
	deps.Base = deps.Base.withDefaults()
	deps.Base.Log = deps.Base.Log.With("aggregate", "AchievementAggregate")
	return &achievementAggregate{deps: deps}
}

func (a *achievementAggregate) Contract() domainagg.Contract {
	return domainagg.AchievementAggregateContract
}

// Unlock inserts a row for every definition whose predicate holds for
// in.Stats. Definitions with unknown predicates are skipped and logged so one
// bad catalog entry cannot block the rest.
func (a *achievementAggregate) Unlock(ctx context.Context, in domainagg.UnlockAchievementsInput) (domainagg.UnlockAchievementsResult, error) {
	const op = "progress.achievement.unlock"
	if in.LearnerID == uuid.Nil {
		return domainagg.UnlockAchievementsResult{}, MapError(op, ValidationError("learner_id is required"))
	}
	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	var satisfied []*types.AchievementDefinition
	for _, def := range in.Definitions {
		if def == nil || def.ID == uuid.Nil {
			continue
		}
		ok, err := def.Satisfied(in.Stats)
		if err != nil {
			a.deps.Base.Log.Warn("skipping achievement definition", "code", def.Code, "error", err)
			continue
		}
		if ok {
			satisfied = append(satisfied, def)
		}
	}
	if len(satisfied) == 0 {
		return domainagg.UnlockAchievementsResult{Unlocked: []*types.AchievementUnlock{}}, nil
	}
	snapshot, err := json.Marshal(in.Stats)
	if err != nil {
		return domainagg.UnlockAchievementsResult{}, MapError(op, err)
	}

	var out domainagg.UnlockAchievementsResult
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.UnlockAchievementsResult{Unlocked: []*types.AchievementUnlock{}}
		for _, def := range satisfied {
			row := &types.AchievementUnlock{
				ID:              uuid.New(),
				LearnerID:       in.LearnerID,
				AchievementID:   def.ID,
				AchievementCode: def.Code,
				UnlockedAt:      at,
				Snapshot:        datatypes.JSON(snapshot),
				CreatedAt:       at,
			}
			created, err := a.deps.Unlocks.InsertIfAbsent(dbc, row)
			if err != nil {
				return err
			}
			if created {
				out.Unlocked = append(out.Unlocked, row)
			}
		}
		return nil
	})
	if err != nil {
		return domainagg.UnlockAchievementsResult{}, err
	}
	return out, nil
}
