package progress

import (
	"context"
	"time"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/neurobridge-progress/internal/data/aggregates"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	domainagg "github.com/yungbote/neurobridge-progress/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
)

// EvaluateAndUnlock checks every definition the learner has not earned yet
// against a fresh stats snapshot and returns only the rows it created.
func (u Usecases) EvaluateAndUnlock(ctx context.Context, learnerID uuid.UUID) ([]*types.AchievementUnlock, error) {
	const op = "progress.achievements.evaluate"
	if learnerID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "learner_id is required", nil)
	}
	defs, err := u.deps.AchievementDefinitions.ListNotUnlockedBy(dbctx.Background(ctx), learnerID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if len(defs) == 0 {
		return []*types.AchievementUnlock{}, nil
	}
	stats, err := u.LearnerStats(ctx, learnerID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	res, err := u.deps.Achievements.Unlock(ctx, domainagg.UnlockAchievementsInput{
		LearnerID:   learnerID,
		Definitions: defs,
		Stats:       stats,
		At:          u.now(),
	})
	if err != nil {
		return nil, err
	}
	for _, row := range res.Unlocked {
		u.deps.Metrics.IncAchievementUnlocked(row.AchievementCode)
		u.deps.Log.Info("achievement unlocked", "learner_id", learnerID, "code", row.AchievementCode)
	}
	return res.Unlocked, nil
}

// AchievementView is one catalog entry annotated with the learner's unlock.
type AchievementView struct {
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Predicate   string     `json:"predicate"`
	Threshold   int        `json:"threshold"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

func (u Usecases) ListAchievements(ctx context.Context, learnerID uuid.UUID) ([]AchievementView, error) {
	const op = "progress.achievements.list"
	if learnerID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "learner_id is required", nil)
	}
	dbc := dbctx.Background(ctx)
	defs, err := u.deps.AchievementDefinitions.List(dbc)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	unlocks, err := u.deps.AchievementUnlocks.ListByLearner(dbc, learnerID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	byDef := make(map[uuid.UUID]*types.AchievementUnlock, len(unlocks))
	for _, row := range unlocks {
		byDef[row.AchievementID] = row
	}
	out := make([]AchievementView, 0, len(defs))
	for _, d := range defs {
		v := AchievementView{
			Code:        d.Code,
			Title:       d.Title,
			Description: d.Description,
			Predicate:   d.Predicate,
			Threshold:   d.Threshold,
		}
		if row, ok := byDef[d.ID]; ok {
			at := row.UnlockedAt
			v.Unlocked = true
			v.UnlockedAt = &at
		}
		out = append(out, v)
	}
	return out, nil
}
