package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/neurobridge-progress/internal/data/repos"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	domainagg "github.com/yungbote/neurobridge-progress/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-progress/internal/domain/progress"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
)

const defaultStreakCASAttempts = 5

type StreakAggregateDeps struct {
	Base    BaseDeps
	Streaks repos.StreakStateRepo
	// Location defines the learner-facing calendar day. Nil means UTC.
	Location    *time.Location
	MaxAttempts int
}

type streakAggregate struct {
	deps StreakAggregateDeps
}

func NewStreakAggregate(deps StreakAggregateDeps) domainagg.StreakAggregate {
	deps.Base = deps.Base.withDefaults()
	deps.Base.Log = deps.Base.Log.With("aggregate", "StreakAggregate")
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = defaultStreakCASAttempts
	}
	return &streakAggregate{deps: deps}
}

func (a *streakAggregate) Contract() domainagg.Contract {
	return domainagg.StreakAggregateContract
}

// RegisterActivity advances the learner's streak for the local day of in.Now.
// The read and the write share one transaction and the write is conditional on
// the version that was read, so two same-day calls can never both increment.
func (a *streakAggregate) RegisterActivity(ctx context.Context, in domainagg.RegisterActivityInput) (domainagg.RegisterActivityResult, error) {
	const op = "progress.streak.register"
	if in.LearnerID == uuid.Nil {
		return domainagg.RegisterActivityResult{}, MapError(op, ValidationError("learner_id is required"))
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	today := progress.LocalDate(now, a.deps.Location)

	var out domainagg.RegisterActivityResult
	attempts, err := executeWriteWithRetry(ctx, a.deps.Base, op, a.deps.MaxAttempts, func(dbc dbctx.Context) error {
		out = domainagg.RegisterActivityResult{}
		prev, err := a.deps.Streaks.GetByLearner(dbc, in.LearnerID)
		if err != nil {
			return err
		}
		next, transition, err := progress.AdvanceStreak(prev, today)
		if err != nil {
			return InvariantError(err.Error())
		}
		out.Transition = transition
		if transition == progress.StreakUnchanged {
			out.State = next
			return nil
		}

		stamp := now.UTC()
		if prev == nil {
			row := &types.StreakState{
				ID:               uuid.New(),
				LearnerID:        in.LearnerID,
				CurrentStreak:    next.CurrentStreak,
				LongestStreak:    next.LongestStreak,
				LastActivityDate: next.LastActivityDate,
				CreatedAt:        stamp,
				UpdatedAt:        stamp,
			}
			if err := a.deps.Streaks.Create(dbc, row); err != nil {
				if IsUniqueViolation(err) {
					return ConflictError("streak state created concurrently")
				}
				return err
			}
			out.State = *row
			return nil
		}

		ok, err := a.deps.Base.CASGuard.UpdateByVersion(dbc, types.StreakState{}.TableName(), prev.ID, prev.Version, map[string]any{
			"current_streak":     next.CurrentStreak,
			"longest_streak":     next.LongestStreak,
			"last_activity_date": next.LastActivityDate,
			"updated_at":         stamp,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "streak state changed concurrently"); err != nil {
			return err
		}
		next.Version = prev.Version + 1
		next.UpdatedAt = stamp
		out.State = next
		return nil
	})
	if err != nil {
		a.deps.Base.Log.Warn("streak update failed", "learner_id", in.LearnerID, "attempts", attempts, "error", err)
		return domainagg.RegisterActivityResult{}, err
	}
	out.Attempts = attempts
	return out, nil
}
