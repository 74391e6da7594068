package progress

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/neurobridge-progress/internal/domain"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
)

// LearnerStats reads the achievement snapshot. The four sources are
// independent so they are fetched concurrently.
func (u Usecases) LearnerStats(ctx context.Context, learnerID uuid.UUID) (types.LearnerStats, error) {
	var (
		stats    types.LearnerStats
		streak   *types.StreakState
		lessons  int64
		certs    int64
		comments int64
	)
	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Background(gctx)
	g.Go(func() error {
		var err error
		streak, err = u.deps.Streaks.GetByLearner(dbc, learnerID)
		return err
	})
	g.Go(func() error {
		var err error
		lessons, err = u.deps.PageProgress.CountCompletedByLearner(dbc, learnerID)
		return err
	})
	g.Go(func() error {
		var err error
		certs, err = u.deps.Certificates.CountByLearner(dbc, learnerID)
		return err
	})
	g.Go(func() error {
		if u.deps.Comments == nil {
			return nil
		}
		var err error
		comments, err = u.deps.Comments.CountByUser(dbc, learnerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return types.LearnerStats{}, err
	}
	if streak != nil {
		stats.CurrentStreak = streak.CurrentStreak
		stats.LongestStreak = streak.LongestStreak
	}
	stats.LessonsCompleted = int(lessons)
	stats.CertificatesEarned = int(certs)
	stats.CommentsPosted = int(comments)
	return stats, nil
}
