package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	dataagg "github.com/yungbote/neurobridge-progress/internal/data/aggregates"
	"github.com/yungbote/neurobridge-progress/internal/data/repos"
	repotest "github.com/yungbote/neurobridge-progress/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	domainagg "github.com/yungbote/neurobridge-progress/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-progress/internal/observability"
)

type harness struct {
	t       *testing.T
	ctx     context.Context
	db      *gorm.DB
	set     repos.Set
	uc      Usecases
	events  *recordingPublisher
	metrics *observability.Metrics
	deps    UsecasesDeps
	issuer  domainagg.CertificateAggregate

	mu  sync.Mutex
	now time.Time
}

func newHarness(t *testing.T, opts ...func(*harness, *UsecasesDeps)) *harness {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	h := &harness{
		t:       t,
		ctx:     context.Background(),
		db:      db,
		set:     repos.NewSet(db, log),
		events:  &recordingPublisher{},
		metrics: observability.NewMetrics(),
		now:     time.Now().UTC(),
	}
	base := dataagg.BaseDeps{DB: db, Log: log, Hooks: dataagg.NewObservabilityHooks(h.metrics)}
	h.issuer = dataagg.NewCertificateAggregate(dataagg.CertificateAggregateDeps{
		Base:         base,
		Certificates: h.set.Certificates,
	})
	deps := UsecasesDeps{
		Log:                    log,
		Metrics:                h.metrics,
		Users:                  h.set.Users,
		Catalog:                h.set.Catalog,
		Comments:               h.set.Comments,
		PageProgress:           h.set.PageProgress,
		CourseProgress:         h.set.CourseProgress,
		Streaks:                h.set.Streaks,
		AchievementDefinitions: h.set.AchievementDefinitions,
		AchievementUnlocks:     h.set.AchievementUnlocks,
		Certificates:           h.set.Certificates,
		Pages: dataagg.NewPageProgressAggregate(dataagg.PageProgressAggregateDeps{
			Base:           base,
			Users:          h.set.Users,
			Catalog:        h.set.Catalog,
			PageProgress:   h.set.PageProgress,
			CourseProgress: h.set.CourseProgress,
		}),
		Streak: dataagg.NewStreakAggregate(dataagg.StreakAggregateDeps{Base: base, Streaks: h.set.Streaks}),
		Achievements: dataagg.NewAchievementAggregate(dataagg.AchievementAggregateDeps{
			Base:    base,
			Unlocks: h.set.AchievementUnlocks,
		}),
		Issuer: h.issuer,
		Events: h.events,
		Now:    h.clock,
	}
	for _, opt := range opts {
		opt(h, &deps)
	}
	h.deps = deps
	h.uc = New(deps)
	require.NoError(t, h.uc.SyncCatalog(h.ctx, nil))
	return h
}

// healthy rebuilds the use cases over the same database with the real
// certificate issuer, for tests that inject a failing one first.
func (h *harness) healthy() Usecases {
	deps := h.deps
	deps.Issuer = h.issuer
	return New(deps)
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) setNow(at time.Time) {
	h.mu.Lock()
	h.now = at.UTC()
	h.mu.Unlock()
}

func (h *harness) learner() *types.User {
	return repotest.SeedLearner(h.t, h.ctx, h.db)
}

func (h *harness) course(pagesPerSection ...int) repotest.CourseFixture {
	return repotest.SeedCourse(h.t, h.ctx, h.db, pagesPerSection...)
}

func (h *harness) mark(learner *types.User, course repotest.CourseFixture, page int, completed bool) MarkPageResult {
	h.t.Helper()
	res, err := h.uc.MarkPage(h.ctx, MarkPageInput{
		LearnerID: learner.ID,
		CourseID:  course.Course.ID,
		PageID:    course.Pages[page].ID,
		Completed: completed,
	})
	require.NoError(h.t, err)
	return res
}

func unlockedCodes(rows []*types.AchievementUnlock) map[string]bool {
	out := map[string]bool{}
	for _, r := range rows {
		out[r.AchievementCode] = true
	}
	return out
}

func sideEffectSteps(errs []*SideEffectError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Step)
	}
	return out
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []*types.Certificate
	err  error
}

func (p *recordingPublisher) PublishCertificateIssued(_ context.Context, cert *types.Certificate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, cert)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type failingStreak struct{}

func (failingStreak) Contract() domainagg.Contract { return domainagg.StreakAggregateContract }

func (failingStreak) RegisterActivity(context.Context, domainagg.RegisterActivityInput) (domainagg.RegisterActivityResult, error) {
	return domainagg.RegisterActivityResult{}, domainagg.NewError(domainagg.CodeRetryable, "progress.streak.register", "store unavailable", nil)
}

type panickingAchievements struct{}

func (panickingAchievements) Contract() domainagg.Contract {
	return domainagg.AchievementAggregateContract
}

func (panickingAchievements) Unlock(context.Context, domainagg.UnlockAchievementsInput) (domainagg.UnlockAchievementsResult, error) {
	panic("rule engine exploded")
}

type failingIssuer struct {
	calls int
}

func (f *failingIssuer) Contract() domainagg.Contract { return domainagg.CertificateAggregateContract }

func (f *failingIssuer) IssueIfEligible(context.Context, domainagg.IssueCertificateInput) (domainagg.IssueCertificateResult, error) {
	f.calls++
	return domainagg.IssueCertificateResult{}, domainagg.NewError(domainagg.CodeRetryable, "progress.certificate.issue", "store unavailable", errors.New("connection reset"))
}

func seedComments(h *harness, learnerID uuid.UUID, n int) {
	repotest.SeedComments(h.t, h.ctx, h.db, learnerID, n)
}
