package progress

import (
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	repotest "github.com/yungbote/neurobridge-progress/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	domainagg "github.com/yungbote/neurobridge-progress/internal/domain/aggregates"
	domainprogress "github.com/yungbote/neurobridge-progress/internal/domain/progress"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
)

func TestMarkPageCompletesCourseAndIssuesCertificate(t *testing.T) {
	h := newHarness(t)
	learner := h.learner()
	course := h.course(2, 2)

	for i, want := range []int{25, 50, 75} {
		res := h.mark(learner, course, i, true)
		require.Equal(t, want, res.PercentComplete)
		require.Equal(t, i+1, res.CompletedCount)
		require.Equal(t, 4, res.TotalPages)
		require.False(t, res.CourseCompleted)
		require.Nil(t, res.Certificate)
		require.Empty(t, res.SideEffects)
	}

	res := h.mark(learner, course, 3, true)
	require.Equal(t, 100, res.PercentComplete)
	require.True(t, res.CourseCompleted)
	require.NotNil(t, res.CourseProgress.CompletedAt)
	require.NotNil(t, res.Certificate)
	require.True(t, res.CertificateIssued)
	require.NoError(t, res.CertificateError)
	require.Regexp(t, regexp.MustCompile(`^CERT-\d{8}-[0-9A-F]{10}$`), res.Certificate.CertificateNumber)
	require.Equal(t, 1, h.events.count())

	codes := unlockedCodes(res.NewAchievements)
	require.True(t, codes["first_certificate"], "certificate achievement unlocks in the same call: %v", codes)
}

func TestMarkPageIsIdempotent(t *testing.T) {
	h := newHarness(t)
	learner := h.learner()
	course := h.course(4)

	first := h.mark(learner, course, 0, true)
	for i := 0; i < 4; i++ {
		again := h.mark(learner, course, 0, true)
		require.Equal(t, first.PercentComplete, again.PercentComplete)
		require.Equal(t, 1, again.CompletedCount)
		require.Nil(t, again.Streak, "re-marking a finished page is not new activity")
		require.Equal(t, *first.Page.CompletedAt, *again.Page.CompletedAt)
	}

	var rows int64
	require.NoError(t, h.db.Model(&types.PageProgress{}).
		Where("learner_id = ? AND page_id = ?", learner.ID, course.Pages[0].ID).
		Count(&rows).Error)
	require.EqualValues(t, 1, rows)

	st, err := h.set.Streaks.GetByLearner(dbctx.Background(h.ctx), learner.ID)
	require.NoError(t, err)
	require.Equal(t, 1, st.CurrentStreak)
}

func TestMarkPageRepeatedCompletionReturnsSameCertificate(t *testing.T) {
	h := newHarness(t)
	learner := h.learner()
	course := h.course(2)

	h.mark(learner, course, 0, true)
	first := h.mark(learner, course, 1, true)
	require.True(t, first.CertificateIssued)

	again := h.mark(learner, course, 1, true)
	require.False(t, again.CertificateIssued)
	require.Equal(t, first.Certificate.CertificateNumber, again.Certificate.CertificateNumber)
	require.Equal(t, 1, h.events.count(), "events fire only on first issuance")
}

// Completion is recomputed every call; completedAt keeps the first time 100% was reached.
func TestMarkPageUncompleteAfterCourseCompletion(t *testing.T) {
	h := newHarness(t)
	learner := h.learner()
	course := h.course(4)
	for i := range course.Pages {
		h.mark(learner, course, i, true)
	}
	done := h.mark(learner, course, 3, true)
	require.True(t, done.CourseCompleted)
	firstStamp := *done.CourseProgress.CompletedAt

	undone := h.mark(learner, course, 2, false)
	require.Equal(t, 75, undone.PercentComplete)
	require.False(t, undone.CourseCompleted)
	require.Nil(t, undone.Certificate)
	require.NotNil(t, undone.CourseProgress.CompletedAt)
	require.True(t, firstStamp.Equal(*undone.CourseProgress.CompletedAt))
	require.Nil(t, undone.Page.CompletedAt)

	redone := h.mark(learner, course, 2, true)
	require.True(t, redone.CourseCompleted)
	require.False(t, redone.CertificateIssued)
	require.Equal(t, done.Certificate.CertificateNumber, redone.Certificate.CertificateNumber)
	require.True(t, firstStamp.Equal(*redone.CourseProgress.CompletedAt))
}

func TestMarkPageExtendsStreakFromYesterday(t *testing.T) {
	h := newHarness(t)
	learner := h.learner()
	course := h.course(3)
	yesterday := h.clock().AddDate(0, 0, -1).Format(domainprogress.DateLayout)
	repotest.SeedStreak(t, h.ctx, h.db, learner.ID, 3, 3, yesterday)

	res := h.mark(learner, course, 0, true)
	require.NotNil(t, res.Streak)
	require.Equal(t, 4, res.Streak.CurrentStreak)
	require.Equal(t, 4, res.Streak.LongestStreak)

	second := h.mark(learner, course, 1, true)
	require.Equal(t, 4, second.Streak.CurrentStreak, "same day never increments twice")
}

func TestMarkPageResetsStreakAfterGap(t *testing.T) {
	h := newHarness(t)
	learner := h.learner()
	course := h.course(3)
	old := h.clock().AddDate(0, 0, -5).Format(domainprogress.DateLayout)
	repotest.SeedStreak(t, h.ctx, h.db, learner.ID, 10, 10, old)

	res := h.mark(learner, course, 0, true)
	require.NotNil(t, res.Streak)
	require.Equal(t, 1, res.Streak.CurrentStreak)
	require.Equal(t, 10, res.Streak.LongestStreak)
}

func TestMarkPageSecondCertificateSkipsFirstCertificateAchievement(t *testing.T) {
	h := newHarness(t)
	learner := h.learner()
	warmup := h.course(3)
	final := h.course(2)

	h.mark(learner, warmup, 0, true)
	h.mark(learner, warmup, 1, true)
	h.mark(learner, final, 0, true)
	mid := h.mark(learner, warmup, 2, true)
	require.True(t, mid.CourseCompleted)
	require.True(t, unlockedCodes(mid.NewAchievements)["first_certificate"])

	stats, err := h.uc.LearnerStats(h.ctx, learner.ID)
	require.NoError(t, err)
	require.Equal(t, 4, stats.LessonsCompleted)
	require.Equal(t, 1, stats.CertificatesEarned)

	res := h.mark(learner, final, 1, true)
	require.True(t, res.CourseCompleted)
	require.True(t, res.CertificateIssued)
	codes := unlockedCodes(res.NewAchievements)
	require.True(t, codes["lessons_5"], "lessons_5 expected in %v", codes)
	require.False(t, codes["first_certificate"])
}

func TestMarkPageFifthLessonCompletesCourse(t *testing.T) {
	h := newHarness(t)
	learner := h.learner()
	other := h.course(5)
	course := h.course(1)
	for i := 0; i < 4; i++ {
		h.mark(learner, other, i, true)
	}

	res := h.mark(learner, course, 0, true)
	require.True(t, res.CourseCompleted)
	require.NotNil(t, res.Certificate)
	require.True(t, res.CertificateIssued)
	codes := unlockedCodes(res.NewAchievements)
	require.True(t, codes["lessons_5"], "lessons_5 expected in %v", codes)
	require.True(t, codes["first_certificate"], "first_certificate expected in %v", codes)
	require.False(t, codes["first_lesson"], "first_lesson was unlocked on the first mark")
}

func TestMarkPageIsolatesStreakFailure(t *testing.T) {
	h := newHarness(t, func(_ *harness, d *UsecasesDeps) { d.Streak = failingStreak{} })
	learner := h.learner()
	course := h.course(2)

	res, err := h.uc.MarkPage(h.ctx, MarkPageInput{LearnerID: learner.ID, PageID: course.Pages[0].ID, Completed: true})
	require.NoError(t, err)
	require.Equal(t, 50, res.PercentComplete)
	require.Nil(t, res.Streak)
	require.Equal(t, []string{StepStreak}, sideEffectSteps(res.SideEffects))
	require.True(t, domainagg.IsCode(res.SideEffects[0], domainagg.CodeRetryable))
	require.EqualValues(t, 1, h.metrics.SideEffectFailures(StepStreak))

	row, err := h.set.PageProgress.GetByLearnerPage(dbctx.Background(h.ctx), learner.ID, course.Pages[0].ID)
	require.NoError(t, err)
	require.True(t, row.Completed)
}

func TestMarkPageIsolatesAchievementPanic(t *testing.T) {
	h := newHarness(t, func(_ *harness, d *UsecasesDeps) { d.Achievements = panickingAchievements{} })
	learner := h.learner()
	course := h.course(1)

	res, err := h.uc.MarkPage(h.ctx, MarkPageInput{LearnerID: learner.ID, PageID: course.Pages[0].ID, Completed: true})
	require.NoError(t, err)
	require.True(t, res.CourseCompleted)
	require.NotNil(t, res.Certificate, "certificate still issued after the rule engine failed")
	require.NotNil(t, res.Streak)
	steps := sideEffectSteps(res.SideEffects)
	require.Contains(t, steps, StepAchievements)
	require.Contains(t, steps, StepCertAchievements)
	require.Empty(t, res.NewAchievements)
}

func TestMarkPageReportsCertificateFailureAndRetrySucceeds(t *testing.T) {
	failing := &failingIssuer{}
	h := newHarness(t, func(_ *harness, d *UsecasesDeps) { d.Issuer = failing })
	learner := h.learner()
	course := h.course(1)

	res, err := h.uc.MarkPage(h.ctx, MarkPageInput{LearnerID: learner.ID, PageID: course.Pages[0].ID, Completed: true})
	require.NoError(t, err, "certificate failure is partial success")
	require.True(t, res.CourseCompleted)
	require.Equal(t, 100, res.PercentComplete)
	require.Nil(t, res.Certificate)
	require.Error(t, res.CertificateError)
	require.True(t, domainagg.IsCode(res.CertificateError, domainagg.CodeRetryable))
	require.Equal(t, 1, failing.calls)

	cp, err := h.set.CourseProgress.GetByLearnerCourse(dbctx.Background(h.ctx), learner.ID, course.Course.ID)
	require.NoError(t, err)
	require.True(t, cp.Completed, "committed progress survives the failed side effect")

	healthy := h.healthy()
	retry, err := healthy.RetryCertificate(h.ctx, learner.ID, course.Course.ID)
	require.NoError(t, err)
	require.True(t, retry.Created)
	require.NotNil(t, retry.Certificate)
	require.True(t, unlockedCodes(retry.NewAchievements)["first_certificate"])

	again, err := healthy.RetryCertificate(h.ctx, learner.ID, course.Course.ID)
	require.NoError(t, err)
	require.False(t, again.Created)
	require.Equal(t, retry.Certificate.CertificateNumber, again.Certificate.CertificateNumber)
}

func TestMarkPageEventFailureIsIsolated(t *testing.T) {
	h := newHarness(t)
	h.events.err = errors.New("redis down")
	learner := h.learner()
	course := h.course(1)

	res := h.mark(learner, course, 0, true)
	require.NotNil(t, res.Certificate)
	require.True(t, res.CertificateIssued)
	require.NoError(t, res.CertificateError)
	require.Contains(t, sideEffectSteps(res.SideEffects), StepPublishEvent)
}

func TestMarkPageRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	learner := h.learner()
	course := h.course(1)
	other := h.course(1)

	_, err := h.uc.MarkPage(h.ctx, MarkPageInput{PageID: course.Pages[0].ID, Completed: true})
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	_, err = h.uc.MarkPage(h.ctx, MarkPageInput{LearnerID: learner.ID, PageID: uuid.New(), Completed: true})
	require.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))

	_, err = h.uc.MarkPage(h.ctx, MarkPageInput{LearnerID: uuid.New(), PageID: course.Pages[0].ID, Completed: true})
	require.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))

	_, err = h.uc.MarkPage(h.ctx, MarkPageInput{LearnerID: learner.ID, CourseID: other.Course.ID, PageID: course.Pages[0].ID, Completed: true})
	require.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestRecordPageViewDoesNotComplete(t *testing.T) {
	h := newHarness(t)
	learner := h.learner()
	course := h.course(2)
	h.mark(learner, course, 0, true)

	res, err := h.uc.RecordPageView(h.ctx, RecordPageViewInput{LearnerID: learner.ID, PageID: course.Pages[1].ID})
	require.NoError(t, err)
	require.True(t, res.Page.Viewed)
	require.False(t, res.Page.Completed)
	require.Equal(t, 50, res.CourseProgress.PercentComplete)
	require.Equal(t, course.Pages[1].ID, *res.CourseProgress.LastPageID)

	// a view on a completed page keeps it completed
	res, err = h.uc.RecordPageView(h.ctx, RecordPageViewInput{LearnerID: learner.ID, PageID: course.Pages[0].ID})
	require.NoError(t, err)
	require.True(t, res.Page.Completed)
	require.NotNil(t, res.Page.CompletedAt)
}

func TestRetryCertificateRequiresCompletion(t *testing.T) {
	h := newHarness(t)
	learner := h.learner()
	course := h.course(2)
	h.mark(learner, course, 0, true)

	res, err := h.uc.RetryCertificate(h.ctx, learner.ID, course.Course.ID)
	require.True(t, domainagg.IsCode(err, domainagg.CodePreconditionFailed), "got %v", err)
	require.NotNil(t, res.CourseProgress)
	require.Equal(t, 50, res.CourseProgress.PercentComplete)
}
