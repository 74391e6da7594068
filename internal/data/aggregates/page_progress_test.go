package aggregates

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/neurobridge-progress/internal/data/repos"
	repotest "github.com/yungbote/neurobridge-progress/internal/data/repos/testutil"
	domainagg "github.com/yungbote/neurobridge-progress/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
	"gorm.io/gorm"
)

func newPageProgressAggregate(t *testing.T, db *gorm.DB, runner TxRunner) (domainagg.PageProgressAggregate, repos.Set) {
	t.Helper()
	log := repotest.Logger(t)
	set := repos.NewSet(db, log)
	agg := NewPageProgressAggregate(PageProgressAggregateDeps{
		Base:           BaseDeps{DB: db, Log: log, Runner: runner},
		Users:          set.Users,
		Catalog:        set.Catalog,
		PageProgress:   set.PageProgress,
		CourseProgress: set.CourseProgress,
	})
	return agg, set
}

func completed(v bool) *bool { return &v }

func TestRecordPageValidationAndNotFound(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	agg, _ := newPageProgressAggregate(t, db, nil)

	learner := repotest.SeedLearner(t, ctx, db)
	course := repotest.SeedCourse(t, ctx, db, 2)
	other := repotest.SeedCourse(t, ctx, db, 1)

	cases := []struct {
		name string
		in   domainagg.RecordPageInput
		code domainagg.ErrorCode
	}{
		{"nil learner", domainagg.RecordPageInput{PageID: course.Pages[0].ID, Completed: completed(true)}, domainagg.CodeValidation},
		{"nil page", domainagg.RecordPageInput{LearnerID: learner.ID, Completed: completed(true)}, domainagg.CodeValidation},
		{"unknown learner", domainagg.RecordPageInput{LearnerID: uuid.New(), PageID: course.Pages[0].ID, Completed: completed(true)}, domainagg.CodeNotFound},
		{"unknown page", domainagg.RecordPageInput{LearnerID: learner.ID, PageID: uuid.New(), Completed: completed(true)}, domainagg.CodeNotFound},
		{"page of another course", domainagg.RecordPageInput{LearnerID: learner.ID, CourseID: course.Course.ID, PageID: other.Pages[0].ID, Completed: completed(true)}, domainagg.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := agg.RecordPage(ctx, tc.in)
			if !domainagg.IsCode(err, tc.code) {
				t.Fatalf("want %s, got %q (%v)", tc.code, domainagg.CodeOf(err), err)
			}
		})
	}
}

func TestRecordPageIsIdempotent(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	agg, set := newPageProgressAggregate(t, db, nil)

	learner := repotest.SeedLearner(t, ctx, db)
	course := repotest.SeedCourse(t, ctx, db, 4)
	page := course.Pages[0].ID
	in := domainagg.RecordPageInput{LearnerID: learner.ID, CourseID: course.Course.ID, PageID: page, Completed: completed(true)}

	first, err := agg.RecordPage(ctx, in)
	if err != nil {
		t.Fatalf("RecordPage: %v", err)
	}
	if !first.Created || !first.NewlyCompleted || first.Page.CompletedAt == nil {
		t.Fatalf("unexpected first result: %+v", first)
	}
	var percents []int
	for i := 0; i < 5; i++ {
		in.At = time.Now().Add(time.Duration(i) * time.Minute)
		res, err := agg.RecordPage(ctx, in)
		if err != nil {
			t.Fatalf("RecordPage #%d: %v", i, err)
		}
		if res.Created || res.NewlyCompleted {
			t.Fatalf("repeat call reported a transition: %+v", res)
		}
		if !res.Page.CompletedAt.Equal(*first.Page.CompletedAt) {
			t.Fatalf("completed_at changed on repeat: %v vs %v", res.Page.CompletedAt, first.Page.CompletedAt)
		}
		rc, err := agg.RecomputeCourse(ctx, domainagg.RecomputeCourseInput{LearnerID: learner.ID, CourseID: course.Course.ID, TriggerPageID: page})
		if err != nil {
			t.Fatalf("RecomputeCourse: %v", err)
		}
		percents = append(percents, rc.Progress.PercentComplete)
	}
	for _, p := range percents {
		if p != 25 {
			t.Fatalf("percent drifted under repeated calls: %v", percents)
		}
	}
	rows, err := set.PageProgress.ListByLearnerPages(dbctx.Background(ctx), learner.ID, []uuid.UUID{page})
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one ledger row, got %d err=%v", len(rows), err)
	}
}

func TestRecomputeCourseSequenceAndCompletion(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	agg, _ := newPageProgressAggregate(t, db, nil)

	learner := repotest.SeedLearner(t, ctx, db)
	course := repotest.SeedCourse(t, ctx, db, 2, 2)

	want := []int{25, 50, 75, 100}
	var firstStamp time.Time
	for i, p := range course.Pages {
		if _, err := agg.RecordPage(ctx, domainagg.RecordPageInput{LearnerID: learner.ID, CourseID: course.Course.ID, PageID: p.ID, Completed: completed(true)}); err != nil {
			t.Fatalf("RecordPage %d: %v", i, err)
		}
		rc, err := agg.RecomputeCourse(ctx, domainagg.RecomputeCourseInput{LearnerID: learner.ID, CourseID: course.Course.ID, TriggerPageID: p.ID})
		if err != nil {
			t.Fatalf("RecomputeCourse %d: %v", i, err)
		}
		if rc.Progress.PercentComplete != want[i] {
			t.Fatalf("step %d: percent=%d want %d", i, rc.Progress.PercentComplete, want[i])
		}
		if rc.Progress.LastPageID == nil || *rc.Progress.LastPageID != p.ID {
			t.Fatalf("step %d: last_page_id not the trigger page", i)
		}
		last := i == len(course.Pages)-1
		if rc.Progress.Completed != last || rc.JustCompleted != last {
			t.Fatalf("step %d: completed=%v just=%v", i, rc.Progress.Completed, rc.JustCompleted)
		}
		if last {
			firstStamp = *rc.Progress.CompletedAt
		}
	}

	// un-complete one page: completed flips back, completed_at stays
	if _, err := agg.RecordPage(ctx, domainagg.RecordPageInput{LearnerID: learner.ID, PageID: course.Pages[1].ID, Completed: completed(false)}); err != nil {
		t.Fatalf("RecordPage(false): %v", err)
	}
	rc, err := agg.RecomputeCourse(ctx, domainagg.RecomputeCourseInput{LearnerID: learner.ID, CourseID: course.Course.ID, TriggerPageID: course.Pages[1].ID})
	if err != nil {
		t.Fatalf("RecomputeCourse: %v", err)
	}
	if rc.Progress.Completed || rc.Progress.PercentComplete != 75 {
		t.Fatalf("expected 75%% incomplete, got %+v", rc.Progress)
	}
	if rc.Progress.CompletedAt == nil || !rc.Progress.CompletedAt.Equal(firstStamp) {
		t.Fatalf("completed_at must be kept after un-completion")
	}

	// re-complete: complete again but not "just" completed
	if _, err := agg.RecordPage(ctx, domainagg.RecordPageInput{LearnerID: learner.ID, PageID: course.Pages[1].ID, Completed: completed(true)}); err != nil {
		t.Fatalf("RecordPage(true): %v", err)
	}
	rc, err = agg.RecomputeCourse(ctx, domainagg.RecomputeCourseInput{LearnerID: learner.ID, CourseID: course.Course.ID, TriggerPageID: course.Pages[1].ID})
	if err != nil {
		t.Fatalf("RecomputeCourse: %v", err)
	}
	if !rc.Progress.Completed || rc.JustCompleted {
		t.Fatalf("re-completion: completed=%v just=%v", rc.Progress.Completed, rc.JustCompleted)
	}
	if !rc.Progress.CompletedAt.Equal(firstStamp) {
		t.Fatalf("completed_at must remain the first completion time")
	}
}

func TestRecomputeCourseOutOfOrderConverges(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	agg, _ := newPageProgressAggregate(t, db, nil)

	learner := repotest.SeedLearner(t, ctx, db)
	course := repotest.SeedCourse(t, ctx, db, 3)
	ops := []struct {
		page int
		done bool
	}{{2, true}, {0, true}, {2, false}, {1, true}, {2, true}, {0, false}}
	state := map[int]bool{}
	for _, op := range ops {
		if _, err := agg.RecordPage(ctx, domainagg.RecordPageInput{LearnerID: learner.ID, PageID: course.Pages[op.page].ID, Completed: completed(op.done)}); err != nil {
			t.Fatalf("RecordPage: %v", err)
		}
		state[op.page] = op.done
		rc, err := agg.RecomputeCourse(ctx, domainagg.RecomputeCourseInput{LearnerID: learner.ID, CourseID: course.Course.ID})
		if err != nil {
			t.Fatalf("RecomputeCourse: %v", err)
		}
		n := 0
		for _, v := range state {
			if v {
				n++
			}
		}
		if want := (200*n + 3) / 6; want != rc.Progress.PercentComplete {
			t.Fatalf("percent=%d want %d (completed=%d)", rc.Progress.PercentComplete, want, n)
		}
		if rc.Aggregate.CompletedCount != n {
			t.Fatalf("completed_count=%d want %d", rc.Aggregate.CompletedCount, n)
		}
	}
}

func TestRecomputeCourseEmptyAndMissing(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	agg, _ := newPageProgressAggregate(t, db, nil)
	learner := repotest.SeedLearner(t, ctx, db)
	empty := repotest.SeedCourse(t, ctx, db)

	rc, err := agg.RecomputeCourse(ctx, domainagg.RecomputeCourseInput{LearnerID: learner.ID, CourseID: empty.Course.ID})
	if err != nil {
		t.Fatalf("RecomputeCourse: %v", err)
	}
	if rc.Progress.PercentComplete != 0 || rc.Progress.Completed || rc.Aggregate.TotalPages != 0 {
		t.Fatalf("empty course must be 0%% and incomplete: %+v", rc.Progress)
	}
	if _, err := agg.RecomputeCourse(ctx, domainagg.RecomputeCourseInput{LearnerID: learner.ID, CourseID: uuid.New()}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown course: want not_found, got %v", err)
	}
}

func TestRecordPageViewDoesNotComplete(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	agg, _ := newPageProgressAggregate(t, db, nil)
	learner := repotest.SeedLearner(t, ctx, db)
	course := repotest.SeedCourse(t, ctx, db, 2)

	res, err := agg.RecordPage(ctx, domainagg.RecordPageInput{LearnerID: learner.ID, PageID: course.Pages[0].ID})
	if err != nil {
		t.Fatalf("RecordPage(view): %v", err)
	}
	if !res.Page.Viewed || res.Page.Completed || res.NewlyCompleted {
		t.Fatalf("view must not complete: %+v", res.Page)
	}
}

func TestRecordPageSurfacesStoreFailureAsRetryable(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	runner := &faultRunner{inner: NewGormTxRunner(db), failBegin: context.DeadlineExceeded}
	agg, set := newPageProgressAggregate(t, db, runner)
	learner := repotest.SeedLearner(t, ctx, db)
	course := repotest.SeedCourse(t, ctx, db, 1)

	_, err := agg.RecordPage(ctx, domainagg.RecordPageInput{LearnerID: learner.ID, PageID: course.Pages[0].ID, Completed: completed(true)})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want retryable, got %q (%v)", domainagg.CodeOf(err), err)
	}

	runner.failBegin = nil
	runner.failCommit = errors.New("commit lost")
	if _, err := agg.RecordPage(ctx, domainagg.RecordPageInput{LearnerID: learner.ID, PageID: course.Pages[0].ID, Completed: completed(true)}); err == nil {
		t.Fatalf("expected commit failure")
	}
	row, err := set.PageProgress.GetByLearnerPage(dbctx.Background(ctx), learner.ID, course.Pages[0].ID)
	if err != nil {
		t.Fatalf("GetByLearnerPage: %v", err)
	}
	if row != nil {
		t.Fatalf("rolled back write must leave no ledger row: %+v", row)
	}
}

// faultRunner fails before the body runs or rolls the real transaction back
// after it succeeded.
type faultRunner struct {
	inner      TxRunner
	failBegin  error
	failCommit error
}

func (r *faultRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if r.failBegin != nil {
		return r.failBegin
	}
	return r.inner.InTx(ctx, func(dbc dbctx.Context) error {
		if err := fn(dbc); err != nil {
			return err
		}
		return r.failCommit
	})
}

func TestRecomputeCourseConcurrentFirstCompletions(t *testing.T) {
	db := repotest.PostgresDB(t)
	ctx := context.Background()
	agg, set := newPageProgressAggregate(t, db, nil)

	const pages = 8
	for round := 0; round < 5; round++ {
		learner := repotest.SeedLearner(t, ctx, db)
		course := repotest.SeedCourse(t, ctx, db, pages)

		var wg sync.WaitGroup
		errs := make(chan error, pages)
		for _, p := range course.Pages {
			wg.Add(1)
			go func(pageID uuid.UUID) {
				defer wg.Done()
				if _, err := agg.RecordPage(ctx, domainagg.RecordPageInput{LearnerID: learner.ID, CourseID: course.Course.ID, PageID: pageID, Completed: completed(true)}); err != nil {
					errs <- err
					return
				}
				if _, err := agg.RecomputeCourse(ctx, domainagg.RecomputeCourseInput{LearnerID: learner.ID, CourseID: course.Course.ID, TriggerPageID: pageID}); err != nil {
					errs <- err
				}
			}(p.ID)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("round %d: %v", round, err)
		}

		got, err := set.CourseProgress.GetByLearnerCourse(dbctx.Background(ctx), learner.ID, course.Course.ID)
		if err != nil || got == nil {
			t.Fatalf("round %d: GetByLearnerCourse row=%v err=%v", round, got, err)
		}
		if !got.Completed || got.PercentComplete != 100 || got.CompletedAt == nil {
			t.Fatalf("round %d: last writer must see the full ledger: %+v", round, got)
		}
	}
}
