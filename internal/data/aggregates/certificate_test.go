package aggregates

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/neurobridge-progress/internal/data/repos"
	repotest "github.com/yungbote/neurobridge-progress/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	domainagg "github.com/yungbote/neurobridge-progress/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
	"gorm.io/gorm"
)

func newCertificateAggregate(t *testing.T, db *gorm.DB, gen NumberGenerator) (domainagg.CertificateAggregate, repos.CertificateRepo) {
	t.Helper()
	log := repotest.Logger(t)
	certs := repos.NewSet(db, log).Certificates
	return NewCertificateAggregate(CertificateAggregateDeps{
		Base:         BaseDeps{DB: db, Log: log},
		Certificates: certs,
		NewNumber:    gen,
	}), certs
}

func completedProgress(learnerID, courseID uuid.UUID) *types.CourseProgress {
	now := time.Now().UTC()
	return &types.CourseProgress{
		ID:              uuid.New(),
		LearnerID:       learnerID,
		CourseID:        courseID,
		PercentComplete: 100,
		Completed:       true,
		CompletedAt:     &now,
	}
}

func TestNewCertificateNumberFormat(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	re := regexp.MustCompile(`^CERT-20240309-[0-9A-F]{10}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := NewCertificateNumber("", at)
		if !re.MatchString(n) {
			t.Fatalf("bad number %q", n)
		}
		seen[n] = true
	}
	if len(seen) < 50 {
		t.Fatalf("expected distinct numbers, got %d unique of 50", len(seen))
	}
	if n := NewCertificateNumber(" nb ", at); n[:3] != "NB-" {
		t.Fatalf("prefix not normalised: %q", n)
	}
}

func TestIssueIfEligibleRequiresCompletedCourse(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	agg, certs := newCertificateAggregate(t, db, nil)
	learner, course := uuid.New(), uuid.New()

	incomplete := completedProgress(learner, course)
	incomplete.Completed = false
	incomplete.PercentComplete = 75
	incomplete.CompletedAt = nil

	for name, cp := range map[string]*types.CourseProgress{"missing": nil, "incomplete": incomplete} {
		_, err := agg.IssueIfEligible(ctx, domainagg.IssueCertificateInput{LearnerID: learner, CourseID: course, CourseProgress: cp})
		if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
			t.Fatalf("%s: want precondition_failed, got %v", name, err)
		}
	}
	_, err := agg.IssueIfEligible(ctx, domainagg.IssueCertificateInput{
		LearnerID:      learner,
		CourseID:       course,
		CourseProgress: completedProgress(uuid.New(), course),
	})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("mismatched progress: want validation, got %v", err)
	}

	got, err := certs.GetByLearnerCourse(dbctx.Background(ctx), learner, course)
	if err != nil || got != nil {
		t.Fatalf("no certificate expected, got %+v err=%v", got, err)
	}
}

func TestIssueIfEligibleIsIdempotent(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	agg, _ := newCertificateAggregate(t, db, nil)
	learner, course := uuid.New(), uuid.New()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	first, err := agg.IssueIfEligible(ctx, domainagg.IssueCertificateInput{
		LearnerID: learner, CourseID: course, CourseProgress: completedProgress(learner, course), At: at,
	})
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	if !first.Created || first.Certificate == nil {
		t.Fatalf("expected a new certificate, got %+v", first)
	}
	if !first.Certificate.IssuedAt.Equal(at) || !first.Certificate.CompletedAt.Equal(at) {
		t.Fatalf("timestamps: %+v", first.Certificate)
	}

	second, err := agg.IssueIfEligible(ctx, domainagg.IssueCertificateInput{
		LearnerID: learner, CourseID: course, CourseProgress: completedProgress(learner, course), At: at.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if second.Created {
		t.Fatalf("second call must not mint")
	}
	if second.Certificate.CertificateNumber != first.Certificate.CertificateNumber {
		t.Fatalf("number changed: %s vs %s", second.Certificate.CertificateNumber, first.Certificate.CertificateNumber)
	}
}

func TestIssueIfEligibleConcurrentCallersShareOneCertificate(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	agg, _ := newCertificateAggregate(t, db, nil)
	learner, course := uuid.New(), uuid.New()

	const callers = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]int{}
		created int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := agg.IssueIfEligible(ctx, domainagg.IssueCertificateInput{
				LearnerID: learner, CourseID: course, CourseProgress: completedProgress(learner, course),
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				t.Errorf("IssueIfEligible: %v", err)
				return
			}
			numbers[res.Certificate.CertificateNumber]++
			if res.Created {
				created++
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(numbers) != 1 {
		t.Fatalf("callers saw different certificates: %v", numbers)
	}
	if created != 1 {
		t.Fatalf("created count: want=1 got=%d", created)
	}
	var count int64
	if err := db.Model(&types.Certificate{}).Where("learner_id = ? AND course_id = ?", learner, course).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows: want=1 got=%d", count)
	}
}

func TestIssueIfEligibleRegeneratesCollidingNumber(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	taken := "CERT-20240101-" + uuid.NewString()[:10]

	other := uuid.New()
	_, certs := newCertificateAggregate(t, db, nil)
	if err := certs.Create(dbctx.Background(ctx), &types.Certificate{
		ID:                uuid.New(),
		LearnerID:         other,
		CourseID:          uuid.New(),
		CertificateNumber: taken,
		CompletedAt:       time.Now().UTC(),
		IssuedAt:          time.Now().UTC(),
		CreatedAt:         time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed certificate: %v", err)
	}

	var calls atomic.Int32
	gen := func(prefix string, at time.Time) string {
		if calls.Add(1) == 1 {
			return taken
		}
		return NewCertificateNumber(prefix, at)
	}
	agg, _ := newCertificateAggregate(t, db, gen)
	learner, course := uuid.New(), uuid.New()
	res, err := agg.IssueIfEligible(ctx, domainagg.IssueCertificateInput{
		LearnerID: learner, CourseID: course, CourseProgress: completedProgress(learner, course),
	})
	if err != nil {
		t.Fatalf("IssueIfEligible: %v", err)
	}
	if !res.Created || res.Certificate.CertificateNumber == taken {
		t.Fatalf("expected a fresh number, got %+v", res.Certificate)
	}
	if calls.Load() != 2 {
		t.Fatalf("generator calls: want=2 got=%d", calls.Load())
	}
}

func TestIssueIfEligibleGivesUpAfterRepeatedCollisions(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	taken := "CERT-20240101-" + uuid.NewString()[:10]
	_, certs := newCertificateAggregate(t, db, nil)
	if err := certs.Create(dbctx.Background(ctx), &types.Certificate{
		ID:                uuid.New(),
		LearnerID:         uuid.New(),
		CourseID:          uuid.New(),
		CertificateNumber: taken,
		CompletedAt:       time.Now().UTC(),
		IssuedAt:          time.Now().UTC(),
		CreatedAt:         time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed certificate: %v", err)
	}

	agg, _ := newCertificateAggregate(t, db, func(string, time.Time) string { return taken })
	learner, course := uuid.New(), uuid.New()
	_, err := agg.IssueIfEligible(ctx, domainagg.IssueCertificateInput{
		LearnerID: learner, CourseID: course, CourseProgress: completedProgress(learner, course),
	})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("want retryable, got %v", err)
	}
}
