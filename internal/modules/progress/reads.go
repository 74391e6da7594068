package progress

import (
	"context"
	"strings"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/neurobridge-progress/internal/data/aggregates"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	domainagg "github.com/yungbote/neurobridge-progress/internal/domain/aggregates"
	domainprogress "github.com/yungbote/neurobridge-progress/internal/domain/progress"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
)

type CourseProgressView struct {
	CompletedPages  map[uuid.UUID]bool
	TotalPages      int
	CompletedCount  int
	PercentComplete int
	Completed       bool
	// CourseProgress is the stored row, nil before the first interaction.
	CourseProgress *types.CourseProgress
}

// GetCourseProgress derives the per-page map straight from the ledger; the
// stored CourseProgress row is returned alongside for lastPage/completedAt.
func (u Usecases) GetCourseProgress(ctx context.Context, learnerID, courseID uuid.UUID) (CourseProgressView, error) {
	const op = "progress.course.get"
	if learnerID == uuid.Nil || courseID == uuid.Nil {
		return CourseProgressView{}, domainagg.NewError(domainagg.CodeValidation, op, "learner_id and course_id are required", nil)
	}
	dbc := dbctx.Background(ctx)
	known, err := u.deps.Users.Exists(dbc, learnerID)
	if err != nil {
		return CourseProgressView{}, dataagg.MapError(op, err)
	}
	if !known {
		return CourseProgressView{}, domainagg.NewError(domainagg.CodeNotFound, op, "learner not found", nil)
	}
	course, err := u.deps.Catalog.GetCourse(dbc, courseID)
	if err != nil {
		return CourseProgressView{}, dataagg.MapError(op, err)
	}
	if course == nil {
		return CourseProgressView{}, domainagg.NewError(domainagg.CodeNotFound, op, "course not found", nil)
	}
	refs, err := u.deps.Catalog.ListPages(dbc, courseID)
	if err != nil {
		return CourseProgressView{}, dataagg.MapError(op, err)
	}
	pageIDs := make([]uuid.UUID, 0, len(refs))
	for _, r := range refs {
		pageIDs = append(pageIDs, r.PageID)
	}
	rows, err := u.deps.PageProgress.ListByLearnerPages(dbc, learnerID, pageIDs)
	if err != nil {
		return CourseProgressView{}, dataagg.MapError(op, err)
	}
	agg := domainprogress.ComputeCourseAggregate(pageIDs, rows)
	stored, err := u.deps.CourseProgress.GetByLearnerCourse(dbc, learnerID, courseID)
	if err != nil {
		return CourseProgressView{}, dataagg.MapError(op, err)
	}
	return CourseProgressView{
		CompletedPages:  agg.CompletedPages,
		TotalPages:      agg.TotalPages,
		CompletedCount:  agg.CompletedCount,
		PercentComplete: agg.PercentComplete,
		Completed:       agg.Completed,
		CourseProgress:  stored,
	}, nil
}

type StreakView struct {
	CurrentStreak    int    `json:"current_streak"`
	LongestStreak    int    `json:"longest_streak"`
	LastActivityDate string `json:"last_activity_date,omitempty"`
	ActiveToday      bool   `json:"active_today"`
}

// GetStreak reports the streak as of now. A stored streak whose last day is
// older than yesterday is already broken and reads as zero.
func (u Usecases) GetStreak(ctx context.Context, learnerID uuid.UUID) (StreakView, error) {
	const op = "progress.streak.get"
	if learnerID == uuid.Nil {
		return StreakView{}, domainagg.NewError(domainagg.CodeValidation, op, "learner_id is required", nil)
	}
	st, err := u.deps.Streaks.GetByLearner(dbctx.Background(ctx), learnerID)
	if err != nil {
		return StreakView{}, dataagg.MapError(op, err)
	}
	if st == nil {
		return StreakView{}, nil
	}
	view := StreakView{
		CurrentStreak:    st.CurrentStreak,
		LongestStreak:    st.LongestStreak,
		LastActivityDate: st.LastActivityDate,
	}
	today := domainprogress.LocalDate(u.deps.Now(), u.deps.StreakLocation)
	days, err := domainprogress.DaysBetween(st.LastActivityDate, today)
	if err != nil {
		return StreakView{}, domainagg.Wrap(domainagg.CodeInvariantViolation, op, err)
	}
	switch {
	case days <= 0:
		view.ActiveToday = true
	case days == 1:
	default:
		view.CurrentStreak = 0
	}
	return view, nil
}

func (u Usecases) ListCertificates(ctx context.Context, learnerID uuid.UUID) ([]*types.Certificate, error) {
	if learnerID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, "progress.certificate.list", "learner_id is required", nil)
	}
	rows, err := u.deps.Certificates.ListByLearner(dbctx.Background(ctx), learnerID)
	if err != nil {
		return nil, dataagg.MapError("progress.certificate.list", err)
	}
	return rows, nil
}

// VerifyCertificate looks a certificate up by its public number.
func (u Usecases) VerifyCertificate(ctx context.Context, number string) (*types.Certificate, error) {
	const op = "progress.certificate.verify"
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "certificate number is required", nil)
	}
	cert, err := u.deps.Certificates.GetByNumber(dbctx.Background(ctx), strings.ToUpper(number))
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if cert == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "certificate not found", nil)
	}
	return cert, nil
}
