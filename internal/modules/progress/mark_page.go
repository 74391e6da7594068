package progress

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-progress/internal/domain"
	domainagg "github.com/yungbote/neurobridge-progress/internal/domain/aggregates"
)

type MarkPageInput struct {
	LearnerID uuid.UUID
	PageID    uuid.UUID
	// CourseID is optional; when set the page must belong to it.
	CourseID  uuid.UUID
	Completed bool
}

type MarkPageResult struct {
	CompletedCount  int
	TotalPages      int
	PercentComplete int
	CourseCompleted bool
	CourseProgress  *types.CourseProgress
	Page            *types.PageProgress

	// Certificate is nil when the course is not complete or issuance failed.
	Certificate       *types.Certificate
	CertificateIssued bool
	CertificateError  error

	// Streak is nil when the streak step did not run or failed.
	Streak          *types.StreakState
	NewAchievements []*types.AchievementUnlock

	// SideEffects lists isolated failures. They never fail the call.
	SideEffects []*SideEffectError
}

// MarkPage records a completion or un-completion and runs the cascade.
//
// Only the ledger write and the course recompute can fail the call. Streak and
// achievement failures are logged and dropped. A certificate failure is
// reported in CertificateError next to the committed progress.
func (u Usecases) MarkPage(ctx context.Context, in MarkPageInput) (MarkPageResult, error) {
	if in.LearnerID == uuid.Nil || in.PageID == uuid.Nil {
		return MarkPageResult{}, domainagg.NewError(domainagg.CodeValidation, "progress.mark_page", "learner_id and page_id are required", nil)
	}
	now := u.now()
	kv := []interface{}{"learner_id", in.LearnerID, "page_id", in.PageID}

	completed := in.Completed
	ledger := runStep(ctx, u, StepWriteLedger, func(ctx context.Context) (domainagg.RecordPageResult, error) {
		return u.deps.Pages.RecordPage(ctx, domainagg.RecordPageInput{
			LearnerID: in.LearnerID,
			CourseID:  in.CourseID,
			PageID:    in.PageID,
			Completed: &completed,
			At:        now,
		})
	})
	if !ledger.ok() {
		return MarkPageResult{}, ledger.Err
	}
	courseID := ledger.Value.CourseID
	kv = append(kv, "course_id", courseID)

	course := runStep(ctx, u, StepRecompute, func(ctx context.Context) (domainagg.RecomputeCourseResult, error) {
		return u.deps.Pages.RecomputeCourse(ctx, domainagg.RecomputeCourseInput{
			LearnerID:     in.LearnerID,
			CourseID:      courseID,
			TriggerPageID: in.PageID,
			At:            now,
		})
	})
	if !course.ok() {
		return MarkPageResult{}, course.Err
	}

	out := MarkPageResult{
		CompletedCount:  course.Value.Aggregate.CompletedCount,
		TotalPages:      course.Value.Aggregate.TotalPages,
		PercentComplete: course.Value.Progress.PercentComplete,
		CourseCompleted: course.Value.Progress.Completed,
		CourseProgress:  course.Value.Progress,
		Page:            ledger.Value.Page,
		NewAchievements: []*types.AchievementUnlock{},
	}
	if course.Value.JustCompleted {
		u.deps.Metrics.IncCourseCompleted()
	}
	if !in.Completed {
		return out, nil
	}

	// Streaks count days with a new completion; re-marking a finished page is not activity.
	if ledger.Value.NewlyCompleted {
		streak := isolate(ctx, u, StepStreak, kv, func(ctx context.Context) (domainagg.RegisterActivityResult, error) {
			return u.deps.Streak.RegisterActivity(ctx, domainagg.RegisterActivityInput{LearnerID: in.LearnerID, Now: now})
		})
		if streak.ok() {
			st := streak.Value.State
			out.Streak = &st
		} else {
			out.SideEffects = append(out.SideEffects, streak.Err.(*SideEffectError))
		}
	}

	unlocked := isolate(ctx, u, StepAchievements, kv, func(ctx context.Context) ([]*types.AchievementUnlock, error) {
		return u.EvaluateAndUnlock(ctx, in.LearnerID)
	})
	if unlocked.ok() {
		out.NewAchievements = append(out.NewAchievements, unlocked.Value...)
	} else {
		out.SideEffects = append(out.SideEffects, unlocked.Err.(*SideEffectError))
	}

	if !out.CourseCompleted {
		return out, nil
	}
	cert := u.issueCertificate(ctx, in.LearnerID, courseID, course.Value.Progress, kv)
	out.Certificate = cert.Certificate
	out.CertificateIssued = cert.Created
	out.CertificateError = cert.Err
	out.NewAchievements = append(out.NewAchievements, cert.Achievements...)
	out.SideEffects = append(out.SideEffects, cert.SideEffects...)
	return out, nil
}

type certificateOutcome struct {
	Certificate  *types.Certificate
	Created      bool
	Err          error
	Achievements []*types.AchievementUnlock
	SideEffects  []*SideEffectError
}

// issueCertificate mints (or returns) the certificate and, on first issuance,
// publishes the event and re-evaluates certificate achievements.
func (u Usecases) issueCertificate(ctx context.Context, learnerID, courseID uuid.UUID, cp *types.CourseProgress, kv []interface{}) certificateOutcome {
	var out certificateOutcome
	issued := runStep(ctx, u, StepCertificate, func(ctx context.Context) (domainagg.IssueCertificateResult, error) {
		return u.deps.Issuer.IssueIfEligible(ctx, domainagg.IssueCertificateInput{
			LearnerID:      learnerID,
			CourseID:       courseID,
			CourseProgress: cp,
			At:             u.now(),
		})
	})
	if !issued.ok() {
		fields := append([]interface{}{"step", StepCertificate}, kv...)
		u.deps.Log.Warn("certificate issuance failed", append(fields, "error", issued.Err)...)
		u.deps.Metrics.IncSideEffectFailure(StepCertificate)
		out.Err = issued.Err
		return out
	}
	out.Certificate = issued.Value.Certificate
	out.Created = issued.Value.Created
	if !out.Created {
		return out
	}
	u.deps.Metrics.IncCertificateIssued()

	published := isolate(ctx, u, StepPublishEvent, kv, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, u.deps.Events.PublishCertificateIssued(ctx, out.Certificate)
	})
	if !published.ok() {
		out.SideEffects = append(out.SideEffects, published.Err.(*SideEffectError))
	}

	unlocked := isolate(ctx, u, StepCertAchievements, kv, func(ctx context.Context) ([]*types.AchievementUnlock, error) {
		return u.EvaluateAndUnlock(ctx, learnerID)
	})
	if unlocked.ok() {
		out.Achievements = unlocked.Value
	} else {
		out.SideEffects = append(out.SideEffects, unlocked.Err.(*SideEffectError))
	}
	return out
}

type RecordPageViewInput struct {
	LearnerID uuid.UUID
	PageID    uuid.UUID
	CourseID  uuid.UUID
}

type RecordPageViewResult struct {
	Page           *types.PageProgress
	CourseProgress *types.CourseProgress
}

// RecordPageView marks the page as viewed and refreshes the course's last
// page without touching completion or running the cascade.
func (u Usecases) RecordPageView(ctx context.Context, in RecordPageViewInput) (RecordPageViewResult, error) {
	now := u.now()
	rec, err := u.deps.Pages.RecordPage(ctx, domainagg.RecordPageInput{
		LearnerID: in.LearnerID,
		CourseID:  in.CourseID,
		PageID:    in.PageID,
		At:        now,
	})
	if err != nil {
		return RecordPageViewResult{}, err
	}
	rc, err := u.deps.Pages.RecomputeCourse(ctx, domainagg.RecomputeCourseInput{
		LearnerID:     in.LearnerID,
		CourseID:      rec.CourseID,
		TriggerPageID: in.PageID,
		At:            now,
	})
	if err != nil {
		return RecordPageViewResult{}, err
	}
	return RecordPageViewResult{Page: rec.Page, CourseProgress: rc.Progress}, nil
}

type RetryCertificateResult struct {
	Certificate     *types.Certificate
	Created         bool
	CourseProgress  *types.CourseProgress
	NewAchievements []*types.AchievementUnlock
}

// RetryCertificate re-derives course progress and issues the certificate if
// the course is complete. It is safe to call any number of times.
func (u Usecases) RetryCertificate(ctx context.Context, learnerID, courseID uuid.UUID) (RetryCertificateResult, error) {
	const op = "progress.certificate.retry"
	if learnerID == uuid.Nil || courseID == uuid.Nil {
		return RetryCertificateResult{}, domainagg.NewError(domainagg.CodeValidation, op, "learner_id and course_id are required", nil)
	}
	rc, err := u.deps.Pages.RecomputeCourse(ctx, domainagg.RecomputeCourseInput{
		LearnerID: learnerID,
		CourseID:  courseID,
		At:        u.now(),
	})
	if err != nil {
		return RetryCertificateResult{}, err
	}
	if !rc.Progress.Completed {
		return RetryCertificateResult{CourseProgress: rc.Progress}, domainagg.NewError(domainagg.CodePreconditionFailed, op, "course is not complete", nil)
	}
	kv := []interface{}{"learner_id", learnerID, "course_id", courseID}
	cert := u.issueCertificate(ctx, learnerID, courseID, rc.Progress, kv)
	if cert.Err != nil {
		return RetryCertificateResult{CourseProgress: rc.Progress}, cert.Err
	}
	achievements := cert.Achievements
	if achievements == nil {
		achievements = []*types.AchievementUnlock{}
	}
	return RetryCertificateResult{
		Certificate:     cert.Certificate,
		Created:         cert.Created,
		CourseProgress:  rc.Progress,
		NewAchievements: achievements,
	}, nil
}
