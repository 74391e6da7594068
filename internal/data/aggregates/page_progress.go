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

type PageProgressAggregateDeps struct {
	Base           BaseDeps
	Users          repos.UserRepo
	Catalog        repos.CatalogRepo
	PageProgress   repos.PageProgressRepo
	CourseProgress repos.CourseProgressRepo
}

type pageProgressAggregate struct {
	deps PageProgressAggregateDeps
}

func NewPageProgressAggregate(deps PageProgressAggregateDeps) domainagg.PageProgressAggregate {
	deps.Base = deps.Base.withDefaults()
	deps.Base.Log = deps.Base.Log.With("aggregate", "PageProgressAggregate")
	return &pageProgressAggregate{deps: deps}
}

func (a *pageProgressAggregate) Contract() domainagg.Contract {
	return domainagg.PageProgressAggregateContract
}

func (a *pageProgressAggregate) RecordPage(ctx context.Context, in domainagg.RecordPageInput) (domainagg.RecordPageResult, error) {
	const op = "progress.page.record"
	if in.LearnerID == uuid.Nil || in.PageID == uuid.Nil {
		return domainagg.RecordPageResult{}, MapError(op, ValidationError("learner_id and page_id are required"))
	}
	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	var out domainagg.RecordPageResult
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.RecordPageResult{}
		ok, err := a.deps.Users.Exists(dbc, in.LearnerID)
		if err != nil {
			return err
		}
		if !ok {
			return NotFoundError("learner not found")
		}
		ref, err := a.deps.Catalog.GetPage(dbc, in.PageID)
		if err != nil {
			return err
		}
		if ref == nil {
			return NotFoundError("page not found")
		}
		if in.CourseID != uuid.Nil && ref.CourseID != in.CourseID {
			return NotFoundError("page not found in course")
		}

		prev, err := a.deps.PageProgress.GetByLearnerPage(dbc, in.LearnerID, in.PageID)
		if err != nil {
			return err
		}
		if in.Completed == nil {
			err = a.deps.PageProgress.UpsertView(dbc, in.LearnerID, in.PageID, at)
		} else {
			err = a.deps.PageProgress.UpsertCompletion(dbc, in.LearnerID, in.PageID, *in.Completed, at)
		}
		if err != nil {
			return err
		}
		row, err := a.deps.PageProgress.GetByLearnerPage(dbc, in.LearnerID, in.PageID)
		if err != nil {
			return err
		}
		if row == nil {
			return InvariantError("ledger row missing after upsert")
		}
		if row.Completed != (row.CompletedAt != nil) {
			return InvariantError("completed and completed_at disagree")
		}
		out.Page = row
		out.CourseID = ref.CourseID
		out.Created = prev == nil
		out.NewlyCompleted = row.Completed && (prev == nil || !prev.Completed)
		return nil
	})
	if err != nil {
		return domainagg.RecordPageResult{}, err
	}
	return out, nil
}

func (a *pageProgressAggregate) RecomputeCourse(ctx context.Context, in domainagg.RecomputeCourseInput) (domainagg.RecomputeCourseResult, error) {
	const op = "progress.course.recompute"
	if in.LearnerID == uuid.Nil || in.CourseID == uuid.Nil {
		return domainagg.RecomputeCourseResult{}, MapError(op, ValidationError("learner_id and course_id are required"))
	}
	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	var out domainagg.RecomputeCourseResult
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.RecomputeCourseResult{}
		course, err := a.deps.Catalog.GetCourse(dbc, in.CourseID)
		if err != nil {
			return err
		}
		if course == nil {
			return NotFoundError("course not found")
		}
		prev, _, err := a.deps.CourseProgress.LockByLearnerCourse(dbc, in.LearnerID, in.CourseID, at)
		if err != nil {
			return err
		}
		if prev == nil {
			return InvariantError("course progress missing after lock")
		}

		refs, err := a.deps.Catalog.ListPages(dbc, in.CourseID)
		if err != nil {
			return err
		}
		pageIDs := make([]uuid.UUID, 0, len(refs))
		for _, r := range refs {
			pageIDs = append(pageIDs, r.PageID)
		}
		rows, err := a.deps.PageProgress.ListByLearnerPages(dbc, in.LearnerID, pageIDs)
		if err != nil {
			return err
		}
		agg := progress.ComputeCourseAggregate(pageIDs, rows)

		row := &types.CourseProgress{
			LearnerID:       in.LearnerID,
			CourseID:        in.CourseID,
			PercentComplete: agg.PercentComplete,
			Completed:       agg.Completed,
			LastAccessedAt:  at,
			CreatedAt:       at,
			UpdatedAt:       at,
		}
		switch {
		case in.TriggerPageID != uuid.Nil:
			row.LastPageID = &in.TriggerPageID
		default:
			row.LastPageID = prev.LastPageID
		}
		if agg.Completed {
			row.CompletedAt = &at
		}
		if err := a.deps.CourseProgress.Upsert(dbc, row); err != nil {
			return err
		}
		saved, err := a.deps.CourseProgress.GetByLearnerCourse(dbc, in.LearnerID, in.CourseID)
		if err != nil {
			return err
		}
		if saved == nil {
			return InvariantError("course progress missing after upsert")
		}
		if saved.Completed != (saved.PercentComplete == 100) {
			return InvariantError("completed and percent_complete disagree")
		}
		out.Progress = saved
		out.Aggregate = agg
		out.JustCompleted = agg.Completed && prev.CompletedAt == nil
		return nil
	})
	if err != nil {
		return domainagg.RecomputeCourseResult{}, err
	}
	return out, nil
}
