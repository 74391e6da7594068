package progress

import "github.com/google/uuid"

// CourseAggregate is the result of folding a learner's ledger rows over the
// page set of one course.
type CourseAggregate struct {
	CompletedPages  map[uuid.UUID]bool `json:"completed_pages"`
	CompletedCount  int                `json:"completed_count"`
	TotalPages      int                `json:"total_pages"`
	PercentComplete int                `json:"percent_complete"`
	Completed       bool               `json:"completed"`
}

// ComputeCourseAggregate derives course completion from scratch. Rows for pages
// outside pageIDs are ignored and duplicated page ids count once, so the result
// depends only on the current ledger contents and never on call order.
func ComputeCourseAggregate(pageIDs []uuid.UUID, rows []*PageProgress) CourseAggregate {
	agg := CourseAggregate{CompletedPages: make(map[uuid.UUID]bool, len(pageIDs))}
	for _, id := range pageIDs {
		if id == uuid.Nil {
			continue
		}
		agg.CompletedPages[id] = false
	}
	for _, row := range rows {
		if row == nil || !row.Completed {
			continue
		}
		if _, ok := agg.CompletedPages[row.PageID]; ok {
			agg.CompletedPages[row.PageID] = true
		}
	}
	agg.TotalPages = len(agg.CompletedPages)
	for _, done := range agg.CompletedPages {
		if done {
			agg.CompletedCount++
		}
	}
	agg.PercentComplete = PercentOf(agg.CompletedCount, agg.TotalPages)
	agg.Completed = agg.TotalPages > 0 && agg.CompletedCount == agg.TotalPages
	return agg
}

// PercentOf rounds completed/total*100 half up using integer math only.
// An incomplete course is capped at 99 so that completed holds exactly when
// the percentage is 100; this departs from plain rounding only when
// total >= 200 and under half a percent is missing (199/200 reports 99, not 100).
func PercentOf(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	pct := (200*completed + total) / (2 * total)
	if pct > 99 {
		pct = 99
	}
	return pct
}
