package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	"gorm.io/gorm"
)

func SeedLearner(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.User {
	tb.Helper()
	now := time.Now().UTC()
	u := &types.User{
		ID:          uuid.New(),
		DisplayName: "learner",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	u.Email = fmt.Sprintf("learner-%s@example.test", u.ID)
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed learner: %v", err)
	}
	return u
}

// CourseFixture is a seeded course with its pages in catalog order.
type CourseFixture struct {
	Course   *types.Course
	Sections []*types.CourseSection
	Pages    []*types.ContentPage
}

func (f CourseFixture) PageIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(f.Pages))
	for _, p := range f.Pages {
		out = append(out, p.ID)
	}
	return out
}

// SeedCourse creates a course with one section per entry of pagesPerSection.
func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, pagesPerSection ...int) CourseFixture {
	tb.Helper()
	now := time.Now().UTC()
	c := &types.Course{ID: uuid.New(), Title: "course", CreatedAt: now, UpdatedAt: now}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	f := CourseFixture{Course: c}
	for si, n := range pagesPerSection {
		s := &types.CourseSection{
			ID:        uuid.New(),
			CourseID:  c.ID,
			Position:  si,
			Title:     fmt.Sprintf("section %d", si+1),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(s).Error; err != nil {
			tb.Fatalf("seed section: %v", err)
		}
		f.Sections = append(f.Sections, s)
		for pi := 0; pi < n; pi++ {
			p := &types.ContentPage{
				ID:        uuid.New(),
				SectionID: s.ID,
				Position:  pi,
				Title:     fmt.Sprintf("page %d.%d", si+1, pi+1),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(p).Error; err != nil {
				tb.Fatalf("seed page: %v", err)
			}
			f.Pages = append(f.Pages, p)
		}
	}
	return f
}

func SeedComments(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, n int) []*types.Comment {
	tb.Helper()
	now := time.Now().UTC()
	out := make([]*types.Comment, 0, n)
	for i := 0; i < n; i++ {
		c := &types.Comment{
			ID:        uuid.New(),
			UserID:    userID,
			Body:      fmt.Sprintf("comment %d", i+1),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(c).Error; err != nil {
			tb.Fatalf("seed comment: %v", err)
		}
		out = append(out, c)
	}
	return out
}

func SeedStreak(tb testing.TB, ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, current, longest int, lastDate string) *types.StreakState {
	tb.Helper()
	now := time.Now().UTC()
	s := &types.StreakState{
		ID:               uuid.New(),
		LearnerID:        learnerID,
		CurrentStreak:    current,
		LongestStreak:    longest,
		LastActivityDate: lastDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed streak: %v", err)
	}
	return s
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

func PtrBool(v bool) *bool { return &v }
