package progress

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage format of StreakState.LastActivityDate.
const DateLayout = "2006-01-02"

type StreakTransition string

const (
	StreakStarted   StreakTransition = "started"
	StreakUnchanged StreakTransition = "unchanged"
	StreakExtended  StreakTransition = "extended"
	StreakReset     StreakTransition = "reset"
)

// LocalDate returns the calendar date of now in loc (UTC when loc is nil).
func LocalDate(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}

// DaysBetween returns to - from in whole calendar days.
func DaysBetween(from, to string) (int, error) {
	a, err := time.Parse(DateLayout, strings.TrimSpace(from))
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", from, err)
	}
	b, err := time.Parse(DateLayout, strings.TrimSpace(to))
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", to, err)
	}
	return int(b.Sub(a).Hours() / 24), nil
}

// AdvanceStreak applies one day of activity to prev. prev may be nil for a
// learner without any recorded activity. The returned state is a copy; prev is
// not modified.
func AdvanceStreak(prev *StreakState, today string) (StreakState, StreakTransition, error) {
	if _, err := time.Parse(DateLayout, today); err != nil {
		return StreakState{}, "", fmt.Errorf("parse date %q: %w", today, err)
	}
	if prev == nil || strings.TrimSpace(prev.LastActivityDate) == "" {
		next := StreakState{CurrentStreak: 1, LongestStreak: 1, LastActivityDate: today}
		if prev != nil {
			next.ID = prev.ID
			next.LearnerID = prev.LearnerID
			next.Version = prev.Version
			next.CreatedAt = prev.CreatedAt
			if prev.LongestStreak > next.LongestStreak {
				next.LongestStreak = prev.LongestStreak
			}
		}
		return next, StreakStarted, nil
	}

	next := *prev
	if prev.LastActivityDate == today {
		return next, StreakUnchanged, nil
	}
	days, err := DaysBetween(prev.LastActivityDate, today)
	if err != nil {
		return StreakState{}, "", err
	}

	transition := StreakReset
	if days == 1 {
		next.CurrentStreak++
		transition = StreakExtended
	} else {
		// covers gaps and clock skew (today before the last recorded day)
		next.CurrentStreak = 1
	}
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	next.LastActivityDate = today
	return next, transition, nil
}
