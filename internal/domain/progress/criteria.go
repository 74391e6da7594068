package progress

import (
	"fmt"
	"strings"
)

// Predicate names understood by the achievement evaluator.
const (
	PredicateLessonsCompleted   = "lessons_completed"
	PredicateStreak             = "streak"
	PredicateCertificatesEarned = "certificates_earned"
	PredicateCommentsPosted     = "comments_posted"
)

// Stats is the learner snapshot achievement predicates are evaluated against.
type Stats struct {
	CurrentStreak      int `json:"current_streak"`
	LongestStreak      int `json:"longest_streak"`
	LessonsCompleted   int `json:"lessons_completed"`
	CertificatesEarned int `json:"certificates_earned"`
	CommentsPosted     int `json:"comments_posted"`
}

func KnownPredicate(name string) bool {
	switch strings.TrimSpace(name) {
	case PredicateLessonsCompleted, PredicateStreak, PredicateCertificatesEarned, PredicateCommentsPosted:
		return true
	}
	return false
}

// EvaluatePredicate reports whether stats satisfy the named threshold rule.
func EvaluatePredicate(name string, threshold int, stats Stats) (bool, error) {
	switch strings.TrimSpace(name) {
	case PredicateLessonsCompleted:
		return stats.LessonsCompleted >= threshold, nil
	case PredicateStreak:
		return stats.CurrentStreak >= threshold || stats.LongestStreak >= threshold, nil
	case PredicateCertificatesEarned:
		return stats.CertificatesEarned >= threshold, nil
	case PredicateCommentsPosted:
		return stats.CommentsPosted >= threshold, nil
	default:
		return false, fmt.Errorf("unknown achievement predicate %q", name)
	}
}

// Satisfied evaluates the definition's predicate against stats.
func (d AchievementDefinition) Satisfied(stats Stats) (bool, error) {
	return EvaluatePredicate(d.Predicate, d.Threshold, stats)
}
