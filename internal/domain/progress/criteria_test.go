package progress

import "testing"

func TestEvaluatePredicate(t *testing.T) {
	stats := Stats{CurrentStreak: 2, LongestStreak: 7, LessonsCompleted: 5, CertificatesEarned: 1, CommentsPosted: 0}
	cases := []struct {
		predicate string
		threshold int
		want      bool
	}{
		{PredicateLessonsCompleted, 5, true},
		{PredicateLessonsCompleted, 6, false},
		{PredicateStreak, 3, true},
		{PredicateStreak, 7, true},
		{PredicateStreak, 8, false},
		{PredicateCertificatesEarned, 1, true},
		{PredicateCertificatesEarned, 5, false},
		{PredicateCommentsPosted, 1, false},
	}
	for _, tc := range cases {
		got, err := EvaluatePredicate(tc.predicate, tc.threshold, stats)
		if err != nil {
			t.Fatalf("%s: %v", tc.predicate, err)
		}
		if got != tc.want {
			t.Fatalf("%s >= %d: got %v want %v", tc.predicate, tc.threshold, got, tc.want)
		}
	}
}

func TestEvaluatePredicateUnknown(t *testing.T) {
	if _, err := EvaluatePredicate("quizzes_passed", 1, Stats{}); err == nil {
		t.Fatalf("expected error for unknown predicate")
	}
	if KnownPredicate("quizzes_passed") || !KnownPredicate(PredicateStreak) {
		t.Fatalf("KnownPredicate mismatch")
	}
}

func TestDefinitionSatisfied(t *testing.T) {
	def := AchievementDefinition{Code: "lessons_5", Predicate: PredicateLessonsCompleted, Threshold: 5}
	ok, err := def.Satisfied(Stats{LessonsCompleted: 5})
	if err != nil || !ok {
		t.Fatalf("Satisfied=%v err=%v", ok, err)
	}
}
