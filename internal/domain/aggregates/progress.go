package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/neurobridge-progress/internal/domain/progress"
)

var PageProgressAggregateContract = Contract{
	Name:             "Progress.PageProgressAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Idempotent:       true,
	Notes: "Owns the (learner, page) ledger upsert and the from-scratch recompute of " +
		"(learner, course) progress. The two are separate write boundaries.",
}

// PageProgressAggregate owns the Progress Ledger and the Module Aggregator.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeRetryable, CodeInternal.
type PageProgressAggregate interface {
	Aggregate

	// RecordPage upserts the ledger row for (learner, page).
	RecordPage(ctx context.Context, in RecordPageInput) (RecordPageResult, error)

	// RecomputeCourse rebuilds CourseProgress from the ledger and the course page set.
	RecomputeCourse(ctx context.Context, in RecomputeCourseInput) (RecomputeCourseResult, error)
}

type RecordPageInput struct {
	LearnerID uuid.UUID
	CourseID  uuid.UUID
	PageID    uuid.UUID
	// Completed nil records a view only and leaves completion untouched.
	Completed *bool
	At        time.Time
}

type RecordPageResult struct {
	Page *progress.PageProgress
	// CourseID is the course the page belongs to, resolved from the catalog.
	CourseID uuid.UUID
	Created bool
	// NewlyCompleted is true when this call moved the page from not completed to completed.
	NewlyCompleted bool
}

type RecomputeCourseInput struct {
	LearnerID     uuid.UUID
	CourseID      uuid.UUID
	TriggerPageID uuid.UUID
	At            time.Time
}

type RecomputeCourseResult struct {
	Progress  *progress.CourseProgress
	Aggregate progress.CourseAggregate
	// JustCompleted is true when completedAt was stamped by this call.
	JustCompleted bool
}

var StreakAggregateContract = Contract{
	Name:             "Progress.StreakAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Idempotent:       true,
	Notes: "Owns the per-learner streak state machine. Read-modify-write is a version " +
		"compare-and-swap retried on conflict.",
}

// StreakAggregate owns StreakState writes.
type StreakAggregate interface {
	Aggregate

	RegisterActivity(ctx context.Context, in RegisterActivityInput) (RegisterActivityResult, error)
}

type RegisterActivityInput struct {
	LearnerID uuid.UUID
	Now       time.Time
}

type RegisterActivityResult struct {
	State      progress.StreakState
	Transition progress.StreakTransition
	Attempts   int
}

var AchievementAggregateContract = Contract{
	Name:             "Progress.AchievementAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Idempotent:       true,
	Notes:            "Owns write-once AchievementUnlock rows; duplicate unlocks are benign no-ops.",
}

// AchievementAggregate inserts unlocks for definitions whose predicate already held.
type AchievementAggregate interface {
	Aggregate

	Unlock(ctx context.Context, in UnlockAchievementsInput) (UnlockAchievementsResult, error)
}

type UnlockAchievementsInput struct {
	LearnerID   uuid.UUID
	Definitions []*progress.AchievementDefinition
	Stats       progress.Stats
	At          time.Time
}

type UnlockAchievementsResult struct {
	// Unlocked holds only rows inserted by this call.
	Unlocked []*progress.AchievementUnlock
}

var CertificateAggregateContract = Contract{
	Name:             "Progress.CertificateAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Idempotent:       true,
	Notes:            "Owns exactly-once Certificate issuance per (learner, course).",
}

// CertificateAggregate mints certificates.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodePreconditionFailed, CodeConflict, CodeRetryable, CodeInternal.
type CertificateAggregate interface {
	Aggregate

	IssueIfEligible(ctx context.Context, in IssueCertificateInput) (IssueCertificateResult, error)
}

type IssueCertificateInput struct {
	LearnerID      uuid.UUID
	CourseID       uuid.UUID
	CourseProgress *progress.CourseProgress
	At             time.Time
}

type IssueCertificateResult struct {
	Certificate *progress.Certificate
	// Created is false when an existing certificate was returned.
	Created bool
}
