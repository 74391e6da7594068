package progress

import "fmt"

// Pipeline step names, used for span names and metric labels.
const (
	StepWriteLedger      = "write_ledger"
	StepRecompute        = "recompute_course"
	StepStreak           = "update_streak"
	StepAchievements     = "evaluate_achievements"
	StepCertificate      = "issue_certificate"
	StepPublishEvent     = "publish_certificate_event"
	StepCertAchievements = "evaluate_certificate_achievements"
)

// SideEffectError is a failure of a step that is not allowed to fail the call.
type SideEffectError struct {
	Step string
	Err  error
}

func (e *SideEffectError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *SideEffectError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
