package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	domainagg "github.com/yungbote/neurobridge-progress/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-progress/internal/observability"
)

func TestIsolateWrapsFailure(t *testing.T) {
	m := observability.NewMetrics()
	u := New(UsecasesDeps{Metrics: m})
	boom := errors.New("boom")

	res := isolate(context.Background(), u, StepStreak, nil, func(context.Context) (int, error) {
		return 0, boom
	})
	require.False(t, res.ok())
	var se *SideEffectError
	require.True(t, errors.As(res.Err, &se))
	require.Equal(t, StepStreak, se.Step)
	require.ErrorIs(t, res.Err, boom)
	require.EqualValues(t, 1, m.SideEffectFailures(StepStreak))
}

func TestIsolateRecoversPanic(t *testing.T) {
	m := observability.NewMetrics()
	u := New(UsecasesDeps{Metrics: m})

	res := isolate(context.Background(), u, StepAchievements, []interface{}{"learner_id", "x"}, func(context.Context) (int, error) {
		panic("nope")
	})
	require.False(t, res.ok())
	require.True(t, domainagg.IsCode(res.Err, domainagg.CodeInternal))
	require.EqualValues(t, 1, m.SideEffectFailures(StepAchievements))
}

func TestRunStepPassesValueThrough(t *testing.T) {
	u := New(UsecasesDeps{})
	res := runStep(context.Background(), u, StepRecompute, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.True(t, res.ok())
	require.Equal(t, "ok", res.Value)
}
