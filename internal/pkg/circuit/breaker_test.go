package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerLifecycle(t *testing.T) {
	now := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	set := NewSet(2, time.Minute)
	set.nowFn = func() time.Time { return now }

	cb := set.For("NIFTY25NOV25C24000")
	var transitions []string
	cb.SetStateChangeHandler(func(name string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	require.True(t, cb.Allow())
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	now = now.Add(time.Minute)
	assert.True(t, cb.Allow(), "probe after timeout")
	assert.Equal(t, StateHalfOpen, cb.State())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Minute)
	require.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{
		"CLOSED->OPEN", "OPEN->HALF-OPEN", "HALF-OPEN->OPEN", "OPEN->HALF-OPEN", "HALF-OPEN->CLOSED",
	}, transitions)
}

func TestSetIsolatesKeys(t *testing.T) {
	set := NewSet(1, time.Hour)
	set.For("A").RecordFailure()
	assert.False(t, set.For("A").Allow())
	assert.True(t, set.For("B").Allow())
	assert.Same(t, set.For("A"), set.For("A"))

	states := set.States()
	assert.Equal(t, StateOpen, states["A"])
	assert.Equal(t, StateClosed, states["B"])
}
