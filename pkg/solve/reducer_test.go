package solve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonyyueyu/optimization/pkg/chat"
)

func TestNewStreamingState(t *testing.T) {
	state := NewStreamingState()
	assert.Equal(t, StatusRetrieving, state.Status)
	assert.Empty(t, state.Steps)
	assert.False(t, state.CurrentStepActive)
	assert.False(t, state.Terminal)
}

func TestReduceStepStart(t *testing.T) {
	state := Reduce(NewStreamingState(), Event{Type: EventStepStart, StepNumber: 3})

	assert.Equal(t, StatusGenerating, state.Status)
	assert.Equal(t, 3, state.CurrentStepNumber)
	assert.True(t, state.CurrentStepActive)
	assert.Equal(t, "", state.CurrentPartialText)
}

func TestReduceToken(t *testing.T) {
	t.Run("should append incremental deltas", func(t *testing.T) {
		state := NewStreamingState()
		state = Reduce(state, Event{Type: EventStepStart, StepNumber: 1})
		state = Reduce(state, Event{Type: EventToken, Text: "x = "})
		state = Reduce(state, Event{Type: EventToken, Text: "42"})

		assert.Equal(t, "x = 42", state.CurrentPartialText)
	})

	t.Run("should not mutate the prior state", func(t *testing.T) {
		before := Reduce(NewStreamingState(), Event{Type: EventToken, Text: "a"})
		_ = Reduce(before, Event{Type: EventToken, Text: "b"})
		assert.Equal(t, "a", before.CurrentPartialText)
	})
}

func TestReduceGenerationComplete(t *testing.T) {
	state := Reduce(NewStreamingState(), Event{
		Type:     EventGenerationComplete,
		StepData: chat.Step{Number: 1, Description: "Set up variables", Code: "x = 1"},
	})

	assert.Equal(t, StatusExecuting, state.Status)
	assert.Contains(t, state.CurrentPartialText, "Set up variables")
	assert.Contains(t, state.CurrentPartialText, "x = 1")
}

func TestReduceExecuting(t *testing.T) {
	state := Reduce(NewStreamingState(), Event{Type: EventExecuting})
	assert.Equal(t, StatusExecuting, state.Status)

	// Idempotent confirmation: folding it again changes nothing.
	again := Reduce(state, Event{Type: EventExecuting})
	assert.Equal(t, state, again)
}

func TestReduceStepComplete(t *testing.T) {
	t.Run("should append steps in arrival order", func(t *testing.T) {
		state := NewStreamingState()
		state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: 1}})
		state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: 2}})

		require.Len(t, state.Steps, 2)
		assert.Equal(t, 1, state.Steps[0].Number)
		assert.Equal(t, 2, state.Steps[1].Number)
	})

	t.Run("should discard a redelivered step number", func(t *testing.T) {
		state := NewStreamingState()
		state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: 1, Output: "first"}})
		state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: 1, Output: "retransmit"}})
		state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: 2}})

		require.Len(t, state.Steps, 2)
		assert.Equal(t, "first", state.Steps[0].Output)
		assert.Equal(t, 2, state.Steps[1].Number)
	})

	t.Run("each distinct number appears exactly once, ordered by first arrival", func(t *testing.T) {
		numbers := []int{2, 1, 1, 3, 2, 4, 4, 4}
		state := NewStreamingState()
		for _, n := range numbers {
			state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: n}})
		}

		var got []int
		for _, s := range state.Steps {
			got = append(got, s.Number)
		}
		assert.Equal(t, []int{2, 1, 3, 4}, got)
	})

	t.Run("should reset the transient step view even on a duplicate", func(t *testing.T) {
		state := NewStreamingState()
		state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: 1}})
		state = Reduce(state, Event{Type: EventStepStart, StepNumber: 1})
		state = Reduce(state, Event{Type: EventToken, Text: "retry text"})
		state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: 1}})

		assert.Len(t, state.Steps, 1)
		assert.False(t, state.CurrentStepActive)
		assert.Equal(t, "", state.CurrentPartialText)
		assert.Equal(t, StatusWaiting, state.Status)
	})
}

func TestReduceDone(t *testing.T) {
	t.Run("authoritative payload wins over local accumulation", func(t *testing.T) {
		state := NewStreamingState()
		state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: 1, Output: "local"}})

		final := []chat.Step{
			{Number: 1, Output: "authoritative"},
			{Number: 2, Output: "also authoritative"},
		}
		state = Reduce(state, Event{Type: EventDone, Steps: final, HasSteps: true})

		assert.True(t, state.Terminal)
		assert.False(t, state.Failed)
		require.Len(t, state.FinalSteps, 2)
		assert.Equal(t, "authoritative", state.FinalSteps[0].Output)
	})

	t.Run("should fall back to local accumulation without payload", func(t *testing.T) {
		state := NewStreamingState()
		state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: 1}})
		state = Reduce(state, Event{Type: EventDone})

		assert.True(t, state.Terminal)
		require.Len(t, state.FinalSteps, 1)
		assert.Equal(t, 1, state.FinalSteps[0].Number)
	})
}

func TestReduceError(t *testing.T) {
	state := NewStreamingState()
	state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: 1}})
	state = Reduce(state, Event{Type: EventError, Message: "kernel died"})

	assert.True(t, state.Terminal)
	assert.True(t, state.Failed)
	assert.Equal(t, "kernel died", state.ErrorMessage)
	assert.Nil(t, state.Steps)
	assert.Nil(t, state.FinalSteps)
}

func TestReduceTerminalAbsorbs(t *testing.T) {
	t.Run("no event mutates state after done", func(t *testing.T) {
		done := Reduce(NewStreamingState(), Event{Type: EventDone})

		for _, ev := range []Event{
			{Type: EventStepStart, StepNumber: 9},
			{Type: EventToken, Text: "late"},
			{Type: EventStepComplete, Step: chat.Step{Number: 9}},
			{Type: EventError, Message: "late error"},
			{Type: EventDone},
		} {
			assert.Equal(t, done, Reduce(done, ev))
		}
	})

	t.Run("no event mutates state after error", func(t *testing.T) {
		failed := Reduce(NewStreamingState(), Event{Type: EventError, Message: "boom"})
		assert.Equal(t, failed, Reduce(failed, Event{Type: EventDone}))
	})
}

func TestReduceDispatch(t *testing.T) {
	t.Run("every declared event tag has a handler", func(t *testing.T) {
		base := NewStreamingState()
		events := []Event{
			{Type: EventStepStart, StepNumber: 1},
			{Type: EventToken, Text: "t"},
			{Type: EventGenerationComplete, StepData: chat.Step{Number: 1, Description: "d"}},
			{Type: EventExecuting},
			{Type: EventStepComplete, Step: chat.Step{Number: 1}},
			{Type: EventDone},
			{Type: EventError, Message: "m"},
		}
		for _, ev := range events {
			changed := Reduce(base, ev)
			assert.NotEqual(t, base, changed, "event %q should not be a silent no-op", ev.Type)
		}
	})

	t.Run("an unrecognized tag is a well-defined no-op", func(t *testing.T) {
		state := Reduce(NewStreamingState(), Event{Type: EventStepStart, StepNumber: 1})
		assert.Equal(t, state, Reduce(state, Event{Type: EventType("heartbeat")}))
		assert.Equal(t, state, Reduce(state, Event{Type: EventUnknown}))
	})
}

// Scenario from the wire contract: duplicate step one, step two, then an
// authoritative done list.
func TestReduceRetransmissionScenario(t *testing.T) {
	state := NewStreamingState()
	state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: 1}})
	state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: 1}})
	state = Reduce(state, Event{Type: EventStepComplete, Step: chat.Step{Number: 2}})

	var local []int
	for _, s := range state.Steps {
		local = append(local, s.Number)
	}
	assert.Equal(t, []int{1, 2}, local)

	final := []chat.Step{{Number: 1}, {Number: 2}}
	state = Reduce(state, Event{Type: EventDone, Steps: final, HasSteps: true})
	assert.Equal(t, final, state.FinalSteps)
}
