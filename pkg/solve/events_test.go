package solve

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(event, data string) Frame {
	return Frame{Event: event, Data: json.RawMessage(data)}
}

func TestDecodeEvent(t *testing.T) {
	t.Run("step_start", func(t *testing.T) {
		ev, err := DecodeEvent(frame("step_start", `{"step_number":4}`))
		require.NoError(t, err)
		assert.Equal(t, EventStepStart, ev.Type)
		assert.Equal(t, 4, ev.StepNumber)
	})

	t.Run("token", func(t *testing.T) {
		ev, err := DecodeEvent(frame("token", `{"text":"import numpy"}`))
		require.NoError(t, err)
		assert.Equal(t, EventToken, ev.Type)
		assert.Equal(t, "import numpy", ev.Text)
	})

	t.Run("generation_complete", func(t *testing.T) {
		ev, err := DecodeEvent(frame("generation_complete",
			`{"step_data":{"number":2,"description":"Solve LP","code":"linprog(c)"}}`))
		require.NoError(t, err)
		assert.Equal(t, EventGenerationComplete, ev.Type)
		assert.Equal(t, 2, ev.StepData.Number)
		assert.Equal(t, "Solve LP", ev.StepData.Description)
	})

	t.Run("executing", func(t *testing.T) {
		ev, err := DecodeEvent(frame("executing", `{}`))
		require.NoError(t, err)
		assert.Equal(t, EventExecuting, ev.Type)
	})

	t.Run("step_complete", func(t *testing.T) {
		ev, err := DecodeEvent(frame("step_complete",
			`{"step":{"number":1,"description":"d","code":"c","output":"0.5"}}`))
		require.NoError(t, err)
		assert.Equal(t, EventStepComplete, ev.Type)
		assert.Equal(t, "0.5", ev.Step.Output)
	})

	t.Run("done with steps payload", func(t *testing.T) {
		ev, err := DecodeEvent(frame("done", `{"steps":[{"number":1},{"number":2}]}`))
		require.NoError(t, err)
		assert.Equal(t, EventDone, ev.Type)
		assert.True(t, ev.HasSteps)
		assert.Len(t, ev.Steps, 2)
		assert.True(t, ev.IsTerminal())
	})

	t.Run("done without steps payload", func(t *testing.T) {
		ev, err := DecodeEvent(frame("done", `{}`))
		require.NoError(t, err)
		assert.False(t, ev.HasSteps)
	})

	t.Run("error", func(t *testing.T) {
		ev, err := DecodeEvent(frame("error", `{"message":"model unavailable"}`))
		require.NoError(t, err)
		assert.Equal(t, EventError, ev.Type)
		assert.Equal(t, "model unavailable", ev.Message)
		assert.True(t, ev.IsTerminal())
	})

	t.Run("unknown event name is a no-op event, not an error", func(t *testing.T) {
		ev, err := DecodeEvent(frame("heartbeat", `{"ts":1}`))
		require.NoError(t, err)
		assert.Equal(t, EventUnknown, ev.Type)
		assert.False(t, ev.IsTerminal())
	})

	t.Run("mismatched payload shape is a decode error", func(t *testing.T) {
		_, err := DecodeEvent(frame("step_start", `{"step_number":"not a number"}`))
		assert.Error(t, err)
	})
}
