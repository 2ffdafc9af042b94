package headless

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonyyueyu/optimization/pkg/chat"
	"github.com/tonyyueyu/optimization/pkg/controllers"
	"github.com/tonyyueyu/optimization/pkg/testutil"
)

func TestRenderer(t *testing.T) {
	step := chat.Step{
		Number:      1,
		Description: "Build the model",
		Code:        "model = pyo.ConcreteModel()",
		Output:      "model built",
	}

	t.Run("should render a step plainly when styling is off", func(t *testing.T) {
		out := NewRenderer(true).Step(step)
		assert.Contains(t, out, "Step 1: Build the model")
		assert.Contains(t, out, "model = pyo.ConcreteModel()")
		assert.Contains(t, out, "model built")
	})

	t.Run("should include step errors", func(t *testing.T) {
		failed := step
		failed.Error = "NameError: pyo is not defined"
		out := NewRenderer(true).Step(failed)
		assert.Contains(t, out, "NameError")
	})

	t.Run("should pass the answer through in plain mode", func(t *testing.T) {
		assert.Equal(t, "optimal value: 42", NewRenderer(true).Answer("optimal value: 42"))
	})
}

func TestRunHeadless(t *testing.T) {
	step := chat.Step{Number: 1, Description: "Solve it", Code: "solver.solve(model)", Output: "optimal value: 42"}

	t.Run("should print steps and the final answer", func(t *testing.T) {
		fakeSolver := testutil.NewFakeSolveClient(
			testutil.StepStartEvent(1),
			testutil.StepCompleteEvent(step),
			testutil.DoneEvent(step),
		)
		store := testutil.NewFakeHistoryStore()
		controller := controllers.NewSolveController(fakeSolver, store, "tester", nil)

		var buf bytes.Buffer
		err := runHeadless(controller, "minimize cost", NewRenderer(true), &buf)

		require.NoError(t, err)
		assert.Contains(t, buf.String(), "Step 1: Solve it")
		assert.Contains(t, buf.String(), "optimal value: 42")
	})

	t.Run("should report a failed run", func(t *testing.T) {
		fakeSolver := testutil.NewFakeSolveClient(testutil.ErrorEvent("model is infeasible"))
		store := testutil.NewFakeHistoryStore()
		controller := controllers.NewSolveController(fakeSolver, store, "tester", nil)

		var buf bytes.Buffer
		err := runHeadless(controller, "minimize cost", NewRenderer(true), &buf)

		require.Error(t, err)
		assert.Contains(t, buf.String(), "model is infeasible")
	})

	t.Run("should reject an empty prompt", func(t *testing.T) {
		fakeSolver := testutil.NewFakeSolveClient()
		controller := controllers.NewSolveController(fakeSolver, testutil.NewFakeHistoryStore(), "tester", nil)
		require.Error(t, RunHeadless(controller, "", true))
	})
}
