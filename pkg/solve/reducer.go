package solve

import (
	"fmt"
	"strings"

	"github.com/tonyyueyu/optimization/pkg/chat"
)

// Status describes where a live solve run currently is.
type Status string

const (
	StatusRetrieving Status = "retrieving"
	StatusSolving    Status = "solving"
	StatusGenerating Status = "generating"
	StatusExecuting  Status = "executing"
	StatusWaiting    Status = "waiting"
)

// StreamingState is the transient view of an in-progress solve run.
// It is never persisted: it exists from run start until a terminal
// event, cancellation, or active-thread change. Values are immutable;
// Reduce returns a new state.
type StreamingState struct {
	Status             Status
	Steps              []chat.Step
	CurrentStepNumber  int
	CurrentStepActive  bool
	CurrentPartialText string

	// Terminal outcome. Once Terminal is set no further event may
	// mutate the state for this run.
	Terminal     bool
	Failed       bool
	ErrorMessage string

	// FinalSteps is the list to persist and render after done. When the
	// done payload carried an authoritative list it wins over the local
	// accumulation, which is only a live-progress approximation.
	FinalSteps []chat.Step
}

// NewStreamingState returns the initial state for a fresh run.
func NewStreamingState() StreamingState {
	return StreamingState{
		Status: StatusRetrieving,
		Steps:  make([]chat.Step, 0),
	}
}

// Reduce folds one event into the state. It is a pure function: the
// input state is not mutated and every declared event tag has a
// handler. Unrecognized tags are a no-op.
func Reduce(state StreamingState, ev Event) StreamingState {
	if state.Terminal {
		return state
	}

	switch ev.Type {
	case EventStepStart:
		state.CurrentStepNumber = ev.StepNumber
		state.CurrentStepActive = true
		state.CurrentPartialText = ""
		state.Status = StatusGenerating
		return state

	case EventToken:
		// Tokens carry incremental deltas, so append.
		state.CurrentPartialText += ev.Text
		return state

	case EventGenerationComplete:
		state.Status = StatusExecuting
		state.CurrentPartialText = renderPendingStep(ev.StepData)
		return state

	case EventExecuting:
		// Idempotent confirmation, no structural change.
		state.Status = StatusExecuting
		return state

	case EventStepComplete:
		if !hasStepNumber(state.Steps, ev.Step.Number) {
			steps := make([]chat.Step, len(state.Steps)+1)
			copy(steps, state.Steps)
			steps[len(state.Steps)] = ev.Step
			state.Steps = steps
		}
		state.CurrentStepNumber = 0
		state.CurrentStepActive = false
		state.CurrentPartialText = ""
		state.Status = StatusWaiting
		return state

	case EventDone:
		state.Terminal = true
		state.Status = StatusWaiting
		state.CurrentStepNumber = 0
		state.CurrentStepActive = false
		state.CurrentPartialText = ""
		if ev.HasSteps {
			state.FinalSteps = ev.Steps
		} else {
			state.FinalSteps = state.Steps
		}
		return state

	case EventError:
		state.Terminal = true
		state.Failed = true
		state.ErrorMessage = ev.Message
		state.Steps = nil
		state.FinalSteps = nil
		state.CurrentStepNumber = 0
		state.CurrentStepActive = false
		state.CurrentPartialText = ""
		return state

	default:
		return state
	}
}

// hasStepNumber reports whether a completed step with this run-local
// number already arrived. The backend may redeliver a number; the
// retransmission is a no-op, not a duplicate entry.
func hasStepNumber(steps []chat.Step, number int) bool {
	for _, s := range steps {
		if s.Number == number {
			return true
		}
	}
	return false
}

// renderPendingStep renders generated step data awaiting execution.
func renderPendingStep(step chat.Step) string {
	var b strings.Builder
	if step.Number > 0 {
		fmt.Fprintf(&b, "Step %d: ", step.Number)
	}
	b.WriteString(step.Description)
	if step.HasCode() {
		b.WriteString("\n\n")
		b.WriteString(step.Code)
	}
	return b.String()
}
