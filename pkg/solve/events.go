package solve

import (
	"encoding/json"
	"fmt"

	"github.com/tonyyueyu/optimization/pkg/chat"
)

// EventType names a solve stream event. The set mirrors the backend's
// wire contract exactly; anything else decodes to EventUnknown.
type EventType string

const (
	EventStepStart          EventType = "step_start"
	EventToken              EventType = "token"
	EventGenerationComplete EventType = "generation_complete"
	EventExecuting          EventType = "executing"
	EventStepComplete       EventType = "step_complete"
	EventDone               EventType = "done"
	EventError              EventType = "error"
	EventUnknown            EventType = ""
)

// Event is one decoded frame from a solve stream. Exactly one payload
// group is meaningful, selected by Type. Events carry no cross-run
// identity; they are only meaningful within the stream that produced them.
type Event struct {
	Type EventType

	StepNumber int         // step_start
	Text       string      // token (incremental delta)
	StepData   chat.Step   // generation_complete, pending execution
	Step       chat.Step   // step_complete
	Steps      []chat.Step // done, authoritative when HasSteps
	HasSteps   bool
	Message    string      // error
}

// IsTerminal reports whether the event ends processing for its run.
func (e Event) IsTerminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// DecodeEvent turns a parsed frame into a typed event. An unrecognized
// event name yields EventUnknown, which reducers treat as a no-op. A
// payload that does not match the declared shape is a decode error; the
// caller drops the frame.
func DecodeEvent(f Frame) (Event, error) {
	switch EventType(f.Event) {
	case EventStepStart:
		var payload struct {
			StepNumber int `json:"step_number"`
		}
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			return Event{}, fmt.Errorf("failed to decode step_start payload: %w", err)
		}
		return Event{Type: EventStepStart, StepNumber: payload.StepNumber}, nil

	case EventToken:
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			return Event{}, fmt.Errorf("failed to decode token payload: %w", err)
		}
		return Event{Type: EventToken, Text: payload.Text}, nil

	case EventGenerationComplete:
		var payload struct {
			StepData chat.Step `json:"step_data"`
		}
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			return Event{}, fmt.Errorf("failed to decode generation_complete payload: %w", err)
		}
		return Event{Type: EventGenerationComplete, StepData: payload.StepData}, nil

	case EventExecuting:
		return Event{Type: EventExecuting}, nil

	case EventStepComplete:
		var payload struct {
			Step chat.Step `json:"step"`
		}
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			return Event{}, fmt.Errorf("failed to decode step_complete payload: %w", err)
		}
		return Event{Type: EventStepComplete, Step: payload.Step}, nil

	case EventDone:
		var payload struct {
			Steps []chat.Step `json:"steps"`
		}
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			return Event{}, fmt.Errorf("failed to decode done payload: %w", err)
		}
		return Event{Type: EventDone, Steps: payload.Steps, HasSteps: payload.Steps != nil}, nil

	case EventError:
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			return Event{}, fmt.Errorf("failed to decode error payload: %w", err)
		}
		return Event{Type: EventError, Message: payload.Message}, nil

	default:
		return Event{Type: EventUnknown}, nil
	}
}
