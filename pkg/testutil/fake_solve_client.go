package testutil

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/tonyyueyu/optimization/pkg/chat"
	"github.com/tonyyueyu/optimization/pkg/controllers"
	"github.com/tonyyueyu/optimization/pkg/solve"
)

// FakeSolveClient implements the SolveClient interface for testing. Each
// Solve call replays the scripted events in order, optionally pausing
// between them or blocking at a gate so tests can cancel mid-stream.
type FakeSolveClient struct {
	mu          sync.Mutex
	examples    []solve.ExampleProblem
	retrieveErr error
	solveErr    error
	script      []solve.Event
	eventDelay  time.Duration
	holdOpen    bool
	gate        chan struct{}

	retrieveCalls int
	solveCalls    int
	lastRequest   solve.SolveRequest
}

// NewFakeSolveClient creates a fake that streams the given events.
func NewFakeSolveClient(events ...solve.Event) *FakeSolveClient {
	return &FakeSolveClient{
		script: events,
		gate:   make(chan struct{}),
	}
}

// SetExamples configures the retrieval response.
func (f *FakeSolveClient) SetExamples(examples ...solve.ExampleProblem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.examples = examples
}

// SetRetrieveError makes Retrieve fail.
func (f *FakeSolveClient) SetRetrieveError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retrieveErr = err
}

// SetSolveError makes Solve fail before any stream is opened.
func (f *FakeSolveClient) SetSolveError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.solveErr = err
}

// SetEventDelay sets the pause before each scripted event.
func (f *FakeSolveClient) SetEventDelay(delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventDelay = delay
}

// HoldOpen makes the stream block after the script runs out instead of
// returning EOF, until ReleaseGate is called or the context is
// cancelled. Use it to park a run mid-stream.
func (f *FakeSolveClient) HoldOpen() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdOpen = true
}

// ReleaseGate unblocks every stream parked by HoldOpen.
func (f *FakeSolveClient) ReleaseGate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.gate:
	default:
		close(f.gate)
	}
}

// RetrieveCalls reports how many times Retrieve was invoked.
func (f *FakeSolveClient) RetrieveCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.retrieveCalls
}

// SolveCalls reports how many times Solve was invoked.
func (f *FakeSolveClient) SolveCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.solveCalls
}

// LastRequest returns the most recent Solve request.
func (f *FakeSolveClient) LastRequest() solve.SolveRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRequest
}

func (f *FakeSolveClient) Retrieve(ctx context.Context, query string) ([]solve.ExampleProblem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retrieveCalls++
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return f.examples, nil
}

func (f *FakeSolveClient) Solve(ctx context.Context, req solve.SolveRequest) (controllers.SolveStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.solveCalls++
	f.lastRequest = req
	if f.solveErr != nil {
		return nil, f.solveErr
	}
	return &fakeSolveStream{
		ctx:      ctx,
		script:   f.script,
		delay:    f.eventDelay,
		holdOpen: f.holdOpen,
		gate:     f.gate,
	}, nil
}

type fakeSolveStream struct {
	ctx      context.Context
	script   []solve.Event
	delay    time.Duration
	holdOpen bool
	gate     chan struct{}
	pos      int
	closed   bool
}

func (s *fakeSolveStream) Next() (solve.Event, error) {
	if s.closed {
		return solve.Event{}, io.EOF
	}
	if s.pos >= len(s.script) {
		if s.holdOpen {
			select {
			case <-s.gate:
				return solve.Event{}, io.EOF
			case <-s.ctx.Done():
				return solve.Event{}, s.ctx.Err()
			}
		}
		return solve.Event{}, io.EOF
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-s.ctx.Done():
			return solve.Event{}, s.ctx.Err()
		}
	} else if err := s.ctx.Err(); err != nil {
		return solve.Event{}, err
	}

	ev := s.script[s.pos]
	s.pos++
	return ev, nil
}

func (s *fakeSolveStream) Close() error {
	s.closed = true
	return nil
}

// StepStartEvent builds a step_start event.
func StepStartEvent(number int) solve.Event {
	return solve.Event{Type: solve.EventStepStart, StepNumber: number}
}

// TokenEvent builds a token event.
func TokenEvent(text string) solve.Event {
	return solve.Event{Type: solve.EventToken, Text: text}
}

// GenerationCompleteEvent builds a generation_complete event.
func GenerationCompleteEvent(step chat.Step) solve.Event {
	return solve.Event{Type: solve.EventGenerationComplete, StepData: step}
}

// ExecutingEvent builds an executing event.
func ExecutingEvent() solve.Event {
	return solve.Event{Type: solve.EventExecuting}
}

// StepCompleteEvent builds a step_complete event.
func StepCompleteEvent(step chat.Step) solve.Event {
	return solve.Event{Type: solve.EventStepComplete, Step: step}
}

// DoneEvent builds a done event carrying the authoritative step list.
func DoneEvent(steps ...chat.Step) solve.Event {
	return solve.Event{Type: solve.EventDone, Steps: steps, HasSteps: steps != nil}
}

// ErrorEvent builds a backend error event.
func ErrorEvent(message string) solve.Event {
	return solve.Event{Type: solve.EventError, Message: message}
}
