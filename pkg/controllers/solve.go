package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tonyyueyu/optimization/pkg/chat"
	"github.com/tonyyueyu/optimization/pkg/logger"
	"github.com/tonyyueyu/optimization/pkg/solve"
)

// SolveStream is one open solve response.
type SolveStream interface {
	Next() (solve.Event, error)
	Close() error
}

// SolveClient issues retrieval and streaming solve calls.
type SolveClient interface {
	Retrieve(ctx context.Context, query string) ([]solve.ExampleProblem, error)
	Solve(ctx context.Context, req solve.SolveRequest) (SolveStream, error)
}

// HistoryStore is the session persistence collaborator. Threads and
// messages live behind it; the controller never reaches storage any
// other way.
type HistoryStore interface {
	Create(ctx context.Context, owner, title string) (string, error)
	Fetch(ctx context.Context, owner, threadID string) ([]chat.Message, error)
	Append(ctx context.Context, owner, threadID string, msg chat.Message) error
	Delete(ctx context.Context, owner, threadID string) error
	Close(owner, threadID string)
}

// LocalRetriever serves example problems when the remote retrieve
// endpoint is unreachable.
type LocalRetriever interface {
	Retrieve(ctx context.Context, query string) ([]solve.ExampleProblem, error)
}

// FileUploader is the file-context collaborator.
type FileUploader interface {
	Upload(ctx context.Context, path, threadID string) (string, error)
}

// StreamingUpdateType classifies updates on a run's channel.
type StreamingUpdateType int

const (
	SolveStarted StreamingUpdateType = iota
	StateUpdated
	SolveCompleted
	SolveFailed
	SolveCancelled
)

// StreamingUpdate is one snapshot published to the run's observer.
// The rendering layer consumes these; the controller never renders.
type StreamingUpdate struct {
	Type    StreamingUpdateType
	RunID   string
	State   solve.StreamingState
	Message chat.Message // assistant message on SolveCompleted / SolveFailed
	Err     error
}

// SolveController orchestrates one query's retrieval and solve
// lifecycle against the streaming solver, reconciling results into the
// transcript and the session store. At most one run is in flight; a
// new submission or a thread switch cancels the current one first.
type SolveController struct {
	solver   SolveClient
	store    HistoryStore
	local    LocalRetriever
	uploader FileUploader
	reporter *logger.Reporter
	log      *logger.Logger
	owner    string

	mu                 sync.Mutex
	transcript         chat.Transcript
	streaming          *solve.StreamingState
	cancel             context.CancelFunc
	runSeq             uint64
	activeRun          uint64
	fetchSeq           uint64
	pendingUpload      string
	historyUnavailable bool
	onTranscript       func(chat.Transcript)
}

func NewSolveController(solver SolveClient, store HistoryStore, owner string, log *logger.Logger) *SolveController {
	if log == nil {
		log = &logger.Logger{}
	}
	return &SolveController{
		solver:     solver,
		store:      store,
		owner:      owner,
		log:        log,
		transcript: chat.NewTranscript(""),
	}
}

// WithLocalRetriever installs the offline retrieval fallback.
func (sc *SolveController) WithLocalRetriever(r LocalRetriever) *SolveController {
	sc.local = r
	return sc
}

// WithReporter installs the fire-and-forget error reporting collaborator.
func (sc *SolveController) WithReporter(r *logger.Reporter) *SolveController {
	sc.reporter = r
	return sc
}

// WithUploader installs the file-context collaborator.
func (sc *SolveController) WithUploader(u FileUploader) *SolveController {
	sc.uploader = u
	return sc
}

// SetTranscriptListener registers a callback invoked whenever the
// transcript is replaced or appended to. Called without the lock held.
func (sc *SolveController) SetTranscriptListener(fn func(chat.Transcript)) {
	sc.mu.Lock()
	sc.onTranscript = fn
	sc.mu.Unlock()
}

// SubmitSolve runs one query. The user's message lands on the
// transcript immediately, before any network call, so the transcript
// reflects intent even if the network fails. The returned channel
// carries StreamingState snapshots after every event and closes when
// the run reaches a terminal outcome or is cancelled or superseded.
func (sc *SolveController) SubmitSolve(ctx context.Context, query string) (<-chan StreamingUpdate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	sc.mu.Lock()

	// Single-flight: at most one run, the newest wins.
	if sc.cancel != nil {
		sc.cancel()
		sc.cancel = nil
	}
	sc.runSeq++
	token := sc.runSeq
	sc.activeRun = token

	userMsg := chat.NewUserMessage(query)
	sc.transcript = chat.Append(sc.transcript, userMsg)
	notify := sc.onTranscript
	snapshot := sc.transcript

	outgoing := query
	if sc.pendingUpload != "" {
		// Consumed exactly once, never sticky across turns.
		outgoing = sc.pendingUpload + "\n\n" + query
		sc.pendingUpload = ""
	}

	// History carries everything before this query.
	history := chat.GetMessages(snapshot)
	history = history[:len(history)-1]

	threadID := sc.transcript.ThreadID
	sc.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}

	// Adopt a thread before the solve call so the run has a persistence
	// target. Failure is soft: the run proceeds anonymously.
	if threadID == "" {
		id, err := sc.store.Create(ctx, sc.owner, chat.TitleFromQuery(query))
		if err != nil {
			sc.log.Error("failed to create thread: %v", err)
			sc.setHistoryUnavailable()
		} else {
			sc.mu.Lock()
			if sc.activeRun == token {
				sc.transcript = chat.WithThread(sc.transcript, id)
				threadID = id
			}
			sc.mu.Unlock()
		}
	}

	if threadID != "" {
		if err := sc.store.Append(ctx, sc.owner, threadID, userMsg); err != nil {
			sc.log.Warn("failed to persist user message: %v", err)
			sc.setHistoryUnavailable()
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	state := solve.NewStreamingState()

	sc.mu.Lock()
	if sc.activeRun != token {
		// Superseded before it started.
		sc.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("solve superseded by a newer submission")
	}
	sc.cancel = cancel
	sc.streaming = &state
	sc.mu.Unlock()

	updates := make(chan StreamingUpdate, 100)
	runID := uuid.New().String()

	go sc.run(runCtx, token, runID, outgoing, history, threadID, updates)

	return updates, nil
}

// run drives one solve stream through the reducer. Every shared-state
// write is guarded by the run token, so a cancelled or superseded run
// becomes a no-op with respect to transcript and streaming state.
func (sc *SolveController) run(ctx context.Context, token uint64, runID, query string, history []chat.Message, threadID string, updates chan<- StreamingUpdate) {
	defer close(updates)

	publish := func(u StreamingUpdate) {
		u.RunID = runID
		select {
		case updates <- u:
		default:
			// Observer fell behind; snapshots are cumulative, dropping
			// an intermediate one loses nothing durable.
		}
	}

	if state, ok := sc.snapshotFor(token); ok {
		publish(StreamingUpdate{Type: SolveStarted, State: state})
	}

	problem, second := sc.resolveExamples(ctx, query)
	if ctx.Err() != nil {
		sc.finishCancelled(token, publish)
		return
	}

	if state, ok := sc.setStatus(token, solve.StatusSolving); ok {
		publish(StreamingUpdate{Type: StateUpdated, State: state})
	}

	stream, err := sc.solver.Solve(ctx, solve.SolveRequest{
		UserQuery:     query,
		Problem:       problem,
		SecondProblem: second,
		History:       history,
	})
	if err != nil {
		if isCancellation(ctx, err) {
			sc.finishCancelled(token, publish)
			return
		}
		// A failure before the first byte is indistinguishable, for the
		// user, from a backend error event.
		sc.finishError(token, threadID, err.Error(), publish)
		return
	}
	defer stream.Close()

	for {
		ev, err := stream.Next()
		if err != nil {
			if isCancellation(ctx, err) {
				sc.finishCancelled(token, publish)
				return
			}
			if err == io.EOF {
				// The stream closed without a terminal event.
				sc.finishError(token, threadID, "solve stream ended unexpectedly", publish)
				return
			}
			sc.finishError(token, threadID, err.Error(), publish)
			return
		}

		state, ok := sc.fold(token, ev)
		if !ok {
			// Superseded mid-stream; the new owner of the state has
			// already taken over.
			return
		}
		publish(StreamingUpdate{Type: StateUpdated, State: state})

		if state.Terminal {
			if state.Failed {
				sc.finishError(token, threadID, state.ErrorMessage, publish)
			} else {
				sc.finishDone(token, threadID, state, publish)
			}
			return
		}
	}
}

// resolveExamples fetches the two most similar solved problems, remote
// first, local fallback second. Retrieval failure never fails the run.
func (sc *SolveController) resolveExamples(ctx context.Context, query string) (string, string) {
	examples, err := sc.solver.Retrieve(ctx, query)
	if err != nil {
		sc.log.Warn("remote retrieval failed: %v", err)
		if sc.local == nil {
			return "", ""
		}
		examples, err = sc.local.Retrieve(ctx, query)
		if err != nil {
			sc.log.Warn("local retrieval failed: %v", err)
			return "", ""
		}
	}

	var problem, second string
	if len(examples) > 0 {
		problem = examples[0].Problem
	}
	if len(examples) > 1 {
		second = examples[1].Problem
	}
	return problem, second
}

// fold applies one event to the live streaming state under the run
// token guard.
func (sc *SolveController) fold(token uint64, ev solve.Event) (solve.StreamingState, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.activeRun != token || sc.streaming == nil {
		return solve.StreamingState{}, false
	}
	state := solve.Reduce(*sc.streaming, ev)
	sc.streaming = &state
	return state, true
}

func (sc *SolveController) snapshotFor(token uint64) (solve.StreamingState, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.activeRun != token || sc.streaming == nil {
		return solve.StreamingState{}, false
	}
	return *sc.streaming, true
}

func (sc *SolveController) setStatus(token uint64, status solve.Status) (solve.StreamingState, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.activeRun != token || sc.streaming == nil {
		return solve.StreamingState{}, false
	}
	state := *sc.streaming
	if !state.Terminal {
		state.Status = status
	}
	sc.streaming = &state
	return state, true
}

// finishDone persists the authoritative step list and clears the
// transient state.
func (sc *SolveController) finishDone(token uint64, threadID string, state solve.StreamingState, publish func(StreamingUpdate)) {
	msg := chat.NewStepsMessage(summarizeSteps(state.FinalSteps), state.FinalSteps)

	persisted := false
	if threadID != "" {
		ctx, cancelPersist := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelPersist()

		if err := sc.store.Append(ctx, sc.owner, threadID, msg); err != nil {
			sc.log.Error("failed to persist solve result: %v", err)
			sc.setHistoryUnavailable()
		} else {
			persisted = true
			if fetched, err := sc.store.Fetch(ctx, sc.owner, threadID); err == nil {
				sc.replaceTranscript(token, threadID, fetched)
			} else {
				sc.log.Warn("failed to refresh thread after persist: %v", err)
			}
		}
	}
	if !persisted {
		sc.appendIfActive(token, msg)
	}

	sc.clearStreaming(token)
	publish(StreamingUpdate{Type: SolveCompleted, Message: msg, State: state})
}

// finishError synthesizes exactly one assistant-facing text message for
// the failed run and reports the failure.
func (sc *SolveController) finishError(token uint64, threadID, message string, publish func(StreamingUpdate)) {
	msg := chat.NewAssistantMessage(fmt.Sprintf("Solve failed: %s", message))
	sc.appendIfActive(token, msg)

	sc.log.Error("solve run failed: %s", message)
	if sc.reporter != nil {
		sc.reporter.Report(message, "", map[string]string{"thread": threadID})
	}

	sc.clearStreaming(token)
	publish(StreamingUpdate{Type: SolveFailed, Message: msg, Err: errors.New(message)})
}

// finishCancelled discards the transient state without appending any
// assistant message; the transcript stays exactly as it was after the
// user message landed.
func (sc *SolveController) finishCancelled(token uint64, publish func(StreamingUpdate)) {
	sc.clearStreaming(token)
	publish(StreamingUpdate{Type: SolveCancelled})
}

func (sc *SolveController) appendIfActive(token uint64, msg chat.Message) {
	sc.mu.Lock()
	if sc.activeRun != token {
		sc.mu.Unlock()
		return
	}
	sc.transcript = chat.Append(sc.transcript, msg)
	notify := sc.onTranscript
	snapshot := sc.transcript
	sc.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

func (sc *SolveController) replaceTranscript(token uint64, threadID string, messages []chat.Message) {
	sc.mu.Lock()
	if sc.activeRun != token || sc.transcript.ThreadID != threadID {
		sc.mu.Unlock()
		return
	}
	sc.transcript = chat.WithMessages(sc.transcript, messages)
	notify := sc.onTranscript
	snapshot := sc.transcript
	sc.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

func (sc *SolveController) clearStreaming(token uint64) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.activeRun != token {
		return
	}
	sc.streaming = nil
	sc.cancel = nil
}

func (sc *SolveController) setHistoryUnavailable() {
	sc.mu.Lock()
	sc.historyUnavailable = true
	sc.mu.Unlock()
}

// CancelSolve aborts the in-flight run, if any. Cancelling twice is a
// no-op; cancellation never produces a user-visible error.
func (sc *SolveController) CancelSolve() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.cancel != nil {
		sc.cancel()
		sc.cancel = nil
	}
}

// SwitchThread makes threadID the active thread. Synchronously it
// cancels any in-flight solve and clears the transient state and any
// pending upload summary; the new transcript is then fetched in the
// background. A fetch that resolves after the active thread has moved
// on again is discarded.
func (sc *SolveController) SwitchThread(ctx context.Context, threadID string) {
	sc.mu.Lock()
	if sc.cancel != nil {
		sc.cancel()
		sc.cancel = nil
	}
	sc.activeRun = 0
	sc.streaming = nil
	sc.pendingUpload = ""
	sc.transcript = chat.NewTranscript(threadID)
	sc.fetchSeq++
	fetchToken := sc.fetchSeq
	notify := sc.onTranscript
	snapshot := sc.transcript
	sc.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
	if threadID == "" {
		return
	}

	go func() {
		messages, err := sc.store.Fetch(ctx, sc.owner, threadID)

		sc.mu.Lock()
		if sc.fetchSeq != fetchToken || sc.transcript.ThreadID != threadID {
			// Stale response; a newer selection owns the transcript.
			sc.mu.Unlock()
			return
		}
		if err != nil {
			sc.historyUnavailable = true
			sc.mu.Unlock()
			sc.log.Error("failed to fetch thread %s: %v", threadID, err)
			return
		}
		sc.transcript = chat.WithMessages(sc.transcript, messages)
		notify := sc.onTranscript
		snapshot := sc.transcript
		sc.mu.Unlock()

		if notify != nil {
			notify(snapshot)
		}
	}()
}

// NewThread switches to a fresh, not-yet-persisted thread. The thread
// id is assigned on the first submission.
func (sc *SolveController) NewThread() {
	sc.SwitchThread(context.Background(), "")
}

// UploadFile sends a file to the file-context collaborator and holds
// the returned summary for exactly the next SubmitSolve call.
func (sc *SolveController) UploadFile(ctx context.Context, path string) error {
	if sc.uploader == nil {
		return fmt.Errorf("file uploads are not configured")
	}

	sc.mu.Lock()
	threadID := sc.transcript.ThreadID
	sc.mu.Unlock()

	summary, err := sc.uploader.Upload(ctx, path, threadID)
	if err != nil {
		return fmt.Errorf("file upload failed: %w", err)
	}

	sc.mu.Lock()
	sc.pendingUpload = summary
	sc.mu.Unlock()
	return nil
}

// DeleteThread removes a persisted thread. The confirm step lives at
// the caller.
func (sc *SolveController) DeleteThread(ctx context.Context, threadID string) error {
	if err := sc.store.Delete(ctx, sc.owner, threadID); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}

	sc.mu.Lock()
	active := sc.transcript.ThreadID == threadID
	sc.mu.Unlock()
	if active {
		sc.NewThread()
	}
	return nil
}

// Shutdown cancels any in-flight run and fires the best-effort
// thread-close notification.
func (sc *SolveController) Shutdown() {
	sc.CancelSolve()

	sc.mu.Lock()
	threadID := sc.transcript.ThreadID
	sc.mu.Unlock()

	if threadID != "" {
		sc.store.Close(sc.owner, threadID)
	}
}

// Transcript returns the current transcript snapshot.
func (sc *SolveController) Transcript() chat.Transcript {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.transcript
}

// ActiveThreadID returns the active thread id, empty for an anonymous
// thread.
func (sc *SolveController) ActiveThreadID() string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.transcript.ThreadID
}

// StreamingSnapshot returns the live run's state, if one exists.
func (sc *SolveController) StreamingSnapshot() (solve.StreamingState, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.streaming == nil {
		return solve.StreamingState{}, false
	}
	return *sc.streaming, true
}

// HasPendingUpload reports whether an upload summary is waiting to ride
// on the next submission.
func (sc *SolveController) HasPendingUpload() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.pendingUpload != ""
}

// HistoryUnavailable reports the soft persistence-failure flag. History
// problems never block the chat.
func (sc *SolveController) HistoryUnavailable() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.historyUnavailable
}

func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || ctx.Err() != nil
}

// summarizeSteps derives the steps message summary: the final answer is
// the output of the last step.
func summarizeSteps(steps []chat.Step) string {
	if len(steps) == 0 {
		return "No steps produced"
	}
	last := steps[len(steps)-1]
	if answer := strings.TrimSpace(last.Output); answer != "" {
		return answer
	}
	return fmt.Sprintf("Solved in %d steps", len(steps))
}
