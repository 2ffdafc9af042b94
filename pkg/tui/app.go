package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/tonyyueyu/optimization/pkg/chat"
	"github.com/tonyyueyu/optimization/pkg/controllers"
	"github.com/tonyyueyu/optimization/pkg/logger"
	"github.com/tonyyueyu/optimization/pkg/solve"
)

// stateEvent carries a state mutation into the event loop, so all App
// fields are touched from one goroutine only.
type stateEvent struct {
	when  time.Time
	apply func(*App)
}

func (e *stateEvent) When() time.Time { return e.when }

// App is the interactive chat screen. Enter submits a query, Esc
// cancels the in-flight solve, Ctrl-N starts a new thread, Ctrl-C
// quits.
type App struct {
	screen     tcell.Screen
	controller *controllers.SolveController
	log        *logger.Logger

	input        []rune
	inputEnabled bool
	transcript   chat.Transcript
	streaming    *solve.StreamingState
	scroll       int
	notice       string
}

// NewApp wires the chat screen to a controller.
func NewApp(controller *controllers.SolveController, log *logger.Logger) *App {
	if log == nil {
		log = &logger.Logger{}
	}
	return &App{
		controller:   controller,
		log:          log,
		inputEnabled: true,
	}
}

// Run owns the terminal until the user quits.
func (a *App) Run() error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to init screen: %w", err)
	}
	a.screen = screen
	defer screen.Fini()

	a.controller.SetTranscriptListener(func(t chat.Transcript) {
		a.post(func(app *App) {
			app.transcript = t
		})
	})
	a.transcript = a.controller.Transcript()

	a.draw()

	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
			a.draw()
		case *stateEvent:
			ev.apply(a)
			a.draw()
		case *tcell.EventKey:
			if a.handleKey(ev) {
				a.controller.Shutdown()
				return nil
			}
			a.draw()
		case nil:
			return nil
		}
	}
}

// handleKey processes one key event; true means quit.
func (a *App) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyCtrlC:
		return true

	case tcell.KeyEscape:
		a.controller.CancelSolve()

	case tcell.KeyCtrlN:
		a.controller.NewThread()
		a.streaming = nil
		a.notice = "new thread"

	case tcell.KeyEnter:
		a.submit()

	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(a.input) > 0 {
			a.input = a.input[:len(a.input)-1]
		}

	case tcell.KeyUp:
		a.scroll++

	case tcell.KeyDown:
		if a.scroll > 0 {
			a.scroll--
		}

	case tcell.KeyRune:
		if a.inputEnabled {
			a.input = append(a.input, ev.Rune())
		}
	}
	return false
}

func (a *App) submit() {
	if !a.inputEnabled || len(a.input) == 0 {
		return
	}
	query := string(a.input)
	a.input = nil
	a.inputEnabled = false
	a.notice = ""
	a.scroll = 0

	updates, err := a.controller.SubmitSolve(context.Background(), query)
	if err != nil {
		a.inputEnabled = true
		a.notice = err.Error()
		return
	}

	go a.consume(updates)
}

// consume forwards run updates into the event loop. The input unlocks
// exactly once, when the run's channel closes.
func (a *App) consume(updates <-chan controllers.StreamingUpdate) {
	for update := range updates {
		u := update
		a.post(func(app *App) {
			switch u.Type {
			case controllers.SolveStarted, controllers.StateUpdated:
				state := u.State
				app.streaming = &state
			case controllers.SolveCompleted, controllers.SolveFailed:
				app.streaming = nil
			case controllers.SolveCancelled:
				app.streaming = nil
				app.notice = "cancelled"
			}
		})
	}

	a.post(func(app *App) {
		app.inputEnabled = true
	})
}

func (a *App) post(apply func(*App)) {
	if a.screen == nil {
		return
	}
	if err := a.screen.PostEvent(&stateEvent{when: time.Now(), apply: apply}); err != nil {
		a.log.Debug("dropped screen event: %v", err)
	}
}
