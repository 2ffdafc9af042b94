package headless

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tonyyueyu/optimization/pkg/controllers"
	"github.com/tonyyueyu/optimization/pkg/solve"
)

// RunHeadless executes a single prompt and prints the solve as it
// happens. This is the entry point for --headless execution. Ctrl-C
// cancels the run.
func RunHeadless(controller *controllers.SolveController, prompt string, plain bool) error {
	if prompt == "" {
		return fmt.Errorf("prompt cannot be empty in headless mode")
	}
	return runHeadless(controller, prompt, NewRenderer(plain), os.Stdout)
}

func runHeadless(controller *controllers.SolveController, prompt string, renderer *Renderer, w io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		controller.CancelSolve()
	}()

	updates, err := controller.SubmitSolve(ctx, prompt)
	if err != nil {
		return fmt.Errorf("failed to submit prompt: %w", err)
	}

	var lastStatus solve.Status
	var printedSteps int
	var runErr error

	for update := range updates {
		switch update.Type {
		case controllers.StateUpdated:
			if update.State.Status != lastStatus {
				lastStatus = update.State.Status
				fmt.Fprintln(w, renderer.Status(update.State.Status))
			}
			for printedSteps < len(update.State.Steps) {
				fmt.Fprintln(w, renderer.Step(update.State.Steps[printedSteps]))
				printedSteps++
			}

		case controllers.SolveCompleted:
			fmt.Fprintln(w, renderer.Answer(update.Message.Summary))

		case controllers.SolveFailed:
			fmt.Fprintln(w, renderer.Error(update.Message.Content))
			runErr = update.Err

		case controllers.SolveCancelled:
			fmt.Fprintln(w, renderer.Status("cancelled"))
		}
	}

	controller.Shutdown()
	return runErr
}
