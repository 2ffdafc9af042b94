package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/tonyyueyu/optimization/pkg/chat"
	"github.com/tonyyueyu/optimization/pkg/solve"
)

var (
	styleDefault   = tcell.StyleDefault
	styleUser      = tcell.StyleDefault.Foreground(tcell.ColorOrange).Bold(true)
	styleAssistant = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleStep      = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleOutput    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleStatus    = tcell.StyleDefault.Foreground(tcell.ColorTeal).Italic(true)
	styleError     = tcell.StyleDefault.Foreground(tcell.ColorRed)
	stylePrompt    = tcell.StyleDefault.Foreground(tcell.ColorOrange)
)

type line struct {
	text  string
	style tcell.Style
}

func (a *App) draw() {
	a.screen.Clear()
	width, height := a.screen.Size()
	if width == 0 || height < 3 {
		a.screen.Show()
		return
	}

	lines := a.buildLines(width)

	// Transcript area fills everything above the notice and input rows.
	area := height - 2
	maxScroll := len(lines) - area
	if maxScroll < 0 {
		maxScroll = 0
	}
	if a.scroll > maxScroll {
		a.scroll = maxScroll
	}
	start := len(lines) - area - a.scroll
	if start < 0 {
		start = 0
	}
	row := 0
	for _, l := range lines[start:] {
		if row >= area {
			break
		}
		drawText(a.screen, 0, row, width, l.text, l.style)
		row++
	}

	a.drawNotice(width, height-2)
	a.drawInput(width, height-1)
	a.screen.Show()
}

// buildLines flattens the transcript and the live run into styled,
// wrapped lines.
func (a *App) buildLines(width int) []line {
	var lines []line

	for _, msg := range chat.GetMessages(a.transcript) {
		switch {
		case msg.IsUser():
			lines = appendWrapped(lines, "> "+msg.Content, styleUser, width)
		case msg.IsSteps():
			for _, step := range msg.Steps {
				lines = append(lines, stepLines(step, width)...)
			}
			lines = appendWrapped(lines, msg.Summary, styleAssistant, width)
		default:
			lines = appendWrapped(lines, msg.Content, styleAssistant, width)
		}
		lines = append(lines, line{})
	}

	if a.streaming != nil {
		lines = append(lines, streamingLines(*a.streaming, width)...)
	}
	return lines
}

func stepLines(step chat.Step, width int) []line {
	var lines []line
	header := fmt.Sprintf("Step %d: %s", step.Number, step.Description)
	lines = appendWrapped(lines, header, styleStep, width)
	if step.HasCode() {
		for _, codeLine := range strings.Split(strings.TrimRight(step.Code, "\n"), "\n") {
			lines = appendWrapped(lines, "  "+codeLine, styleOutput, width)
		}
	}
	if step.HasOutput() {
		lines = appendWrapped(lines, "  "+strings.TrimSpace(step.Output), styleOutput, width)
	}
	if step.HasError() {
		lines = appendWrapped(lines, "  "+strings.TrimSpace(step.Error), styleError, width)
	}
	return lines
}

func streamingLines(state solve.StreamingState, width int) []line {
	var lines []line
	for _, step := range state.Steps {
		lines = append(lines, stepLines(step, width)...)
	}
	if state.CurrentStepActive {
		header := fmt.Sprintf("Step %d ...", state.CurrentStepNumber)
		lines = appendWrapped(lines, header, styleStep, width)
		if state.CurrentPartialText != "" {
			for _, partial := range strings.Split(state.CurrentPartialText, "\n") {
				lines = appendWrapped(lines, "  "+partial, styleOutput, width)
			}
		}
	}
	lines = appendWrapped(lines, fmt.Sprintf("[%s]", state.Status), styleStatus, width)
	return lines
}

func (a *App) drawNotice(width, y int) {
	text := a.notice
	if text == "" && a.streaming != nil {
		text = "esc to cancel"
	}
	drawText(a.screen, 0, y, width, text, styleStatus)
}

func (a *App) drawInput(width, y int) {
	prompt := "> "
	if !a.inputEnabled {
		prompt = "  "
	}
	drawText(a.screen, 0, y, width, prompt+string(a.input), stylePrompt)
	if a.inputEnabled {
		a.screen.ShowCursor(len(prompt)+len(a.input), y)
	} else {
		a.screen.HideCursor()
	}
}

func appendWrapped(lines []line, text string, style tcell.Style, width int) []line {
	if width <= 0 {
		return lines
	}
	for _, raw := range strings.Split(text, "\n") {
		runes := []rune(raw)
		for len(runes) > width {
			lines = append(lines, line{text: string(runes[:width]), style: style})
			runes = runes[width:]
		}
		lines = append(lines, line{text: string(runes), style: style})
	}
	return lines
}

func drawText(s tcell.Screen, x, y, width int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		if col >= x+width {
			break
		}
		s.SetContent(col, y, r, nil, style)
		col++
	}
}
