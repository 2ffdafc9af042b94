package headless

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/tonyyueyu/optimization/pkg/chat"
	"github.com/tonyyueyu/optimization/pkg/solve"
)

// Renderer formats solve progress and results for the terminal.
type Renderer struct {
	statusStyle lipgloss.Style
	stepStyle   lipgloss.Style
	outputStyle lipgloss.Style
	errorStyle  lipgloss.Style
	answerStyle lipgloss.Style
	plain       bool
}

// NewRenderer builds a renderer. Plain mode skips all styling and
// highlighting, for piped output.
func NewRenderer(plain bool) *Renderer {
	return &Renderer{
		plain: plain,

		statusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true),

		stepStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true),

		outputStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			PaddingLeft(2),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true),

		answerStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00AA00")).
			Padding(0, 1),
	}
}

// Status renders a transient pipeline phase line.
func (r *Renderer) Status(status solve.Status) string {
	text := fmt.Sprintf("... %s", status)
	if r.plain {
		return text
	}
	return r.statusStyle.Render(text)
}

// Step renders one completed step: header, highlighted code, trimmed
// execution output.
func (r *Renderer) Step(step chat.Step) string {
	var b strings.Builder

	header := fmt.Sprintf("Step %d: %s", step.Number, step.Description)
	if r.plain {
		b.WriteString(header)
	} else {
		b.WriteString(r.stepStyle.Render(header))
	}
	b.WriteString("\n")

	if step.HasCode() {
		b.WriteString(r.highlight(step.Code))
		b.WriteString("\n")
	}
	if step.HasOutput() {
		out := strings.TrimSpace(step.Output)
		if r.plain {
			b.WriteString(out)
		} else {
			b.WriteString(r.outputStyle.Render(out))
		}
		b.WriteString("\n")
	}
	if step.HasError() {
		msg := strings.TrimSpace(step.Error)
		if r.plain {
			b.WriteString(msg)
		} else {
			b.WriteString(r.errorStyle.Render(msg))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Answer renders the final result box around the last step's output.
func (r *Renderer) Answer(summary string) string {
	if r.plain {
		return summary
	}
	return r.answerStyle.Render(summary)
}

// Error renders a run failure.
func (r *Renderer) Error(message string) string {
	if r.plain {
		return message
	}
	return r.errorStyle.Render(message)
}

// highlight applies python syntax highlighting; generated solver code
// is always python.
func (r *Renderer) highlight(code string) string {
	if r.plain {
		return code
	}

	lexer := lexers.Get("python")
	if lexer == nil {
		return code
	}
	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, styles.Get("monokai"), iterator); err != nil {
		return code
	}
	return buf.String()
}
