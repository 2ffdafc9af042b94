package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewUserMessage(t *testing.T) {
	t.Run("should create user message with trimmed content", func(t *testing.T) {
		msg := NewUserMessage("  minimize x^2 + y^2  ")

		assert.Equal(t, RoleUser, msg.Role)
		assert.Equal(t, TypeText, msg.Type)
		assert.Equal(t, "minimize x^2 + y^2", msg.Content)
		assert.False(t, msg.Timestamp.IsZero())
	})

	t.Run("should identify role correctly", func(t *testing.T) {
		msg := NewUserMessage("hello")
		assert.True(t, msg.IsUser())
		assert.False(t, msg.IsAssistant())
	})
}

func TestNewStepsMessage(t *testing.T) {
	t.Run("should create assistant steps message", func(t *testing.T) {
		steps := []Step{
			{Number: 1, Description: "Define objective", Code: "f = lambda x: x**2"},
			{Number: 2, Description: "Minimize", Code: "minimize(f, 0)", Output: "0.0"},
		}
		msg := NewStepsMessage("Solved in 2 steps", steps)

		assert.Equal(t, RoleAssistant, msg.Role)
		assert.Equal(t, TypeSteps, msg.Type)
		assert.True(t, msg.IsSteps())
		assert.Equal(t, "Solved in 2 steps", msg.Summary)
		assert.Len(t, msg.Steps, 2)
	})
}

func TestMessageIsEmpty(t *testing.T) {
	t.Run("should report empty for whitespace content", func(t *testing.T) {
		msg := Message{Role: RoleAssistant, Type: TypeText, Content: "   "}
		assert.True(t, msg.IsEmpty())
	})

	t.Run("should not report empty when steps are present", func(t *testing.T) {
		msg := NewStepsMessage("", []Step{{Number: 1}})
		assert.False(t, msg.IsEmpty())
	})
}

func TestMessageWithTimestamp(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := NewAssistantMessage("done").WithTimestamp(ts)
	assert.Equal(t, ts, msg.Timestamp)
}

func TestStepAccessors(t *testing.T) {
	t.Run("should report output and error independently", func(t *testing.T) {
		step := Step{Number: 3, Output: "42\n", Error: "ZeroDivisionError"}
		assert.True(t, step.HasOutput())
		assert.True(t, step.HasError())
	})

	t.Run("should report no code for whitespace", func(t *testing.T) {
		step := Step{Number: 1, Code: "  \n"}
		assert.False(t, step.HasCode())
	})
}

func TestTitleFromQuery(t *testing.T) {
	t.Run("should collapse whitespace", func(t *testing.T) {
		title := TitleFromQuery("  minimize\n  the   cost ")
		assert.Equal(t, "minimize the cost", title)
	})

	t.Run("should truncate long queries", func(t *testing.T) {
		long := "minimize the total transportation cost across all demand nodes subject to supply constraints"
		title := TitleFromQuery(long)
		assert.LessOrEqual(t, len(title), 67)
		assert.True(t, len(title) > 0)
		assert.Contains(t, title, "...")
	})
}
