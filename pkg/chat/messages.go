package chat

import (
	"strings"
	"time"
)

type Message struct {
	Role      string    `json:"role"`
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Steps     []Step    `json:"steps,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Step is one unit of generated-and-executed work within a solve run.
type Step struct {
	Number      int      `json:"number"`
	Description string   `json:"description"`
	Code        string   `json:"code"`
	Output      string   `json:"output,omitempty"`
	Error       string   `json:"error,omitempty"`
	Plots       []string `json:"plots,omitempty"`
	Files       []string `json:"files,omitempty"`
}

// Thread is a persisted, titled grouping of messages under one id.
type Thread struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Owner       string    `json:"owner"`
	LastUpdated time.Time `json:"last_updated"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	TypeText  = "text"
	TypeSteps = "steps"
)

func NewUserMessage(content string) Message {
	return Message{
		Role:      RoleUser,
		Type:      TypeText,
		Content:   strings.TrimSpace(content),
		Timestamp: time.Now(),
	}
}

func NewAssistantMessage(content string) Message {
	return Message{
		Role:      RoleAssistant,
		Type:      TypeText,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func NewStepsMessage(summary string, steps []Step) Message {
	return Message{
		Role:      RoleAssistant,
		Type:      TypeSteps,
		Summary:   summary,
		Steps:     steps,
		Timestamp: time.Now(),
	}
}

func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

func (m Message) IsSteps() bool {
	return m.Type == TypeSteps
}

func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == "" && len(m.Steps) == 0
}

func (m Message) WithTimestamp(t time.Time) Message {
	m.Timestamp = t
	return m
}

// HasOutput reports whether the step produced any stdout output.
func (s Step) HasOutput() bool {
	return strings.TrimSpace(s.Output) != ""
}

// HasError reports whether the step produced an execution error.
// Output and error are rendered as alternatives, error first.
func (s Step) HasError() bool {
	return strings.TrimSpace(s.Error) != ""
}

func (s Step) HasCode() bool {
	return strings.TrimSpace(s.Code) != ""
}

// TitleFromQuery derives a one-time thread title from the first user query.
func TitleFromQuery(query string) string {
	title := strings.TrimSpace(query)
	title = strings.Join(strings.Fields(title), " ")
	const maxTitle = 64
	if len(title) > maxTitle {
		title = strings.TrimSpace(title[:maxTitle]) + "..."
	}
	return title
}
