package chat

// Transcript is the in-memory, append-only message list for the active
// thread. Values are immutable; Append returns a new Transcript.
type Transcript struct {
	Messages []Message
	ThreadID string
}

func NewTranscript(threadID string) Transcript {
	return Transcript{
		Messages: make([]Message, 0),
		ThreadID: threadID,
	}
}

func Append(t Transcript, msg Message) Transcript {
	messages := make([]Message, len(t.Messages)+1)
	copy(messages, t.Messages)
	messages[len(t.Messages)] = msg

	return Transcript{
		Messages: messages,
		ThreadID: t.ThreadID,
	}
}

func GetMessages(t Transcript) []Message {
	result := make([]Message, len(t.Messages))
	copy(result, t.Messages)
	return result
}

func GetMessageCount(t Transcript) int {
	return len(t.Messages)
}

func GetLastMessage(t Transcript) (Message, bool) {
	if len(t.Messages) == 0 {
		return Message{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}

func GetLastAssistantMessage(t Transcript) (Message, bool) {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		msg := t.Messages[i]
		if msg.IsAssistant() {
			return msg, true
		}
	}
	return Message{}, false
}

func GetLastUserMessage(t Transcript) (Message, bool) {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		msg := t.Messages[i]
		if msg.IsUser() {
			return msg, true
		}
	}
	return Message{}, false
}

func GetMessagesByRole(t Transcript, role string) []Message {
	var result []Message
	for _, msg := range t.Messages {
		if msg.Role == role {
			result = append(result, msg)
		}
	}
	return result
}

func IsEmpty(t Transcript) bool {
	return len(t.Messages) == 0
}

// WithMessages replaces the full message list, keeping the thread id.
// Used when a freshly fetched history replaces the local view.
func WithMessages(t Transcript, messages []Message) Transcript {
	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	return Transcript{
		Messages: msgs,
		ThreadID: t.ThreadID,
	}
}

// WithThread rebinds the transcript to a thread id, keeping messages.
// Used when an anonymous transcript adopts a freshly created thread.
func WithThread(t Transcript, threadID string) Transcript {
	return Transcript{
		Messages: t.Messages,
		ThreadID: threadID,
	}
}
