package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// TurnContent is the body of a chat turn. Implementations are TextContent and
// PartsContent; nothing else satisfies the interface.
type TurnContent interface {
	isTurnContent()
}

// TextContent is a plain string body.
type TextContent string

// PartsContent is a multi-part body; only text parts carry meaning here.
type PartsContent []ContentPart

type ContentPart struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}

func (TextContent) isTurnContent()  {}
func (PartsContent) isTurnContent() {}

// ContentText flattens any TurnContent into plain text.
func ContentText(c TurnContent) string {
	switch v := c.(type) {
	case nil:
		return ""
	case TextContent:
		return string(v)
	case PartsContent:
		texts := make([]string, 0, len(v))
		for _, p := range v {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		return strings.TrimSpace(strings.Join(texts, " "))
	default:
		panic(fmt.Sprintf("types: unhandled turn content %T", c))
	}
}

// Turn is one message of the chat transcript.
type Turn struct {
	ID      string      `json:"id,omitempty"`
	Role    Role        `json:"role"`
	Content TurnContent `json:"content"`
}

// Text returns the turn's flattened text.
func (t Turn) Text() string {
	return ContentText(t.Content)
}

// UnmarshalJSON accepts `content` as a string or an array of parts, and the
// `parts` array used by streaming UI clients.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      string          `json:"id"`
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
		Parts   []ContentPart   `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.ID = raw.ID
	t.Role = raw.Role
	t.Content = nil

	body := bytes.TrimSpace(raw.Content)
	switch {
	case len(body) == 0 || bytes.Equal(body, []byte("null")):
	case body[0] == '"':
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return fmt.Errorf("turn content: %w", err)
		}
		t.Content = TextContent(s)
	case body[0] == '[':
		var parts []ContentPart
		if err := json.Unmarshal(body, &parts); err != nil {
			return fmt.Errorf("turn content parts: %w", err)
		}
		t.Content = PartsContent(parts)
	default:
		return fmt.Errorf("turn content: unsupported JSON value %q", string(body[:1]))
	}

	if t.Content == nil && len(raw.Parts) > 0 {
		t.Content = PartsContent(raw.Parts)
	}
	return nil
}

// MarshalJSON always emits the flattened string form.
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID      string `json:"id,omitempty"`
		Role    Role   `json:"role"`
		Content string `json:"content"`
	}{ID: t.ID, Role: t.Role, Content: t.Text()})
}

// LastUserText returns the text of the most recent user turn.
func LastUserText(turns []Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleUser {
			return turns[i].Text()
		}
	}
	return ""
}

// StreamEvent represents different types of streaming events
type StreamEvent struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	EventID   string      `json:"event_id"`
	IsFinal   bool        `json:"is_final,omitempty"`
}

// StreamEventType constants
const (
	EventTypeStart    = "start"
	EventTypeContext  = "context"
	EventTypeMessage  = "message"
	EventTypeError    = "error"
	EventTypeComplete = "complete"
)

// StreamingResponse wraps the streaming channel and metadata
type StreamingResponse struct {
	TurnID string
	Stream <-chan StreamEvent
	Cancel func()
}
