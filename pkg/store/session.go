package store

import (
	"errors"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("chat session not found")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Dialogue states
const (
	StateAwaitingInput = "AWAITING_INPUT"
	StateSelectingTool = "SELECTING_TOOL"
	StateExecutingTool = "EXECUTING_TOOL"
	StateResponding    = "RESPONDING"
)

// Turn is one entry of the conversation history. Tool turns carry tool
// output for the model and are hidden from the user.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Tool      string    `json:"tool,omitempty"`
	IsError   bool      `json:"is_error,omitempty"`
	Visible   bool      `json:"visible"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is the per-session dialogue state. The embedded lock
// serializes message handling within one session.
type Conversation struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	mu sync.Mutex
}

func NewConversation(id string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        id,
		State:     StateAwaitingInput,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Conversation) Lock()   { c.mu.Lock() }
func (c *Conversation) Unlock() { c.mu.Unlock() }

func (c *Conversation) Append(turn Turn) Turn {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	c.Turns = append(c.Turns, turn)
	c.UpdatedAt = turn.CreatedAt
	return turn
}

func (c *Conversation) SetState(state string) {
	c.State = state
}

// VisibleTurns returns the user-facing transcript.
func (c *Conversation) VisibleTurns() []Turn {
	out := make([]Turn, 0, len(c.Turns))
	for _, t := range c.Turns {
		if t.Visible {
			out = append(out, t)
		}
	}
	return out
}

// HasToolResult reports whether any tool output is already in the history.
func (c *Conversation) HasToolResult() bool {
	for _, t := range c.Turns {
		if t.Role == RoleTool && !t.IsError {
			return true
		}
	}
	return false
}

// Reset clears the history and returns to AWAITING_INPUT.
func (c *Conversation) Reset() {
	c.Turns = nil
	c.State = StateAwaitingInput
	c.UpdatedAt = time.Now()
}
