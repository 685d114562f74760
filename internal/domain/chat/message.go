package chat

import (
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the assistant conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AppendFunc is called after a message has been appended at index.
type AppendFunc func(msg Message, index int)

// Conversation is an append-only message list that raises an event for
// every append. Observers run outside the lock, in registration order.
type Conversation struct {
	mu        sync.RWMutex
	messages  []Message
	observers []AppendFunc
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// OnAppend registers an observer for appended messages.
func (c *Conversation) OnAppend(fn AppendFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Append adds a message and returns its index.
func (c *Conversation) Append(role Role, content string) int {
	msg := Message{Role: role, Content: content, Timestamp: time.Now()}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	index := len(c.messages) - 1
	observers := make([]AppendFunc, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(msg, index)
	}
	return index
}

// Get returns the message at index.
func (c *Conversation) Get(index int) (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.messages) {
		return Message{}, false
	}
	return c.messages[index], true
}

// Messages returns a copy of the conversation.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}
