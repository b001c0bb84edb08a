// Package types provides shared type definitions used across shopchat packages.
// This package exists to break import cycles between conversation, transport and session.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// Role tags who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one turn in the conversation. Treat it as immutable once created.
type Message struct {
	Role    Role   `json:"role"`
	Message string `json:"message"`
}

// UserMessage builds a user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Message: text}
}

// AssistantMessage builds an assistant turn.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Message: text}
}

// String renders the message for logs and plain-text output.
func (m Message) String() string {
	return fmt.Sprintf("%s: %s", m.Role, m.Message)
}

// =============================================================================
// CONVERSATION STATE
// =============================================================================

// ConversationState is the full ordered history for the current session.
// Sequence order is display order.
type ConversationState struct {
	Messages       []Message `json:"messages"`
	ConversationID string    `json:"conversation_id,omitempty"`
}

// EmptyState returns the default state with a non-nil, empty message slice so
// it serializes as `"messages":[]`.
func EmptyState() ConversationState {
	return ConversationState{Messages: []Message{}}
}

// Len returns the number of messages.
func (s ConversationState) Len() int {
	return len(s.Messages)
}

// Clone returns a deep copy so callers can't mutate committed state.
func (s ConversationState) Clone() ConversationState {
	out := ConversationState{
		Messages:       make([]Message, len(s.Messages)),
		ConversationID: s.ConversationID,
	}
	copy(out.Messages, s.Messages)
	return out
}

// Transcript joins all messages into a plain-text log, one per line.
func (s ConversationState) Transcript() string {
	var sb strings.Builder
	for _, m := range s.Messages {
		sb.WriteString(m.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatRequest is the body of POST /chat. Built fresh per send, never persisted.
type ChatRequest struct {
	Messages       []Message      `json:"messages"`
	ConversationID string         `json:"conversation_id"`
	CustomerID     string         `json:"customer_id"`
	Metadata       map[string]any `json:"metadata"`
}

// NewChatRequest builds a request with a copied message slice and non-nil metadata.
func NewChatRequest(messages []Message, conversationID, customerID string) ChatRequest {
	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	return ChatRequest{
		Messages:       msgs,
		ConversationID: conversationID,
		CustomerID:     customerID,
		Metadata:       map[string]any{},
	}
}

// ChatResponse is the backend reply. Only Response and RequiresCustomerID drive
// client behaviour; the rest is informational.
type ChatResponse struct {
	Response           string         `json:"response,omitempty"`
	RequiresCustomerID bool           `json:"requires_customer_id,omitempty"`
	ConversationID     string         `json:"conversation_id,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	SourceType         string         `json:"source_type,omitempty"`
	Detail             string         `json:"detail,omitempty"` // error body from the backend framework
}

// HasReply reports whether the response carries assistant text.
func (r *ChatResponse) HasReply() bool {
	return r != nil && r.Response != ""
}
