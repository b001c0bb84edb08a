// Package conversation holds the message store: pure state transitions over
// ConversationState and a Store that commits them with write-through persistence.
package conversation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"shopchat/internal/types"
)

// Append returns a new state with msg at the end. s is not modified.
func Append(s types.ConversationState, msg types.Message) types.ConversationState {
	out := types.ConversationState{
		Messages:       make([]types.Message, len(s.Messages), len(s.Messages)+1),
		ConversationID: s.ConversationID,
	}
	copy(out.Messages, s.Messages)
	out.Messages = append(out.Messages, msg)
	return out
}

// Clear returns the empty default state.
func Clear(types.ConversationState) types.ConversationState {
	return types.EmptyState()
}

// =============================================================================
// SNAPSHOT ENCODING
// =============================================================================
// The persisted snapshot is {"value": {"messages": [...]}}, the shape the web
// client kept in localStorage, so snapshots stay interchangeable.

type snapshot struct {
	Value types.ConversationState `json:"value"`
}

type rawSnapshot struct {
	Value *struct {
		Messages       json.RawMessage `json:"messages"`
		ConversationID string          `json:"conversation_id"`
	} `json:"value"`
}

var errBadShape = errors.New("snapshot has no messages array")

// Encode serializes s as a storage snapshot.
func Encode(s types.ConversationState) (string, error) {
	if s.Messages == nil {
		s.Messages = []types.Message{}
	}
	data, err := json.Marshal(snapshot{Value: s})
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return string(data), nil
}

// Decode parses a storage snapshot and checks its shape: an object whose
// value.messages is an array of messages with known roles.
func Decode(raw string) (types.ConversationState, error) {
	var rs rawSnapshot
	if err := json.Unmarshal([]byte(raw), &rs); err != nil {
		return types.ConversationState{}, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if rs.Value == nil {
		return types.ConversationState{}, errBadShape
	}
	msgs := bytes.TrimSpace(rs.Value.Messages)
	if len(msgs) == 0 || msgs[0] != '[' {
		return types.ConversationState{}, errBadShape
	}

	out := types.ConversationState{ConversationID: rs.Value.ConversationID}
	if err := json.Unmarshal(msgs, &out.Messages); err != nil {
		return types.ConversationState{}, fmt.Errorf("failed to parse messages: %w", err)
	}
	for i, m := range out.Messages {
		if !m.Role.Valid() {
			return types.ConversationState{}, fmt.Errorf("message %d has unknown role %q", i, m.Role)
		}
	}
	if out.Messages == nil {
		out.Messages = []types.Message{}
	}
	return out, nil
}
