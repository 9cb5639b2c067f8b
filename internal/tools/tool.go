// ABOUTME: Tool contract and session-state view handed to tool handlers
// ABOUTME: Handlers see only state and arguments, never credentials or scopes

package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool is one invocable MCP tool. Implementations are pure request/response
// functions over (state, arguments); all capability checks happen before
// Call runs.
type Tool interface {
	// Name is the tool identifier exposed via tools/list.
	Name() string

	// Description is the human-readable tool description.
	Description() string

	// InputSchema is the JSON Schema for the tool's arguments.
	InputSchema() json.RawMessage

	// Call executes the tool. State mutations are persisted by the caller
	// after Call returns; errors abort the call without persisting.
	Call(ctx context.Context, state *State, args json.RawMessage) (any, error)
}

// State is the handler-owned view of a session payload. The gateway treats
// the payload as opaque; this type gives handlers structured access and
// tracks whether anything changed so unchanged payloads skip the write.
type State struct {
	values map[string]any
	dirty  bool
}

// NewState decodes a session payload into a State. A nil or empty payload
// yields an empty state.
func NewState(payload json.RawMessage) (*State, error) {
	s := &State{values: make(map[string]any)}
	if len(payload) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(payload, &s.values); err != nil {
		return nil, fmt.Errorf("decoding session payload: %w", err)
	}
	return s, nil
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value under key and marks the state dirty.
func (s *State) Set(key string, value any) {
	s.values[key] = value
	s.dirty = true
}

// Dirty reports whether the state changed since it was decoded.
func (s *State) Dirty() bool {
	return s.dirty
}

// Payload encodes the state back into a session payload.
func (s *State) Payload() (json.RawMessage, error) {
	data, err := json.Marshal(s.values)
	if err != nil {
		return nil, fmt.Errorf("encoding session payload: %w", err)
	}
	return data, nil
}

// RecordCall logs a completed tool invocation into the session state:
// which function ran, with which arguments, and what it returned.
func RecordCall(state *State, tool string, args json.RawMessage, result any) {
	state.Set("function", tool)
	if len(args) > 0 {
		state.Set("arguments", json.RawMessage(args))
	} else {
		state.Set("arguments", json.RawMessage("{}"))
	}
	switch v := result.(type) {
	case string:
		state.Set("result", v)
	default:
		if data, err := json.Marshal(v); err == nil {
			state.Set("result", string(data))
		} else {
			state.Set("result", fmt.Sprintf("%v", v))
		}
	}
}
