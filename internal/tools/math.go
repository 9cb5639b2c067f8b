// ABOUTME: Arithmetic tool set served at the math endpoint
// ABOUTME: add_two_numbers mirrors the simplest possible stateful tool

package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// AddTwoNumbers adds two numbers together.
type AddTwoNumbers struct{}

func (AddTwoNumbers) Name() string        { return "add_two_numbers" }
func (AddTwoNumbers) Description() string { return "Add two numbers together." }

func (AddTwoNumbers) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"a": {"type": "number", "description": "First addend"},
			"b": {"type": "number", "description": "Second addend"}
		},
		"required": ["a", "b"]
	}`)
}

func (t AddTwoNumbers) Call(_ context.Context, state *State, args json.RawMessage) (any, error) {
	var params struct {
		A *float64 `json:"a"`
		B *float64 `json:"b"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if params.A == nil || params.B == nil {
		return nil, fmt.Errorf("%w: a and b are required", ErrInvalidArguments)
	}

	result := *params.A + *params.B
	RecordCall(state, t.Name(), args, result)
	return result, nil
}
