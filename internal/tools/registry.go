// ABOUTME: Tool registry and the named handler sets served by endpoints
// ABOUTME: Maps a config handler name to its tools; lookup is read-only after build

package tools

import (
	"errors"
	"fmt"
)

// ErrInvalidArguments means the tool arguments failed to parse or were
// missing required fields. Mapped to a JSON-RPC invalid-params error.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// ErrToolNotFound means no tool with the requested name exists in the
// endpoint's registry.
var ErrToolNotFound = errors.New("tool not found")

// Registry is the immutable set of tools behind one endpoint.
type Registry struct {
	handler string
	tools   []Tool
	byName  map[string]Tool
}

// NewRegistry builds a registry for the named handler set.
func NewRegistry(handler string, toolList ...Tool) (*Registry, error) {
	byName := make(map[string]Tool, len(toolList))
	for _, t := range toolList {
		if t.Name() == "" {
			return nil, fmt.Errorf("handler %q has a tool with an empty name", handler)
		}
		if _, exists := byName[t.Name()]; exists {
			return nil, fmt.Errorf("handler %q has duplicate tool %q", handler, t.Name())
		}
		byName[t.Name()] = t
	}
	return &Registry{handler: handler, tools: toolList, byName: byName}, nil
}

// Handler returns the handler-set name this registry serves.
func (r *Registry) Handler() string { return r.handler }

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Lookup returns the named tool.
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// ForHandler builds the registry for a config handler name.
// Known handlers: "math" and "products".
func ForHandler(name string, products *ProductsClient) (*Registry, error) {
	switch name {
	case "math":
		return NewRegistry(name, AddTwoNumbers{})
	case "products":
		return NewRegistry(name,
			FetchAllProducts{Client: products},
			FilterByPriceRange{Client: products},
			FilterByStockAvailability{Client: products},
		)
	default:
		return nil, fmt.Errorf("unknown tool handler %q", name)
	}
}
