// Package tools defines the closed catalog of banking tools exposed by
// both the MCP and HTTP transports. Each tool wraps one ledger
// operation with a JSON argument contract and a structured result.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Schema is the JSON Schema fragment describing a tool's arguments.
// Only the subset of the vocabulary the catalog needs is modeled.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single argument.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Tool is one callable operation in the catalog.
type Tool struct {
	Name        string
	Description string
	InputSchema Schema

	// ReadOnly marks tools that never modify the ledger.
	ReadOnly bool

	// Handler decodes the raw JSON arguments and runs the operation.
	Handler func(ctx context.Context, args json.RawMessage) (any, error)
}

// UnknownToolError reports a call to a tool name not in the catalog.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Registry holds the catalog in a stable order and by name.
type Registry struct {
	tools  []*Tool
	byName map[string]*Tool
}

func newRegistry(tools []*Tool) *Registry {
	byName := make(map[string]*Tool, len(tools))
	for _, tool := range tools {
		byName[tool.Name] = tool
	}
	return &Registry{tools: tools, byName: byName}
}

// List returns the tools in registration order.
func (r *Registry) List() []*Tool {
	return r.tools
}

// Lookup returns the named tool, or nil when absent.
func (r *Registry) Lookup(name string) *Tool {
	return r.byName[name]
}

// Call dispatches to the named tool's handler.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	tool := r.byName[name]
	if tool == nil {
		return nil, &UnknownToolError{Name: name}
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	return tool.Handler(ctx, args)
}
