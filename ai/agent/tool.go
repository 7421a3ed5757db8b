// Package agent implements the bounded tool-calling loop that turns
// retrieval context, memory, and tools into a grounded answer.
package agent

import (
	"context"
	"fmt"
	"sort"

	"github.com/hrygo/docpilot/ai/core/llm"
)

// Tool is a capability the model can invoke during the tool loop.
type Tool interface {
	// Name returns the function name exposed to the model.
	Name() string
	// Descriptor returns the function declaration sent to the model.
	Descriptor() llm.ToolDescriptor
	// Call executes the tool with JSON-encoded arguments and returns the
	// textual result handed back to the model.
	Call(ctx context.Context, arguments string) (string, error)
}

// Registry holds the tools available to a run.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a Registry from the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Descriptors returns the declarations of all registered tools, sorted by
// name for a stable prompt.
func (r *Registry) Descriptors() []llm.ToolDescriptor {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	descriptors := make([]llm.ToolDescriptor, 0, len(names))
	for _, name := range names {
		descriptors = append(descriptors, r.tools[name].Descriptor())
	}
	return descriptors
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// execute runs a tool call, mapping unknown tools and tool errors to an
// error string the model can react to.
func (r *Registry) execute(ctx context.Context, call llm.ToolCall) string {
	tool, ok := r.Get(call.Name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", call.Name)
	}
	result, err := tool.Call(ctx, call.Arguments)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return result
}
