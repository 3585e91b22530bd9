// Package toolbridge implements the Tool Bridge (C4): it adapts whitelisted
// tool ids into LLM-visible definitions and validates tool-call arguments
// against each tool's declared JSON-Schema before dispatch. Workspace
// snapshots for diff-based mutation capture are taken by the taskrunner
// package, not here.
package toolbridge

import (
	"context"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

type (
	// ToolDefinition is the LLM-visible shape of a whitelisted tool: a name,
	// description, and a JSON-Schema describing its parameters (spec.md §6:
	// "Parameters are a declarative schema convertible to JSON-Schema").
	ToolDefinition struct {
		Name        string
		Description string
		Schema      map[string]any
	}

	// Executor dispatches a tool call by name with decoded arguments and
	// returns the tool result content plus whether it represents an error.
	// This is the orchestrator-supplied toolExecutor from spec.md §6.
	Executor func(ctx context.Context, name string, args map[string]any) (content string, isError bool)

	// ToolRegistry is the external collaborator named in spec.md §6: it
	// resolves a whitelisted tool id into its declarative definition.
	ToolRegistry interface {
		GetByID(id string) (ToolDefinition, bool)
	}

	// BeforeToolCall is invoked before every tool dispatch so budget gating can
	// veto the call (spec.md §4.4 reserveToolCall / §5). Returning ok=false
	// aborts dispatch and message becomes the tool's error result.
	BeforeToolCall func(toolName string) (ok bool, message string)
)

// Bridge adapts a whitelist of tool ids into schema-validated, budget-gated
// dispatch against a ToolRegistry + Executor pair.
type Bridge struct {
	registry ToolRegistry
	exec     Executor
	before   BeforeToolCall

	schemas map[string]*jsonschema.Schema
}

// New constructs a Bridge. before may be nil, in which case no budget gating
// is applied (useful for tests exercising schema validation in isolation).
func New(registry ToolRegistry, exec Executor, before BeforeToolCall) *Bridge {
	return &Bridge{
		registry: registry,
		exec:     exec,
		before:   before,
		schemas:  make(map[string]*jsonschema.Schema),
	}
}

// Definitions resolves a whitelist of tool ids into LLM-visible definitions,
// skipping ids the registry does not know about. The convertor in spec.md §6
// "returns {type:object} on failure" is honored by ToolRegistry
// implementations, not by the Bridge.
func (b *Bridge) Definitions(whitelist []string) []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(whitelist))
	for _, id := range whitelist {
		if def, ok := b.registry.GetByID(id); ok {
			defs = append(defs, def)
		}
	}
	return defs
}

// compile lazily compiles and caches a tool's JSON-Schema.
func (b *Bridge) compile(name string) (*jsonschema.Schema, error) {
	if s, ok := b.schemas[name]; ok {
		return s, nil
	}
	def, ok := b.registry.GetByID(name)
	if !ok {
		return nil, fmt.Errorf("toolbridge: unknown tool %q", name)
	}
	if def.Schema == nil {
		return nil, nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, def.Schema); err != nil {
		return nil, fmt.Errorf("toolbridge: add schema resource for %q: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("toolbridge: compile schema for %q: %w", name, err)
	}
	b.schemas[name] = schema
	return schema, nil
}

// Dispatch applies budget gating, then validates args against the tool's
// schema, then executes the tool. Schema-validation failures and budget vetoes both
// surface as isError=true tool results, matching how the model perceives
// RUNTIME_BUDGET_EXCEEDED (spec.md §4.2 step 6).
func (b *Bridge) Dispatch(ctx context.Context, name string, args map[string]any) (content string, isError bool) {
	if b.before != nil {
		if ok, msg := b.before(name); !ok {
			return msg, true
		}
	}

	schema, err := b.compile(name)
	if err != nil {
		return err.Error(), true
	}
	if schema != nil {
		if err := schema.Validate(args); err != nil {
			return fmt.Sprintf("invalid arguments for tool %q: %v", name, err), true
		}
	}

	return b.exec(ctx, name, args)
}
