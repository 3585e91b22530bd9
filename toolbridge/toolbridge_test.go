package toolbridge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeflow/execorch/toolbridge"
)

type fakeRegistry struct {
	defs map[string]toolbridge.ToolDefinition
}

func (r fakeRegistry) GetByID(id string) (toolbridge.ToolDefinition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

func writeToolDef() toolbridge.ToolDefinition {
	return toolbridge.ToolDefinition{
		Name:        "write",
		Description: "write a file",
		Schema: map[string]any{
			"type":     "object",
			"required": []any{"path", "content"},
			"properties": map[string]any{
				"path":    map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
			},
		},
	}
}

func TestBridge_Definitions_SkipsUnknown(t *testing.T) {
	reg := fakeRegistry{defs: map[string]toolbridge.ToolDefinition{"write": writeToolDef()}}
	b := toolbridge.New(reg, nil, nil)
	defs := b.Definitions([]string{"write", "ghost"})
	require.Len(t, defs, 1)
	assert.Equal(t, "write", defs[0].Name)
}

func TestBridge_Dispatch_ValidatesArgs(t *testing.T) {
	reg := fakeRegistry{defs: map[string]toolbridge.ToolDefinition{"write": writeToolDef()}}
	called := false
	exec := func(ctx context.Context, name string, args map[string]any) (string, bool) {
		called = true
		return "ok", false
	}
	b := toolbridge.New(reg, exec, nil)

	content, isError := b.Dispatch(context.Background(), "write", map[string]any{"path": "a.tsx"})
	assert.True(t, isError)
	assert.False(t, called)
	assert.Contains(t, content, "invalid arguments")

	content, isError = b.Dispatch(context.Background(), "write", map[string]any{"path": "a.tsx", "content": "x"})
	assert.False(t, isError)
	assert.True(t, called)
	assert.Equal(t, "ok", content)
}

func TestBridge_Dispatch_BudgetVeto(t *testing.T) {
	reg := fakeRegistry{defs: map[string]toolbridge.ToolDefinition{"write": writeToolDef()}}
	exec := func(ctx context.Context, name string, args map[string]any) (string, bool) {
		t.Fatal("executor should not run when budget vetoes the call")
		return "", false
	}
	before := func(name string) (bool, string) { return false, "RUNTIME_BUDGET_EXCEEDED: maxToolCalls reached" }
	b := toolbridge.New(reg, exec, before)

	content, isError := b.Dispatch(context.Background(), "write", map[string]any{"path": "a.tsx", "content": "x"})
	assert.True(t, isError)
	assert.Contains(t, content, "RUNTIME_BUDGET_EXCEEDED")
}
