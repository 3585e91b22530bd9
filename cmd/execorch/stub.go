package main

import (
	"context"
	"fmt"

	"github.com/forgeflow/execorch/plan"
	"github.com/forgeflow/execorch/taskrunner"
	"github.com/forgeflow/execorch/toolbridge"
)

// memoryFiles is a trivial in-memory FileStorage for the demo CLI: it reports
// a fixed map seeded with src/App.tsx, and nothing in the demo writes to it.
// It exists only to give the Task Runner something to diff against; a real
// deployment wires its own sandbox-backed FileStorage instead (spec.md §6).
type memoryFiles struct {
	files map[string]string
}

func newMemoryFiles() *memoryFiles {
	return &memoryFiles{files: map[string]string{
		"src/App.tsx": "export default function App() {\n  return null\n}\n",
	}}
}

func (m *memoryFiles) GetAllFiles(ctx context.Context, sessionID string) ([]taskrunner.FileEntry, error) {
	entries := make([]taskrunner.FileEntry, 0, len(m.files))
	for path, content := range m.files {
		entries = append(entries, taskrunner.FileEntry{Path: path, Content: content})
	}
	return entries, nil
}

// stubRegistry has no tools, exercising the Task Runner's prompt-assembly and
// retry machinery without a real sandbox. Mutation-required agents in a demo
// plan (scaffold, page, state) therefore make no file changes and fail after
// their retries.
type stubRegistry struct{}

func (stubRegistry) GetByID(id string) (toolbridge.ToolDefinition, bool) {
	return toolbridge.ToolDefinition{}, false
}

// echoAdapter is a canned LLMAdapter: it reports success without invoking any
// tool, standing in for a real provider SDK (spec.md §6 names LLMAdapter as
// an external collaborator with no concrete in-module implementation).
type echoAdapter struct{}

func (echoAdapter) Complete(ctx context.Context, req taskrunner.CompletionRequest, exec taskrunner.ToolExecutor) (taskrunner.CompletionResult, error) {
	return taskrunner.CompletionResult{
		Text:         fmt.Sprintf("ack: %s", req.SystemPrompt),
		FinishReason: "stop",
		Usage:        taskrunner.Usage{PromptTokens: len(req.SystemPrompt), CompletionTokens: 8},
	}, nil
}

// stubPromptBuilders builds a one-line system prompt per agent task, standing
// in for a real PromptBuilder implementation (spec.md §6).
type stubPromptBuilders struct{}

func (stubPromptBuilders) BuilderFor(agentID plan.AgentID) (taskrunner.PromptBuilder, bool) {
	return stubPromptBuilder{agentID: agentID}, true
}

type stubPromptBuilder struct {
	agentID plan.AgentID
}

func (b stubPromptBuilder) BuildPrompt(ctx taskrunner.ExecutionContext) (string, error) {
	return fmt.Sprintf("you are the %s agent; goal: %s", b.agentID, ctx.Task.Goal), nil
}
