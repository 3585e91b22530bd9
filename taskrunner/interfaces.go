package taskrunner

import (
	"context"

	"github.com/forgeflow/execorch/patch"
	"github.com/forgeflow/execorch/plan"
	"github.com/forgeflow/execorch/toolbridge"
)

type (
	// FileEntry is one file snapshotted from the session workspace.
	FileEntry struct {
		Path    string
		Content string
	}

	// FileStorage is the external collaborator named in spec.md §6: it is used
	// only for diff-based intent capture (snapshot before/after an attempt).
	FileStorage interface {
		GetAllFiles(ctx context.Context, sessionID string) ([]FileEntry, error)
	}

	// ExecutionContext is the prompt-assembly context spec.md §4.2 step 2
	// describes: "sessionDocuments, task, a platform tag, and a tech-stack tag."
	// Attempt and RetryHint are populated by the Runner before each attempt.
	ExecutionContext struct {
		SessionID        string
		RunID            string
		SessionDocuments []plan.SessionDocument
		Task             plan.ExecutionPlanTask
		Platform         string
		TechStack        []string
		Attempt          int
		RetryHint        string
	}

	// PromptBuilder delegates system-prompt assembly to the agent itself
	// (spec.md §6: "buildPrompt(execCtx) -> systemPrompt:string; no further
	// introspection").
	PromptBuilder interface {
		BuildPrompt(ctx ExecutionContext) (string, error)
	}

	// PromptBuilders resolves the per-agent PromptBuilder.
	PromptBuilders interface {
		BuilderFor(agentID plan.AgentID) (PromptBuilder, bool)
	}

	// Usage mirrors the LLM adapter's token accounting (spec.md §6).
	Usage struct {
		PromptTokens     int
		CompletionTokens int
	}

	// CompletionRequest is handed to the LLM adapter for one attempt.
	CompletionRequest struct {
		SystemPrompt string
		UserMessage  string
		Tools        []toolbridge.ToolDefinition
	}

	// CompletionResult is the LLM adapter's tool-calling-loop outcome.
	CompletionResult struct {
		Text         string
		FinishReason string
		Usage        Usage
	}

	// ToolExecutor is handed to the LLM adapter; the adapter must invoke it
	// (and must call any onBeforeToolCall hook wrapped inside it) before each
	// tool dispatch, per spec.md §6.
	ToolExecutor func(ctx context.Context, name string, args map[string]any) (content string, isError bool)

	// LLMAdapter is the external collaborator named in spec.md §6. It owns the
	// entire tool-calling loop for one attempt and must honor ctx cancellation.
	LLMAdapter interface {
		Complete(ctx context.Context, req CompletionRequest, exec ToolExecutor) (CompletionResult, error)
	}

	// PatchPublisher is satisfied by *blackboard.Blackboard; kept as a narrow
	// interface so taskrunner does not import blackboard directly.
	PatchPublisher interface {
		PublishIntent(intent patch.Intent)
	}

	// ImportChecker backs the repair agent's resolvable-imports invariant
	// (spec.md §4.2 step 8, second bullet). Implemented by the Artifact
	// Analyzer; taskrunner only depends on this narrow surface to avoid a
	// package cycle (analyzer needs plan types, not taskrunner's).
	ImportChecker interface {
		UnresolvedImports(files map[string]string) []string
	}
)
