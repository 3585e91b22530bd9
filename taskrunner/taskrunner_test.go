package taskrunner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeflow/execorch/budget"
	"github.com/forgeflow/execorch/plan"
	"github.com/forgeflow/execorch/taskrunner"
	"github.com/forgeflow/execorch/toolbridge"
)

type memStorage struct{ files map[string]string }

func (s *memStorage) GetAllFiles(ctx context.Context, sessionID string) ([]taskrunner.FileEntry, error) {
	out := make([]taskrunner.FileEntry, 0, len(s.files))
	for p, c := range s.files {
		out = append(out, taskrunner.FileEntry{Path: p, Content: c})
	}
	return out, nil
}

type stubBuilder struct{}

func (stubBuilder) BuildPrompt(ctx taskrunner.ExecutionContext) (string, error) { return "prompt", nil }

type stubBuilders struct{}

func (stubBuilders) BuilderFor(agentID plan.AgentID) (taskrunner.PromptBuilder, bool) {
	return stubBuilder{}, true
}

type emptyRegistry struct{}

func (emptyRegistry) GetByID(id string) (toolbridge.ToolDefinition, bool) { return toolbridge.ToolDefinition{}, false }

// toolARegistry knows a single schema-less tool, "tool-a".
type toolARegistry struct{}

func (toolARegistry) GetByID(id string) (toolbridge.ToolDefinition, bool) {
	return toolbridge.ToolDefinition{Name: id}, id == "tool-a"
}

func noopExec(ctx context.Context, name string, args map[string]any) (string, bool) { return "", false }

// writingLLM simulates a mutation-required agent that writes one file on its
// first call to exec, then reports no further tool calls.
type writingLLM struct {
	storage *memStorage
	path    string
	content string
}

func (l *writingLLM) Complete(ctx context.Context, req taskrunner.CompletionRequest, exec taskrunner.ToolExecutor) (taskrunner.CompletionResult, error) {
	l.storage.files[l.path] = l.content
	return taskrunner.CompletionResult{Text: "done", FinishReason: "stop"}, nil
}

// silentLLM never mutates anything.
type silentLLM struct{}

func (silentLLM) Complete(ctx context.Context, req taskrunner.CompletionRequest, exec taskrunner.ToolExecutor) (taskrunner.CompletionResult, error) {
	return taskrunner.CompletionResult{Text: "no changes needed", FinishReason: "stop"}, nil
}

func TestRunner_Execute_Success(t *testing.T) {
	storage := &memStorage{files: map[string]string{}}
	r := taskrunner.New(storage, stubBuilders{}, emptyRegistry{}, noopExec, &writingLLM{storage: storage, path: "src/App.tsx", content: "export default function App() {}"})

	task := plan.ExecutionPlanTask{ID: "t1", AgentID: plan.AgentScaffold}
	result, err := r.Execute(context.Background(), task, taskrunner.ExecutionContext{SessionID: "s1"}, "wave-0")

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.PatchIntents, 1)
	assert.Equal(t, "src/App.tsx", result.TouchedFiles[0])
}

func TestRunner_Execute_MutationMissingFailsAfterRetries(t *testing.T) {
	storage := &memStorage{files: map[string]string{}}
	r := taskrunner.New(storage, stubBuilders{}, emptyRegistry{}, noopExec, silentLLM{})

	task := plan.ExecutionPlanTask{ID: "t1", AgentID: plan.AgentPage}
	result, err := r.Execute(context.Background(), task, taskrunner.ExecutionContext{SessionID: "s1"}, "wave-0")

	require.NoError(t, err)
	assert.False(t, result.Success)
	var mutationErr *taskrunner.MutationMissingError
	require.ErrorAs(t, result.Error, &mutationErr)
}

func TestRunner_Execute_QualityAgentNeverRetries(t *testing.T) {
	storage := &memStorage{files: map[string]string{}}
	calls := 0
	countingLLM := countFunc(func() { calls++ })
	r := taskrunner.New(storage, stubBuilders{}, emptyRegistry{}, noopExec, countingLLM)

	task := plan.ExecutionPlanTask{ID: "q1", AgentID: plan.AgentQuality}
	_, err := r.Execute(context.Background(), task, taskrunner.ExecutionContext{SessionID: "s1"}, "wave-0")

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

type countFunc func()

func (f countFunc) Complete(ctx context.Context, req taskrunner.CompletionRequest, exec taskrunner.ToolExecutor) (taskrunner.CompletionResult, error) {
	f()
	return taskrunner.CompletionResult{Text: "QUALITY_PASSED"}, nil
}

// toolCallingLLM dispatches n tool calls through exec and records whether
// each was throttled (isError).
type toolCallingLLM struct {
	n       int
	results *[]bool
}

func (l toolCallingLLM) Complete(ctx context.Context, req taskrunner.CompletionRequest, exec taskrunner.ToolExecutor) (taskrunner.CompletionResult, error) {
	for i := 0; i < l.n; i++ {
		_, isError := exec(ctx, "tool-a", nil)
		*l.results = append(*l.results, isError)
	}
	return taskrunner.CompletionResult{Text: "QUALITY_PASSED"}, nil
}

func TestRunner_Execute_ToolCallRateLimitThrottlesAfterBurst(t *testing.T) {
	storage := &memStorage{files: map[string]string{}}
	var results []bool
	r := taskrunner.New(storage, stubBuilders{}, toolARegistry{}, noopExec, toolCallingLLM{n: 3, results: &results}, taskrunner.WithToolCallRateLimit(0, 1))

	task := plan.ExecutionPlanTask{ID: "q1", AgentID: plan.AgentQuality}
	_, err := r.Execute(context.Background(), task, taskrunner.ExecutionContext{SessionID: "s1"}, "wave-0")

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.False(t, results[0], "first call should consume the single burst token")
	assert.True(t, results[1], "second call should be throttled")
	assert.True(t, results[2], "third call should be throttled")
}

func TestRunner_Execute_BudgetExhaustionPropagates(t *testing.T) {
	storage := &memStorage{files: map[string]string{}}
	tracker := budget.New(budget.Limits{MaxIterations: 1})
	// Exhaust the single iteration before the task runs.
	_ = tracker.ConsumeIteration("pre")

	r := taskrunner.New(storage, stubBuilders{}, emptyRegistry{}, noopExec, silentLLM{}, taskrunner.WithBudget(tracker))
	task := plan.ExecutionPlanTask{ID: "t1", AgentID: plan.AgentScaffold}
	_, err := r.Execute(context.Background(), task, taskrunner.ExecutionContext{SessionID: "s1"}, "wave-0")

	require.Error(t, err)
	var exceeded *budget.Exceeded
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, budget.StopMaxIterations, exceeded.Reason)
}
