package orchestrator

import (
	"context"
	"testing"

	"github.com/forgeflow/execorch/blackboard"
	"github.com/forgeflow/execorch/budget"
	"github.com/forgeflow/execorch/patch"
	"github.com/forgeflow/execorch/plan"
	"github.com/forgeflow/execorch/quality"
	"github.com/forgeflow/execorch/taskrunner"
)

type scriptedRunner struct {
	results map[string]taskrunner.TaskResult
	errs    map[string]error
	calls   []string
}

func (r *scriptedRunner) Execute(ctx context.Context, task plan.ExecutionPlanTask, execCtx taskrunner.ExecutionContext, waveID string) (taskrunner.TaskResult, error) {
	r.calls = append(r.calls, task.ID)
	if err, ok := r.errs[task.ID]; ok {
		return taskrunner.TaskResult{}, err
	}
	return r.results[task.ID], nil
}

type scriptedLoop struct {
	result quality.Result
	err    error
}

func (l *scriptedLoop) Run(ctx context.Context, execCtx taskrunner.ExecutionContext, waveID string, docs []plan.SessionDocument, maxRounds int) (quality.Result, error) {
	return l.result, l.err
}

func successResult(taskID string, agentID plan.AgentID, files ...string) taskrunner.TaskResult {
	intents := make([]patch.Intent, 0, len(files))
	for _, f := range files {
		intents = append(intents, patch.NewIntent("wave-1", taskID, agentID, f, "content", 1))
	}
	return taskrunner.TaskResult{TaskID: taskID, AgentID: agentID, Success: true, PatchIntents: intents, TouchedFiles: files}
}

func TestOrchestrator_HappyPath(t *testing.T) {
	runner := &scriptedRunner{results: map[string]taskrunner.TaskResult{
		"scaffold-1": successResult("scaffold-1", plan.AgentScaffold, "src/App.tsx"),
	}}
	loop := &scriptedLoop{result: quality.Result{Passed: true, Rounds: 1}}
	board := blackboard.New()
	orch := New(runner, patch.NewMerger(board), loop, board, nil)

	in := Input{
		SessionID: "s1",
		RunID:     "r1",
		Plan: plan.ExecutionPlan{Tasks: []plan.ExecutionPlanTask{
			{ID: "scaffold-1", AgentID: plan.AgentScaffold, Goal: "scaffold the app"},
		}},
	}

	out, err := orch.Run(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.FinalScore != 100 {
		t.Fatalf("expected score 100, got %d", out.FinalScore)
	}
	if len(out.DegradedTasks) != 0 {
		t.Fatalf("expected no degraded tasks, got %v", out.DegradedTasks)
	}
}

func TestOrchestrator_DegradedTaskLowersScore(t *testing.T) {
	runner := &scriptedRunner{results: map[string]taskrunner.TaskResult{
		"scaffold-1": {TaskID: "scaffold-1", AgentID: plan.AgentScaffold, Success: false, Error: errTest{}},
	}}
	loop := &scriptedLoop{result: quality.Result{Passed: true}}
	board := blackboard.New()
	orch := New(runner, patch.NewMerger(board), loop, board, nil)

	in := Input{
		SessionID: "s1",
		RunID:     "r1",
		Plan: plan.ExecutionPlan{Tasks: []plan.ExecutionPlanTask{
			{ID: "scaffold-1", AgentID: plan.AgentScaffold, Goal: "scaffold the app"},
		}},
	}

	out, err := orch.Run(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Success {
		t.Fatalf("expected failure due to degraded task")
	}
	if out.FinalScore != 85 {
		t.Fatalf("expected score 85 (100-15), got %d", out.FinalScore)
	}
	if len(out.DegradedTasks) != 1 {
		t.Fatalf("expected 1 degraded task, got %v", out.DegradedTasks)
	}
}

func TestOrchestrator_QualityFailureLowersScoreAndFlagsIssues(t *testing.T) {
	runner := &scriptedRunner{results: map[string]taskrunner.TaskResult{
		"scaffold-1": successResult("scaffold-1", plan.AgentScaffold, "src/App.tsx"),
	}}
	loop := &scriptedLoop{result: quality.Result{
		Passed:          false,
		Degraded:        true,
		RemainingIssues: []string{"empty-container-page: src/App.tsx"},
	}}
	board := blackboard.New()
	orch := New(runner, patch.NewMerger(board), loop, board, nil)

	in := Input{
		Plan: plan.ExecutionPlan{Tasks: []plan.ExecutionPlanTask{
			{ID: "scaffold-1", AgentID: plan.AgentScaffold},
		}},
	}

	out, err := orch.Run(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Success {
		t.Fatalf("expected failure due to failed quality gate")
	}
	if out.FinalScore != 55 {
		t.Fatalf("expected score 55 (100-35-10), got %d", out.FinalScore)
	}
}

func TestOrchestrator_BudgetExceededStopsRunCleanly(t *testing.T) {
	runner := &scriptedRunner{errs: map[string]error{
		"scaffold-1": &budget.Exceeded{Reason: budget.StopMaxIterations, Message: "maxIterations=1 reached"},
	}}
	loop := &scriptedLoop{result: quality.Result{Passed: true}}
	board := blackboard.New()
	orch := New(runner, patch.NewMerger(board), loop, board, nil)

	in := Input{
		Plan: plan.ExecutionPlan{Tasks: []plan.ExecutionPlanTask{
			{ID: "scaffold-1", AgentID: plan.AgentScaffold},
			{ID: "scaffold-2", AgentID: plan.AgentScaffold},
		}},
	}

	out, err := orch.Run(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("expected budget exhaustion to be handled internally, got error: %v", err)
	}
	if out.Success {
		t.Fatalf("expected unsuccessful run on budget stop")
	}
	if out.BudgetStopReason != budget.StopMaxIterations {
		t.Fatalf("expected stop reason propagated, got %q", out.BudgetStopReason)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected the wave loop to abort after the first task, got calls=%v", runner.calls)
	}
}

func TestOrchestrator_CyclicPlanReturnsError(t *testing.T) {
	runner := &scriptedRunner{}
	loop := &scriptedLoop{}
	board := blackboard.New()
	orch := New(runner, patch.NewMerger(board), loop, board, nil)

	in := Input{
		Plan: plan.ExecutionPlan{Tasks: []plan.ExecutionPlanTask{
			{ID: "a", AgentID: plan.AgentScaffold, DependsOn: []string{"b"}},
			{ID: "b", AgentID: plan.AgentScaffold, DependsOn: []string{"a"}},
		}},
	}

	_, err := orch.Run(context.Background(), in, nil)
	if err == nil {
		t.Fatalf("expected a cycle error")
	}
}

type errTest struct{}

func (errTest) Error() string { return "task failed" }
