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

// TestScenario1_LinearPlanAllPass exercises spec.md §8 scenario 1: a linear
// scaffold->page plan where both agents mutate distinct files and the
// quality gate passes outright.
func TestScenario1_LinearPlanAllPass(t *testing.T) {
	runner := &scriptedRunner{results: map[string]taskrunner.TaskResult{
		"scaffold-1": successResult("scaffold-1", plan.AgentScaffold, "src/App.tsx"),
		"page-1":     successResult("page-1", plan.AgentPage, "src/pages/Home.tsx"),
	}}
	loop := &scriptedLoop{result: quality.Result{Passed: true, Rounds: 1}}
	board := blackboard.New()
	orch := New(runner, patch.NewMerger(board), loop, board, nil)

	in := Input{
		Plan: plan.ExecutionPlan{Tasks: []plan.ExecutionPlanTask{
			{ID: "scaffold-1", AgentID: plan.AgentScaffold, Goal: "scaffold"},
			{ID: "page-1", AgentID: plan.AgentPage, Goal: "home page", DependsOn: []string{"scaffold-1"}},
		}},
	}

	out, err := orch.Run(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Success || out.FinalScore != 100 {
		t.Fatalf("expected success with score 100, got %+v", out)
	}
	if len(out.PatchIntents) != 2 {
		t.Fatalf("expected 2 intents, got %d", len(out.PatchIntents))
	}
	touched := map[string]bool{}
	for _, f := range out.TouchedFiles {
		touched[f] = true
	}
	if !touched["src/App.tsx"] || !touched["src/pages/Home.tsx"] {
		t.Fatalf("expected both files touched, got %v", out.TouchedFiles)
	}
}

// TestScenario2_DiamondConflictLastWriterWins exercises spec.md §8 scenario 2:
// page and state both write src/App.tsx in the same wave; the merger resolves
// a single open conflict in favor of the later timestamp.
func TestScenario2_DiamondConflictLastWriterWins(t *testing.T) {
	pageIntent := patch.NewIntent("wave-2", "page-1", plan.AgentPage, "src/App.tsx", "aaa-content", 10)
	stateIntent := patch.NewIntent("wave-2", "state-1", plan.AgentState, "src/App.tsx", "bbb-content", 20)

	runner := &scriptedRunner{results: map[string]taskrunner.TaskResult{
		"scaffold-1":    successResult("scaffold-1", plan.AgentScaffold, "src/main.tsx"),
		"page-1":        {TaskID: "page-1", AgentID: plan.AgentPage, Success: true, PatchIntents: []patch.Intent{pageIntent}, TouchedFiles: []string{"src/App.tsx"}},
		"state-1":       {TaskID: "state-1", AgentID: plan.AgentState, Success: true, PatchIntents: []patch.Intent{stateIntent}, TouchedFiles: []string{"src/App.tsx"}},
		"interaction-1": successResult("interaction-1", plan.AgentInteraction, "src/hooks/useApp.ts"),
	}}
	loop := &scriptedLoop{result: quality.Result{Passed: true}}
	board := blackboard.New()
	orch := New(runner, patch.NewMerger(board), loop, board, nil)

	in := Input{
		Plan: plan.ExecutionPlan{Tasks: []plan.ExecutionPlanTask{
			{ID: "scaffold-1", AgentID: plan.AgentScaffold},
			{ID: "page-1", AgentID: plan.AgentPage, DependsOn: []string{"scaffold-1"}},
			{ID: "state-1", AgentID: plan.AgentState, DependsOn: []string{"scaffold-1"}},
			{ID: "interaction-1", AgentID: plan.AgentInteraction, DependsOn: []string{"page-1", "state-1"}},
		}},
	}

	out, err := orch.Run(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Success {
		t.Fatalf("expected overall success despite the open conflict, got %+v", out)
	}

	conflicts := board.Conflicts()
	if len(conflicts) != 1 {
		t.Fatalf("expected exactly one open conflict, got %d", len(conflicts))
	}
	if conflicts[0].FilePath != "src/App.tsx" {
		t.Fatalf("expected conflict on src/App.tsx, got %s", conflicts[0].FilePath)
	}

	var winner patch.Intent
	for _, in := range board.Intents() {
		if in.FilePath == "src/App.tsx" {
			winner = in
		}
	}
	if winner.CreatedAt != 20 || winner.ContentHash != patch.HashContent("bbb-content") {
		t.Fatalf("expected state-agent's later write to win, got %+v", winner)
	}
}

// TestScenario5_WallClockBudgetStopsRemainingTasks exercises spec.md §8
// scenario 5: a maxDurationMs budget that is already exhausted by the time
// the second task is reached stops the run with stopReason=maxDurationMs and
// leaves the remaining tasks out of the successful set.
func TestScenario5_WallClockBudgetStopsRemainingTasks(t *testing.T) {
	runner := &scriptedRunner{
		results: map[string]taskrunner.TaskResult{
			"task-1": successResult("task-1", plan.AgentScaffold, "src/App.tsx"),
		},
		errs: map[string]error{
			"task-2": &budget.Exceeded{Reason: budget.StopMaxDuration, Message: "maxDurationMs=1500 reached"},
		},
	}
	loop := &scriptedLoop{result: quality.Result{Passed: true}}
	board := blackboard.New()
	orch := New(runner, patch.NewMerger(board), loop, board, nil)

	in := Input{
		Plan: plan.ExecutionPlan{Tasks: []plan.ExecutionPlanTask{
			{ID: "task-1", AgentID: plan.AgentScaffold},
			{ID: "task-2", AgentID: plan.AgentPage, DependsOn: []string{"task-1"}},
			{ID: "task-3", AgentID: plan.AgentState, DependsOn: []string{"task-1"}},
		}},
	}

	out, err := orch.Run(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("expected budget exhaustion handled internally, got error: %v", err)
	}
	if out.Success {
		t.Fatalf("expected failure on wall-clock budget stop")
	}
	if out.BudgetStopReason != budget.StopMaxDuration {
		t.Fatalf("expected stop reason maxDurationMs, got %q", out.BudgetStopReason)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected the run to stop right after task-2's budget check, got calls=%v", runner.calls)
	}
}

// TestScenario_TargetScoreShortfallAddsUnresolvedIssue exercises spec.md §8's
// targetScore scenario: targetScore=100 with one degraded task drops the
// score to 85, which raises stopReason=targetScore and folds the shortfall
// into UnresolvedIssues rather than leaving it stranded in the budget
// tracker.
func TestScenario_TargetScoreShortfallAddsUnresolvedIssue(t *testing.T) {
	runner := &scriptedRunner{results: map[string]taskrunner.TaskResult{
		"scaffold-1": successResult("scaffold-1", plan.AgentScaffold, "src/App.tsx"),
		"page-1":     {TaskID: "page-1", AgentID: plan.AgentPage, Success: false},
	}}
	loop := &scriptedLoop{result: quality.Result{Passed: true}}
	board := blackboard.New()
	orch := New(runner, patch.NewMerger(board), loop, board, nil)
	tracker := budget.New(budget.Limits{TargetScore: 100})

	in := Input{
		Plan: plan.ExecutionPlan{Tasks: []plan.ExecutionPlanTask{
			{ID: "scaffold-1", AgentID: plan.AgentScaffold},
			{ID: "page-1", AgentID: plan.AgentPage, DependsOn: []string{"scaffold-1"}},
		}},
	}

	out, err := orch.Run(context.Background(), in, tracker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Success {
		t.Fatalf("expected failure when score falls short of targetScore")
	}
	if out.FinalScore != 85 {
		t.Fatalf("expected final score 85, got %d", out.FinalScore)
	}
	if out.BudgetStopReason != budget.StopTargetScore {
		t.Fatalf("expected stop reason targetScore, got %q", out.BudgetStopReason)
	}
	found := false
	for _, issue := range out.UnresolvedIssues {
		if issue == "score 85 fell short of targetScore 100 by 15" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected targetScore shortfall in unresolved issues, got %v", out.UnresolvedIssues)
	}
}
