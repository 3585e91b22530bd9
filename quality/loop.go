// Package quality implements the Quality/Repair Loop (C8): scheduling a
// read-only quality-agent review, reconciling it with the deterministic
// Artifact Analyzer, and scheduling a mutation repair-agent task when the
// workspace fails the gate.
package quality

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgeflow/execorch/analyzer"
	"github.com/forgeflow/execorch/blackboard"
	"github.com/forgeflow/execorch/events"
	"github.com/forgeflow/execorch/plan"
	"github.com/forgeflow/execorch/taskrunner"
)

// GateName is the single quality gate this loop tracks on the Blackboard.
const GateName = "frontend-quality"

// TaskRunner is the subset of taskrunner.Runner the loop depends on.
type TaskRunner interface {
	Execute(ctx context.Context, task plan.ExecutionPlanTask, execCtx taskrunner.ExecutionContext, waveID string) (taskrunner.TaskResult, error)
}

// GateRecorder is the subset of blackboard.Blackboard the loop writes to.
type GateRecorder interface {
	SetQualityGate(state blackboard.QualityGateState)
}

// Loop runs the quality/repair rounds for one session workspace.
type Loop struct {
	runner   TaskRunner
	storage  taskrunner.FileStorage
	analyzer *analyzer.Analyzer
	gates    GateRecorder
	stream   *events.Stream
}

// New constructs a Loop. runner, storage, and an Analyzer are required;
// gates/stream are optional reporting sinks.
func New(runner TaskRunner, storage taskrunner.FileStorage, an *analyzer.Analyzer, gates GateRecorder, stream *events.Stream) *Loop {
	return &Loop{runner: runner, storage: storage, analyzer: an, gates: gates, stream: stream}
}

// Result is the outcome of running the loop to completion.
type Result struct {
	Passed            bool
	Rounds            int
	RemainingIssues   []string
	UnresolvedImports []string
	Degraded          bool
	RepairTaskResults []taskrunner.TaskResult
}

// Run executes up to maxRounds quality/repair rounds (spec.md §4.5). It
// returns the terminal gate outcome; budget-exceeded errors from the
// underlying Task Runner propagate unchanged so the Orchestrator can stop the
// run.
func (l *Loop) Run(ctx context.Context, execCtx taskrunner.ExecutionContext, waveID string, docs []plan.SessionDocument, maxRounds int) (Result, error) {
	if maxRounds <= 0 {
		res := Result{Passed: false, Degraded: true, RemainingIssues: []string{"no quality rounds available: iteration budget exhausted"}}
		l.recordGate(waveID, "failed", "Degraded completion — repair rounds exhausted before a quality review could run.")
		return res, nil
	}

	var last Result
	var repairs []taskrunner.TaskResult
	for round := 1; round <= maxRounds; round++ {
		qualityTask := plan.ExecutionPlanTask{
			ID:      fmt.Sprintf("%s-quality-%d", waveID, round),
			AgentID: plan.AgentQuality,
			Goal:    qualityGoal(),
		}
		qr, err := l.runner.Execute(ctx, qualityTask, execCtx, waveID)
		if err != nil {
			return Result{}, err
		}

		files, err := l.currentFiles(ctx, execCtx.SessionID)
		if err != nil {
			return Result{}, err
		}
		artifactIssues := l.analyzer.Analyze(files, docs)
		unresolvedImports := l.analyzer.UnresolvedImports(files)
		modelIssues := parseModelIssues(qr.ResponseText)
		modelPassed := isQualityPassed(qr.ResponseText)

		passed := len(artifactIssues) == 0 && (modelPassed || len(modelIssues) == 0)
		last = Result{
			Passed:            passed,
			Rounds:            round,
			UnresolvedImports: unresolvedImports,
			RepairTaskResults: repairs,
		}
		if len(artifactIssues) > 0 {
			for _, iss := range artifactIssues {
				last.RemainingIssues = append(last.RemainingIssues, iss.Message)
			}
		} else {
			last.RemainingIssues = modelIssues
		}

		if passed {
			l.recordGate(waveID, "passed", fmt.Sprintf("Quality gate passed after %d round(s).", round))
			return last, nil
		}

		if round == maxRounds {
			last.Degraded = true
			l.recordGate(waveID, "failed", "Degraded completion — repair rounds exhausted with "+
				fmt.Sprintf("%d outstanding issue(s).", len(last.RemainingIssues)))
			return last, nil
		}

		l.recordGate(waveID, "pending", fmt.Sprintf("Round %d found %d issue(s); scheduling repair.", round, len(last.RemainingIssues)))

		routeDirectives := routeCoverageDirectives(artifactIssues)
		primaryRoot := analyzer.PrimaryRoot(files)
		repairTask := plan.ExecutionPlanTask{
			ID:      fmt.Sprintf("%s-repair-%d", waveID, round),
			AgentID: plan.AgentRepair,
			Goal:    repairGoal(last.RemainingIssues, unresolvedImports, routeDirectives, primaryRoot),
		}
		rr, err := l.runner.Execute(ctx, repairTask, execCtx, waveID)
		if err != nil {
			return Result{}, err
		}
		repairs = append(repairs, rr)
		last.RepairTaskResults = repairs
	}

	return last, nil
}

func (l *Loop) currentFiles(ctx context.Context, sessionID string) (map[string]string, error) {
	entries, err := l.storage.GetAllFiles(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Path] = e.Content
	}
	return out, nil
}

func (l *Loop) recordGate(waveID, status, summary string) {
	if l.gates != nil {
		l.gates.SetQualityGate(blackboard.QualityGateState{Gate: GateName, Status: status, Summary: summary})
	}
	if l.stream != nil {
		l.stream.EmitQualityGateUpdated(waveID, GateName, status, summary)
	}
}

func qualityGoal() string {
	return "Review every file in the workspace for correctness and structural completeness. " +
		"If there are no issues, respond with exactly QUALITY_PASSED. Otherwise respond with a " +
		"concrete, enumerated list of issues: what is wrong and where."
}

func repairGoal(issues, unresolvedImports, routeDirectives []string, primaryRoot string) string {
	var b strings.Builder
	b.WriteString("Repair the workspace so it passes quality review.\n")
	if len(issues) > 0 {
		b.WriteString("Quality issues to resolve:\n")
		for _, i := range issues {
			b.WriteString("- " + i + "\n")
		}
	}
	if len(unresolvedImports) > 0 {
		b.WriteString("Unresolved imports to fix:\n")
		for _, i := range unresolvedImports {
			b.WriteString("- " + i + "\n")
		}
	}
	if len(routeDirectives) > 0 {
		b.WriteString("Router coverage to add:\n")
		for _, d := range routeDirectives {
			b.WriteString("- " + d + "\n")
		}
	}
	if primaryRoot != "" {
		b.WriteString("Primary workspace root: " + primaryRoot + "\n")
	}
	b.WriteString("Completion criteria: zero unresolved imports, the project must be buildable, " +
		"do not create placeholder stubs.\n")
	return b.String()
}

// routeCoverageDirectives extracts a repair-agent directive per
// missing-architect-routes issue found by the analyzer.
func routeCoverageDirectives(issues []analyzer.Issue) []string {
	var out []string
	for _, iss := range issues {
		if iss.Code == "missing-architect-routes" {
			out = append(out, iss.Message)
		}
	}
	return out
}
