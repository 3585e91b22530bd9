// Package orchestrator implements the Orchestrator (C9): the entry point
// that drives the Scheduler, Task Runner, Patch Merger, and Quality/Repair
// Loop to completion for a single run, emitting the event stream and
// computing the final score.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgeflow/execorch/blackboard"
	"github.com/forgeflow/execorch/budget"
	"github.com/forgeflow/execorch/events"
	"github.com/forgeflow/execorch/patch"
	"github.com/forgeflow/execorch/plan"
	"github.com/forgeflow/execorch/quality"
	"github.com/forgeflow/execorch/scheduler"
	"github.com/forgeflow/execorch/taskrunner"
)

// Input is the Orchestrator's contract input (spec.md §6).
type Input struct {
	SessionID        string
	RunID            string
	UserMessage      string
	Platform         string
	TechStack        []string
	Plan             plan.ExecutionPlan
	SessionDocuments []plan.SessionDocument
	RuntimeBudget    budget.Limits
}

// Output is the Orchestrator's contract output (spec.md §6).
type Output struct {
	Success           bool
	PatchIntents      []patch.Intent
	TouchedFiles      []string
	DegradedTasks     []string
	UnresolvedIssues  []string
	UsedIterations    int
	UsedToolCalls     int
	ElapsedMs         int64
	FinalScore        int
	BudgetStopReason  budget.StopReason
}

// TaskRunner is the subset of taskrunner.Runner the Orchestrator depends on.
type TaskRunner interface {
	Execute(ctx context.Context, task plan.ExecutionPlanTask, execCtx taskrunner.ExecutionContext, waveID string) (taskrunner.TaskResult, error)
}

// QualityLoop is the subset of quality.Loop the Orchestrator depends on.
type QualityLoop interface {
	Run(ctx context.Context, execCtx taskrunner.ExecutionContext, waveID string, docs []plan.SessionDocument, maxRounds int) (quality.Result, error)
}

// Orchestrator wires the pipeline components for one run.
type Orchestrator struct {
	runner  TaskRunner
	merger  *patch.Merger
	loop    QualityLoop
	board   *blackboard.Blackboard
	stream  *events.Stream
}

// New constructs an Orchestrator. All arguments are required except stream.
func New(runner TaskRunner, merger *patch.Merger, loop QualityLoop, board *blackboard.Blackboard, stream *events.Stream) *Orchestrator {
	return &Orchestrator{runner: runner, merger: merger, loop: loop, board: board, stream: stream}
}

// Run drives Scheduler -> Task Runner (per wave) -> Patch Merger -> Quality/
// Repair Loop, then computes the final score (spec.md §4.8). A *budget.Exceeded
// from any stage ends the run cleanly: the wave loop is abandoned, the final
// event is still emitted, and Output reflects the partial result.
func (o *Orchestrator) Run(ctx context.Context, in Input, b *budget.Tracker) (Output, error) {
	if o.board != nil {
		o.board.SetPlan(&in.Plan)
		o.board.SetSessionDocuments(in.SessionDocuments)
	}

	waves, err := scheduler.Schedule(in.Plan.Tasks)
	if err != nil {
		o.emitRunError(err.Error())
		return Output{}, fmt.Errorf("orchestrator: %w", err)
	}

	var degradedTasks []string
	var stopReason budget.StopReason

	execCtx := taskrunner.ExecutionContext{
		SessionID:        in.SessionID,
		RunID:            in.RunID,
		SessionDocuments: in.SessionDocuments,
		Platform:         in.Platform,
		TechStack:        in.TechStack,
	}

waveLoop:
	for waveIdx, wave := range waves {
		waveID := fmt.Sprintf("wave-%d", waveIdx+1)
		if o.stream != nil {
			o.stream.EmitAutonomyIteration(waveID, waveID)
			o.stream.EmitRenderPipelineStage(waveID, "running")
		}

		var intents []patch.Intent
		for _, task := range wave.Tasks {
			if o.board != nil {
				o.board.SetTaskStatus(task.ID, blackboard.TaskRunning)
			}
			result, err := o.runner.Execute(ctx, task, execCtx, waveID)
			if err != nil {
				var exceeded *budget.Exceeded
				if errors.As(err, &exceeded) {
					stopReason = exceeded.Reason
					break waveLoop
				}
				return Output{}, fmt.Errorf("orchestrator: task %q: %w", task.ID, err)
			}
			if !result.Success {
				degradedTasks = append(degradedTasks, task.ID)
				if o.board != nil {
					o.board.SetTaskStatus(task.ID, blackboard.TaskFailed)
					reason := ""
					if result.Error != nil {
						reason = result.Error.Error()
					}
					o.board.AddFailedTask(blackboard.FailedTask{TaskID: task.ID, AgentID: task.AgentID, Reason: reason})
				}
				continue
			}
			if o.board != nil {
				o.board.SetTaskStatus(task.ID, blackboard.TaskSucceeded)
				for _, path := range result.TouchedFiles {
					o.board.AddGeneratedComponent(path)
				}
			}
			intents = append(intents, result.PatchIntents...)
		}

		if o.merger != nil {
			batch := o.merger.Merge(waveID, intents)
			if o.board != nil {
				for _, in := range batch.Merged {
					o.board.PublishIntent(in)
				}
			}
			if o.stream != nil {
				o.stream.EmitPatchBatchMerged(waveID, waveID, batch.TouchedFiles, len(batch.Conflicts))
			}
		}
	}

	var unresolvedIssues []string
	qualityPassed := true
	if stopReason == "" && o.loop != nil {
		maxRounds := 5
		if b != nil {
			maxRounds = b.ResolveQualityMaxRounds()
		}
		qr, err := o.loop.Run(ctx, execCtx, "quality", in.SessionDocuments, maxRounds)
		if err != nil {
			var exceeded *budget.Exceeded
			if errors.As(err, &exceeded) {
				stopReason = exceeded.Reason
			} else {
				return Output{}, fmt.Errorf("orchestrator: quality loop: %w", err)
			}
		} else {
			qualityPassed = qr.Passed
			unresolvedIssues = append(unresolvedIssues, qr.RemainingIssues...)
			unresolvedIssues = append(unresolvedIssues, qr.UnresolvedImports...)
		}
	}

	score := finalScore(qualityPassed, degradedTasks, unresolvedIssues)
	if b != nil {
		b.SetFinalScore(score)
		if reason := b.StopReason(); reason != "" {
			stopReason = reason
		}
		if stopReason == budget.StopTargetScore {
			target := b.Snapshot().Limits.TargetScore
			unresolvedIssues = append(unresolvedIssues, fmt.Sprintf("score %d fell short of targetScore %d by %d", score, target, target-score))
		}
	}

	out := Output{
		Success:          stopReason == "" && qualityPassed && len(degradedTasks) == 0 && len(unresolvedIssues) == 0,
		DegradedTasks:    degradedTasks,
		UnresolvedIssues: unresolvedIssues,
		FinalScore:       score,
		BudgetStopReason: stopReason,
	}
	if o.board != nil {
		out.PatchIntents = o.board.Intents()
		out.TouchedFiles = o.board.GeneratedComponents()
	}
	if b != nil {
		snap := b.Snapshot()
		out.UsedIterations = snap.UsedIterations
		out.UsedToolCalls = snap.UsedToolCalls
		out.ElapsedMs = b.ElapsedMs()
	}

	if o.stream != nil {
		o.stream.EmitRunCompleted(out.Success, score, degradedTasks, unresolvedIssues)
	}

	return out, nil
}

// finalScore implements spec.md §4.8's formula, clamped to [0,100]. The
// targetScore shortfall, if any, is appended to unresolvedIssues by Run
// after this function returns, once the budget tracker has had a chance to
// raise StopTargetScore against the computed score.
func finalScore(qualityPassed bool, degradedTasks, unresolvedIssues []string) int {
	score := 100
	if !qualityPassed {
		score -= 35
	}
	score -= 15 * len(degradedTasks)
	score -= 10 * len(unresolvedIssues)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func (o *Orchestrator) emitRunError(message string) {
	if o.stream != nil {
		o.stream.EmitRunError(message)
	}
}
