package budget_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/forgeflow/execorch/budget"
)

// TestConsumeIteration_MonotonicityProperty backs spec.md's budget monotonicity
// invariant: UsedIterations never decreases across calls and never exceeds
// the configured MaxIterations, regardless of how many calls are issued.
func TestConsumeIteration_MonotonicityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("UsedIterations is monotonic and capped at MaxIterations", prop.ForAll(
		func(maxIterations, calls int) bool {
			tr := budget.New(budget.Limits{MaxIterations: maxIterations})
			prev := 0
			for i := 0; i < calls; i++ {
				_ = tr.ConsumeIteration("")
				snap := tr.Snapshot()
				if snap.UsedIterations < prev {
					return false
				}
				if snap.UsedIterations > maxIterations {
					return false
				}
				prev = snap.UsedIterations
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

// TestSetFinalScore_MonotonicTargetScoreStopProperty checks the target-score
// stop: a score below TargetScore sets StopTargetScore, a score at or above it
// sets no stop, and a later score that reaches the target never clears a stop
// already recorded (first-writer-wins, spec.md §4.4).
func TestSetFinalScore_MonotonicTargetScoreStopProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("falling short of TargetScore latches StopTargetScore", prop.ForAll(
		func(target, score int) bool {
			tr := budget.New(budget.Limits{TargetScore: target})
			tr.SetFinalScore(score)
			if score >= target {
				return tr.StopReason() == ""
			}
			if tr.StopReason() != budget.StopTargetScore {
				return false
			}
			tr.SetFinalScore(target)
			return tr.StopReason() == budget.StopTargetScore
		},
		gen.IntRange(1, 100),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
