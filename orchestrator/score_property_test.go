package orchestrator

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestFinalScore_BoundsProperty backs spec.md §4.8 / §8 invariant 6: the final
// score is always in [0,100] regardless of how many tasks degraded or issues
// remained unresolved.
func TestFinalScore_BoundsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("finalScore stays within [0,100]", prop.ForAll(
		func(qualityPassed bool, degradedCount, issueCount int) bool {
			degraded := make([]string, degradedCount)
			issues := make([]string, issueCount)
			score := finalScore(qualityPassed, degraded, issues)
			return score >= 0 && score <= 100
		},
		gen.Bool(),
		gen.IntRange(0, 20),
		gen.IntRange(0, 20),
	))

	properties.Property("a passing, clean run always scores 100", prop.ForAll(
		func(dummy bool) bool {
			return finalScore(true, nil, nil) == 100
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}
