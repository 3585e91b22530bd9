package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/forgeflow/execorch/plan"
	"github.com/forgeflow/execorch/scheduler"
)

func TestSchedule_EmptyPlan(t *testing.T) {
	waves, err := scheduler.Schedule(nil)
	require.NoError(t, err)
	assert.Empty(t, waves)
}

func TestSchedule_Diamond(t *testing.T) {
	tasks := []plan.ExecutionPlanTask{
		{ID: "scaffold", AgentID: plan.AgentScaffold},
		{ID: "page", AgentID: plan.AgentPage, DependsOn: []string{"scaffold"}},
		{ID: "state", AgentID: plan.AgentState, DependsOn: []string{"scaffold"}},
		{ID: "interaction", AgentID: plan.AgentInteraction, DependsOn: []string{"page", "state"}},
	}
	waves, err := scheduler.Schedule(tasks)
	require.NoError(t, err)
	require.Len(t, waves, 3)
	assert.Equal(t, []string{"scaffold"}, ids(waves[0]))
	assert.ElementsMatch(t, []string{"page", "state"}, ids(waves[1]))
	assert.Equal(t, []string{"interaction"}, ids(waves[2]))
}

func TestSchedule_UnknownDependencyIgnored(t *testing.T) {
	tasks := []plan.ExecutionPlanTask{
		{ID: "a", DependsOn: []string{"ghost"}},
	}
	waves, err := scheduler.Schedule(tasks)
	require.NoError(t, err)
	require.Len(t, waves, 1)
	assert.Equal(t, []string{"a"}, ids(waves[0]))
}

func TestSchedule_CycleFails(t *testing.T) {
	tasks := []plan.ExecutionPlanTask{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
	}
	_, err := scheduler.Schedule(tasks)
	require.Error(t, err)
	var cycleErr *scheduler.CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.Members)
}

func TestSchedule_StableOrderWithinWave(t *testing.T) {
	tasks := []plan.ExecutionPlanTask{
		{ID: "z"}, {ID: "y"}, {ID: "x"},
	}
	waves, err := scheduler.Schedule(tasks)
	require.NoError(t, err)
	require.Len(t, waves, 1)
	assert.Equal(t, []string{"z", "y", "x"}, ids(waves[0]))
}

func ids(w scheduler.Wave) []string {
	out := make([]string, len(w.Tasks))
	for i, t := range w.Tasks {
		out[i] = t.ID
	}
	return out
}

// TestSchedule_SoundnessProperty is a property test for invariant 1 (spec.md
// §8): for every edge a->b, wave(a) < wave(b); every task has wave >= 0.
func TestSchedule_SoundnessProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("acyclic chains always respect wave ordering", prop.ForAll(
		func(n int) bool {
			if n <= 0 {
				return true
			}
			tasks := make([]plan.ExecutionPlanTask, n)
			for i := 0; i < n; i++ {
				task := plan.ExecutionPlanTask{ID: idFor(i)}
				if i > 0 {
					task.DependsOn = []string{idFor(i - 1)}
				}
				tasks[i] = task
			}
			waves, err := scheduler.Schedule(tasks)
			if err != nil {
				return false
			}
			waveOf := make(map[string]int)
			for _, w := range waves {
				for _, task := range w.Tasks {
					waveOf[task.ID] = w.Index
				}
			}
			for i := 1; i < n; i++ {
				if waveOf[idFor(i-1)] >= waveOf[idFor(i)] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
	))

	properties.TestingRun(t)
}

func idFor(i int) string {
	return "t" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

// TestSchedule_CompletenessProperty backs invariant 2 (spec.md §8): every task
// in an acyclic plan appears in exactly one wave, and no task is dropped or
// duplicated regardless of how many independent chains the plan has.
func TestSchedule_CompletenessProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("every task appears in exactly one wave", prop.ForAll(
		func(chainCount, chainLen int) bool {
			if chainCount <= 0 || chainLen <= 0 {
				return true
			}
			var tasks []plan.ExecutionPlanTask
			for c := 0; c < chainCount; c++ {
				for i := 0; i < chainLen; i++ {
					id := "c" + idFor(c) + "-" + idFor(i)
					task := plan.ExecutionPlanTask{ID: id}
					if i > 0 {
						task.DependsOn = []string{"c" + idFor(c) + "-" + idFor(i-1)}
					}
					tasks = append(tasks, task)
				}
			}
			waves, err := scheduler.Schedule(tasks)
			if err != nil {
				return false
			}
			seen := make(map[string]int)
			for _, w := range waves {
				for _, task := range w.Tasks {
					seen[task.ID]++
				}
			}
			if len(seen) != len(tasks) {
				return false
			}
			for _, task := range tasks {
				if seen[task.ID] != 1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 6),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}
