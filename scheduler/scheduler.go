// Package scheduler implements the Wave Scheduler (C6): a Kahn topological
// sort that partitions a plan's tasks into dependency-respecting waves.
package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forgeflow/execorch/plan"
)

// CycleError is raised when the plan cannot be fully scheduled because it
// contains a dependency cycle. Members lists every task id that never reached
// zero in-degree.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("execution plan contains a dependency cycle among tasks: %s", strings.Join(e.Members, ", "))
}

// Wave is one set of tasks that may execute concurrently: every task in a
// wave has had all of its in-plan dependencies satisfied by earlier waves.
type Wave struct {
	Index int
	Tasks []plan.ExecutionPlanTask
}

// Schedule partitions tasks into waves by level using Kahn's algorithm.
// Dependency ids that do not name a task in the plan are silently ignored
// (spec.md §4.1 / §9 Open Question 1 — preserved as specified, not upgraded
// to a warning event). Order within a wave matches input order (stable).
// An empty plan yields an empty wave list. A cyclic plan returns a
// *CycleError naming every task that never became ready.
func Schedule(tasks []plan.ExecutionPlanTask) ([]Wave, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	byID := make(map[string]plan.ExecutionPlanTask, len(tasks))
	order := make(map[string]int, len(tasks))
	for i, t := range tasks {
		byID[t.ID] = t
		order[t.ID] = i
	}

	// inDegree counts only dependency ids that resolve to an in-plan task.
	inDegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := byID[dep]; !ok {
				continue // unknown dependency id: silently ignored, per spec
			}
			inDegree[t.ID]++
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	remaining := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		remaining[t.ID] = true
	}

	var waves []Wave
	for len(remaining) > 0 {
		var frontierIDs []string
		for id := range remaining {
			if inDegree[id] == 0 {
				frontierIDs = append(frontierIDs, id)
			}
		}
		if len(frontierIDs) == 0 {
			var members []string
			for id := range remaining {
				members = append(members, id)
			}
			sort.SliceStable(members, func(i, j int) bool { return order[members[i]] < order[members[j]] })
			return nil, &CycleError{Members: members}
		}

		sort.SliceStable(frontierIDs, func(i, j int) bool { return order[frontierIDs[i]] < order[frontierIDs[j]] })

		wave := Wave{Index: len(waves)}
		for _, id := range frontierIDs {
			wave.Tasks = append(wave.Tasks, byID[id])
			delete(remaining, id)
		}
		for _, id := range frontierIDs {
			for _, dep := range dependents[id] {
				inDegree[dep]--
			}
		}
		waves = append(waves, wave)
	}

	return waves, nil
}
