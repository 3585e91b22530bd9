package patch

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/forgeflow/execorch/plan"
)

// ConflictSink receives every conflict raised by a merge, regardless of
// whether the caller keeps the returned Batch around. The Blackboard
// implements this so conflicts are always forwarded (spec.md §4.3: "Every
// conflict is also forwarded to the Blackboard").
type ConflictSink interface {
	RecordConflict(c Conflict)
}

// Merger groups patch intents by file path within a wave and resolves
// concurrent writes under a deterministic last-writer-wins policy.
type Merger struct {
	sink ConflictSink
}

// NewMerger constructs a Merger. sink may be nil, in which case conflicts are
// only returned in the Batch and not forwarded anywhere else.
func NewMerger(sink ConflictSink) *Merger {
	return &Merger{sink: sink}
}

// Merge groups intents by FilePath. Single-intent groups pass through
// untouched. Multi-intent groups are sorted by (createdAt asc, contentHash
// asc); the last element is the winner, and every contributing agent is
// recorded in an open Conflict. Empty input returns an empty batch with an
// empty waveID (spec.md §4.3).
func (m *Merger) Merge(waveID string, intents []Intent) Batch {
	if len(intents) == 0 {
		return Batch{ID: uuid.NewString()}
	}

	byPath := make(map[string][]Intent)
	var order []string
	for _, in := range intents {
		if _, ok := byPath[in.FilePath]; !ok {
			order = append(order, in.FilePath)
		}
		byPath[in.FilePath] = append(byPath[in.FilePath], in)
	}

	batch := Batch{ID: uuid.NewString(), WaveID: waveID}
	for _, path := range order {
		group := byPath[path]
		if len(group) == 1 {
			batch.Merged = append(batch.Merged, group[0])
			batch.TouchedFiles = append(batch.TouchedFiles, path)
			continue
		}

		sorted := append([]Intent(nil), group...)
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].CreatedAt != sorted[j].CreatedAt {
				return sorted[i].CreatedAt < sorted[j].CreatedAt
			}
			return sorted[i].ContentHash < sorted[j].ContentHash
		})
		winner := sorted[len(sorted)-1]
		batch.Merged = append(batch.Merged, winner)
		batch.TouchedFiles = append(batch.TouchedFiles, path)

		agents := make([]plan.AgentID, 0, len(group))
		for _, in := range group {
			agents = append(agents, in.AgentID)
		}
		conflict := Conflict{
			ID:             uuid.NewString(),
			FilePath:       path,
			InvolvedAgents: agents,
			Reason:         fmt.Sprintf("multiple intents for %s", path),
			Status:         ConflictOpen,
		}
		batch.Conflicts = append(batch.Conflicts, conflict)
		if m.sink != nil {
			m.sink.RecordConflict(conflict)
		}
	}

	return batch
}

// MergeIdempotent re-merges an already-merged batch's winners, used to check
// the merge-determinism invariant (spec.md §8: "merge(merge(x)) has the same
// winner as merge(x) for every file"). Since Batch.Merged already holds one
// intent per file, re-merging is a structural no-op; this helper exists so
// tests can express the property directly against the public API instead of
// reaching into internals.
func (m *Merger) MergeIdempotent(waveID string, batch Batch) Batch {
	return m.Merge(waveID, batch.Merged)
}
