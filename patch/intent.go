// Package patch implements the Patch Merger (C1): grouping file mutations by
// path, applying last-writer-wins, and recording conflicts when two or more
// tasks in the same wave touch the same file.
package patch

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/forgeflow/execorch/plan"
)

type (
	// Intent is a proposed full-file write produced by a single task, awaiting
	// merge. ContentHash is the SHA-1 of Content, computed at construction time
	// so merge tie-breaking never has to re-hash.
	Intent struct {
		ID          string
		WaveID      string
		TaskID      string
		AgentID     plan.AgentID
		FilePath    string
		Content     string
		ContentHash string
		CreatedAt   int64 // monotonic nanoseconds, not wall-clock
	}

	// ConflictStatus is the lifecycle state of a ConflictRecord.
	ConflictStatus string

	// Conflict records that two or more intents in a single wave targeted the
	// same file. It stays "open" until explicitly resolved by a caller.
	Conflict struct {
		ID              string
		FilePath        string
		InvolvedAgents  []plan.AgentID
		Reason          string
		Status          ConflictStatus
		ResolvedBy      string
	}

	// Batch is the outcome of merging one wave's intents: one winning intent
	// per touched file, plus any conflicts raised along the way.
	Batch struct {
		ID          string
		WaveID      string
		Merged      []Intent
		Conflicts   []Conflict
		TouchedFiles []string
	}
)

const (
	ConflictOpen     ConflictStatus = "open"
	ConflictResolved ConflictStatus = "resolved"
)

// NewIntent computes the content hash and assigns a fresh id.
func NewIntent(waveID, taskID string, agentID plan.AgentID, filePath, content string, createdAt int64) Intent {
	return Intent{
		ID:          uuid.NewString(),
		WaveID:      waveID,
		TaskID:      taskID,
		AgentID:     agentID,
		FilePath:    filePath,
		Content:     content,
		ContentHash: HashContent(content),
		CreatedAt:   createdAt,
	}
}

// HashContent returns the SHA-1 hex digest of content, used as PatchIntent.contentHash.
func HashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
