// Package blackboard implements the Blackboard (C2): the single shared,
// in-memory state container for a run. All writes flow through explicit
// setters; per spec.md §3 it is a one-writer/many-reader structure serialized
// by the Orchestrator's cooperative scheduler, so no internal locking is
// strictly required — a mutex is kept anyway so read-only consumers (a
// streaming dashboard, a debugging goroutine) can observe consistent
// snapshots without coordinating with the orchestration thread.
package blackboard

import (
	"sync"

	"github.com/forgeflow/execorch/patch"
	"github.com/forgeflow/execorch/plan"
)

// TaskStatus summarizes a task's lifecycle for blackboard projections.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// QualityGateState is spec.md's QualityGateState entity.
type QualityGateState struct {
	Gate    string
	Status  string // pending | passed | failed
	Summary string
}

// FailedTask records a captured task-level failure for final reporting.
type FailedTask struct {
	TaskID  string
	AgentID plan.AgentID
	Reason  string
}

// Blackboard holds all run-scoped mutable state.
type Blackboard struct {
	mu sync.RWMutex

	tasks         map[string]plan.ExecutionPlanTask
	taskStatus    map[string]TaskStatus
	patchIntents  map[string]patch.Intent
	conflicts     map[string]patch.Conflict
	qualityGates  map[string]QualityGateState

	generatedComponents []string
	failedTasks         []FailedTask

	sessionDocuments []plan.SessionDocument
	currentPlan      *plan.ExecutionPlan
}

// New constructs an empty Blackboard.
func New() *Blackboard {
	return &Blackboard{
		tasks:        make(map[string]plan.ExecutionPlanTask),
		taskStatus:   make(map[string]TaskStatus),
		patchIntents: make(map[string]patch.Intent),
		conflicts:    make(map[string]patch.Conflict),
		qualityGates: make(map[string]QualityGateState),
	}
}

// SetPlan registers the plan and indexes its tasks.
func (b *Blackboard) SetPlan(p *plan.ExecutionPlan) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.currentPlan = p
	for _, t := range p.Tasks {
		b.tasks[t.ID] = t
		b.taskStatus[t.ID] = TaskPending
	}
}

// Plan returns the registered plan, or nil.
func (b *Blackboard) Plan() *plan.ExecutionPlan {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.currentPlan
}

// SetSessionDocuments registers the input session documents.
func (b *Blackboard) SetSessionDocuments(docs []plan.SessionDocument) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionDocuments = docs
}

// SessionDocuments returns the registered session documents.
func (b *Blackboard) SessionDocuments() []plan.SessionDocument {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sessionDocuments
}

// SetTaskStatus updates a task's lifecycle status.
func (b *Blackboard) SetTaskStatus(taskID string, status TaskStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taskStatus[taskID] = status
}

// TaskStatus returns a task's current lifecycle status.
func (b *Blackboard) TaskStatus(taskID string) TaskStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.taskStatus[taskID]
}

// PublishIntent records a patch intent produced by a task.
func (b *Blackboard) PublishIntent(intent patch.Intent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.patchIntents[intent.ID] = intent
}

// Intents returns every published intent across the run so far.
func (b *Blackboard) Intents() []patch.Intent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]patch.Intent, 0, len(b.patchIntents))
	for _, in := range b.patchIntents {
		out = append(out, in)
	}
	return out
}

// RecordConflict implements patch.ConflictSink: every conflict raised by the
// Patch Merger is forwarded here (spec.md §4.3).
func (b *Blackboard) RecordConflict(c patch.Conflict) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conflicts[c.ID] = c
}

// ResolveConflict marks a conflict resolved.
func (b *Blackboard) ResolveConflict(conflictID, resolvedBy string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.conflicts[conflictID]
	if !ok {
		return
	}
	c.Status = patch.ConflictResolved
	c.ResolvedBy = resolvedBy
	b.conflicts[conflictID] = c
}

// Conflicts returns every recorded conflict.
func (b *Blackboard) Conflicts() []patch.Conflict {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]patch.Conflict, 0, len(b.conflicts))
	for _, c := range b.conflicts {
		out = append(out, c)
	}
	return out
}

// SetQualityGate updates (or inserts) a named gate's state.
func (b *Blackboard) SetQualityGate(state QualityGateState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.qualityGates[state.Gate] = state
}

// QualityGate returns a named gate's state.
func (b *Blackboard) QualityGate(gate string) (QualityGateState, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.qualityGates[gate]
	return s, ok
}

// AddGeneratedComponent appends a produced-file marker to the ordered list of
// generated components (e.g. for a UI summary).
func (b *Blackboard) AddGeneratedComponent(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generatedComponents = append(b.generatedComponents, path)
}

// GeneratedComponents returns the ordered list of generated component paths.
func (b *Blackboard) GeneratedComponents() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.generatedComponents...)
}

// AddFailedTask records a terminal task failure.
func (b *Blackboard) AddFailedTask(f FailedTask) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failedTasks = append(b.failedTasks, f)
}

// FailedTasks returns every recorded task failure.
func (b *Blackboard) FailedTasks() []FailedTask {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]FailedTask(nil), b.failedTasks...)
}
