// Package events implements the Event Stream (C10): an ordered, sequenced
// stream of structured events describing orchestration progress. Event
// ordering is the only cross-cutting guarantee this package makes; delivery
// (sinks) is an external concern (spec.md §4.7: "Sinks are out of scope").
package events

// Level classifies an event's severity/intent for UI rendering and filtering.
type Level string

const (
	LevelInfo     Level = "info"
	LevelProgress Level = "progress"
	LevelSuccess  Level = "success"
	LevelError    Level = "error"
)

// Type enumerates the fixed event type tags named in spec.md §4.7.
type Type string

const (
	TypeAgentTaskProgress    Type = "agent.task.progress"
	TypeToolCallStarted      Type = "tool.call.started"
	TypeToolCallProgress     Type = "tool.call.progress"
	TypeToolCallCompleted    Type = "tool.call.completed"
	TypeToolCallFailed       Type = "tool.call.failed"
	TypePatchIntentSubmitted Type = "patch.intent.submitted"
	TypePatchBatchMerged     Type = "patch.batch.merged"
	TypeConflictDetected     Type = "conflict.detected"
	TypeConflictResolved     Type = "conflict.resolved"
	TypeQualityGateUpdated   Type = "quality.gate.updated"
	TypeAutonomyIteration    Type = "autonomy.iteration"
	TypeAutonomyBudget       Type = "autonomy.budget"
	TypeAutonomyDecision     Type = "autonomy.decision"
	TypeRenderPipelineStage  Type = "render.pipeline.stage"
	TypeRunCompleted         Type = "run.completed"
	TypeRunError             Type = "run.error"
)

// Event is the interface all event payloads satisfy. Sequence is assigned by
// the Stream at publish time and is monotonic per run (spec.md §8 invariant 7).
type Event interface {
	Type() Type
	Sequence() uint64
	Timestamp() int64
	Level() Level
	GroupID() string
	ParentID() string
}

// base is embedded by every concrete event to provide the common Event
// methods. Fields are set once by the Stream's Emit* helpers and never mutated
// afterward.
type base struct {
	typ       Type
	sequence  uint64
	timestamp int64
	level     Level
	groupID   string
	parentID  string
}

func (b base) Type() Type        { return b.typ }
func (b base) Sequence() uint64  { return b.sequence }
func (b base) Timestamp() int64  { return b.timestamp }
func (b base) Level() Level      { return b.level }
func (b base) GroupID() string   { return b.groupID }
func (b base) ParentID() string  { return b.parentID }

type (
	// AgentTaskProgressEvent reports incremental task progress, e.g. after a
	// task runner attempt publishes intents ("completed - k file(s) changed").
	AgentTaskProgressEvent struct {
		base
		TaskID  string
		AgentID string
		Message string
	}

	// ToolCallEvent covers the four tool.call.* lifecycle events.
	ToolCallEvent struct {
		base
		TaskID     string
		ToolCallID string
		ToolName   string
		Message    string
		Err        string
	}

	// PatchIntentSubmittedEvent fires when a task publishes a patch intent to
	// the Blackboard.
	PatchIntentSubmittedEvent struct {
		base
		IntentID string
		TaskID   string
		FilePath string
	}

	// PatchBatchMergedEvent fires when the Patch Merger finishes a wave.
	PatchBatchMergedEvent struct {
		base
		WaveID       string
		TouchedFiles []string
		Conflicts    int
	}

	// ConflictEvent covers conflict.detected and conflict.resolved.
	ConflictEvent struct {
		base
		ConflictID string
		FilePath   string
		Reason     string
	}

	// QualityGateUpdatedEvent fires whenever a QualityGateState changes.
	QualityGateUpdatedEvent struct {
		base
		Gate    string
		Status  string
		Summary string
	}

	// AutonomyBudgetEvent reports budget consumption (spec.md §4.4).
	AutonomyBudgetEvent struct {
		base
		Unit      string // "steps" | "calls"
		Used      int
		Limit     int
		Remaining int
		Status    string // ok | warning | exhausted
	}

	// AutonomyIterationEvent marks the start of a new orchestration iteration
	// (a wave, or a quality/repair round).
	AutonomyIterationEvent struct {
		base
		Label string
	}

	// AutonomyDecisionEvent records a discrete orchestration decision (gate
	// pass/fail, retry, budget stop) for audit purposes.
	AutonomyDecisionEvent struct {
		base
		Decision string
		Reason   string
	}

	// RenderPipelineStageEvent marks a named stage transition in the overall
	// pipeline (scheduling, running, merging, quality-gating).
	RenderPipelineStageEvent struct {
		base
		Stage string
	}

	// RunCompletedEvent/RunErrorEvent terminate the stream.
	RunCompletedEvent struct {
		base
		Success         bool
		FinalScore      int
		DegradedTasks   []string
		UnresolvedIssue []string
	}

	RunErrorEvent struct {
		base
		Message string
	}
)
