package events

import "sync/atomic"

// Clock returns the current time as Unix milliseconds. It is a seam so tests
// can supply deterministic timestamps without touching the wall clock;
// Sequence order, not Timestamp value, is what spec.md §8 invariant 7 binds.
type Clock func() int64

// Sink receives every event published on a Stream, in sequence order. A Sink
// is a delivery mechanism (e.g. an SSE writer, a Mongo archiver); the core
// ships none as a hard dependency (spec.md §4.7).
type Sink interface {
	Receive(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// Receive calls f.
func (f SinkFunc) Receive(e Event) { f(e) }

// Stream assigns monotonically increasing sequence numbers to events and
// fans them out to registered sinks, in registration order, before returning.
// A Stream is scoped to a single orchestration run.
type Stream struct {
	seq   atomic.Uint64
	clock Clock
	sinks []Sink
}

// NewStream constructs a Stream. If clock is nil, the sequence counter is used
// in its place (each event's timestamp equals its 1-based sequence number),
// which is sufficient since only Sequence ordering is guaranteed.
func NewStream(clock Clock) *Stream {
	return &Stream{clock: clock}
}

// AddSink registers a sink. Not safe to call concurrently with Emit; sinks
// are wired once during orchestrator setup.
func (s *Stream) AddSink(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

func (s *Stream) now() int64 {
	if s.clock != nil {
		return s.clock()
	}
	return int64(s.seq.Load())
}

// next assigns the base fields for a new event and delivers it to every sink.
func (s *Stream) next(typ Type, level Level, groupID, parentID string) base {
	b := base{
		typ:       typ,
		sequence:  s.seq.Add(1),
		timestamp: s.now(),
		level:     level,
		groupID:   groupID,
		parentID:  parentID,
	}
	return b
}

func (s *Stream) emit(e Event) {
	for _, sink := range s.sinks {
		sink.Receive(e)
	}
}

// Emit* helpers construct, sequence, and deliver one concrete event each.
// They return the constructed event so callers can inspect it.

func (s *Stream) EmitAgentTaskProgress(groupID, taskID, agentID, message string) AgentTaskProgressEvent {
	e := AgentTaskProgressEvent{
		base:    s.next(TypeAgentTaskProgress, LevelProgress, groupID, ""),
		TaskID:  taskID,
		AgentID: agentID,
		Message: message,
	}
	s.emit(e)
	return e
}

func (s *Stream) EmitToolCall(typ Type, level Level, groupID, taskID, toolCallID, toolName, message, errMsg string) ToolCallEvent {
	e := ToolCallEvent{
		base:       s.next(typ, level, groupID, ""),
		TaskID:     taskID,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Message:    message,
		Err:        errMsg,
	}
	s.emit(e)
	return e
}

func (s *Stream) EmitPatchIntentSubmitted(groupID, intentID, taskID, filePath string) PatchIntentSubmittedEvent {
	e := PatchIntentSubmittedEvent{
		base:     s.next(TypePatchIntentSubmitted, LevelInfo, groupID, ""),
		IntentID: intentID,
		TaskID:   taskID,
		FilePath: filePath,
	}
	s.emit(e)
	return e
}

func (s *Stream) EmitPatchBatchMerged(groupID, waveID string, touchedFiles []string, conflicts int) PatchBatchMergedEvent {
	e := PatchBatchMergedEvent{
		base:         s.next(TypePatchBatchMerged, LevelInfo, groupID, ""),
		WaveID:       waveID,
		TouchedFiles: touchedFiles,
		Conflicts:    conflicts,
	}
	s.emit(e)
	return e
}

func (s *Stream) EmitConflict(typ Type, groupID, conflictID, filePath, reason string) ConflictEvent {
	e := ConflictEvent{
		base:       s.next(typ, LevelInfo, groupID, ""),
		ConflictID: conflictID,
		FilePath:   filePath,
		Reason:     reason,
	}
	s.emit(e)
	return e
}

func (s *Stream) EmitQualityGateUpdated(groupID, gate, status, summary string) QualityGateUpdatedEvent {
	e := QualityGateUpdatedEvent{
		base:    s.next(TypeQualityGateUpdated, LevelInfo, groupID, ""),
		Gate:    gate,
		Status:  status,
		Summary: summary,
	}
	s.emit(e)
	return e
}

func (s *Stream) EmitAutonomyBudget(level Level, groupID, unit string, used, limit, remaining int, status string) AutonomyBudgetEvent {
	e := AutonomyBudgetEvent{
		base:      s.next(TypeAutonomyBudget, level, groupID, ""),
		Unit:      unit,
		Used:      used,
		Limit:     limit,
		Remaining: remaining,
		Status:    status,
	}
	s.emit(e)
	return e
}

func (s *Stream) EmitAutonomyIteration(groupID, label string) AutonomyIterationEvent {
	e := AutonomyIterationEvent{
		base:  s.next(TypeAutonomyIteration, LevelInfo, groupID, ""),
		Label: label,
	}
	s.emit(e)
	return e
}

func (s *Stream) EmitAutonomyDecision(groupID, decision, reason string) AutonomyDecisionEvent {
	e := AutonomyDecisionEvent{
		base:     s.next(TypeAutonomyDecision, LevelInfo, groupID, ""),
		Decision: decision,
		Reason:   reason,
	}
	s.emit(e)
	return e
}

func (s *Stream) EmitRenderPipelineStage(groupID, stage string) RenderPipelineStageEvent {
	e := RenderPipelineStageEvent{
		base:  s.next(TypeRenderPipelineStage, LevelInfo, groupID, ""),
		Stage: stage,
	}
	s.emit(e)
	return e
}

func (s *Stream) EmitRunCompleted(success bool, finalScore int, degradedTasks, unresolvedIssues []string) RunCompletedEvent {
	level := LevelSuccess
	if !success {
		level = LevelError
	}
	e := RunCompletedEvent{
		base:            s.next(TypeRunCompleted, level, "", ""),
		Success:         success,
		FinalScore:      finalScore,
		DegradedTasks:   degradedTasks,
		UnresolvedIssue: unresolvedIssues,
	}
	s.emit(e)
	return e
}

func (s *Stream) EmitRunError(message string) RunErrorEvent {
	e := RunErrorEvent{
		base:    s.next(TypeRunError, LevelError, "", ""),
		Message: message,
	}
	s.emit(e)
	return e
}
