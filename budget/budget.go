// Package budget implements the Budget Tracker (C3): iteration, wall-clock,
// tool-call, and target-score accounting, with first-writer-wins stop-reason
// semantics and structured budget events.
package budget

import (
	"fmt"
	"sync"
	"time"

	"github.com/forgeflow/execorch/events"
	"github.com/forgeflow/execorch/telemetry"
)

// StopReason enumerates the budget limits that can terminate a run.
type StopReason string

const (
	StopMaxIterations StopReason = "maxIterations"
	StopMaxDuration    StopReason = "maxDurationMs"
	StopMaxToolCalls   StopReason = "maxToolCalls"
	StopTargetScore    StopReason = "targetScore"
)

// Status classifies remaining headroom against a limit.
type Status string

const (
	StatusOK        Status = "ok"
	StatusWarning   Status = "warning"
	StatusExhausted Status = "exhausted"
)

// Limits is the subset of caps a caller wishes to enforce. A zero value for
// any field means "no limit" for that dimension.
type Limits struct {
	MaxIterations int
	MaxDurationMs int64
	MaxToolCalls  int
	TargetScore   int // 0 means unset; valid range is (0,100]
}

// hasAny reports whether at least one limit is finite and positive.
func (l Limits) hasAny() bool {
	return l.MaxIterations > 0 || l.MaxDurationMs > 0 || l.MaxToolCalls > 0 || l.TargetScore > 0
}

// State is the externally observable snapshot of a Tracker (spec.md's
// ExecutionBudgetState).
type State struct {
	Limits         Limits
	UsedIterations int
	UsedToolCalls  int
	StartedAt      time.Time
	StopReason     StopReason
	StopMessage    string
	FinalScore     *int
}

// Exceeded is the typed error raised when a budget dimension is breached. It
// carries the Reason so callers can route it to the orchestrator's cleanup
// path (spec.md §7: BudgetExceededError "propagates out of the wave loop").
type Exceeded struct {
	Reason  StopReason
	Message string
}

func (e *Exceeded) Error() string {
	return fmt.Sprintf("budget exceeded (%s): %s", e.Reason, e.Message)
}

// Tracker enforces Limits across a run. All methods are safe for sequential
// use from the single orchestration thread of control and from the
// tool-execution hook invoked within that same thread (spec.md §5).
type Tracker struct {
	mu     sync.Mutex
	limits Limits
	used   State

	now     func() time.Time
	stream  *events.Stream
	metrics telemetry.Metrics
	tracer  telemetry.Tracer
}

// Option configures optional Tracker collaborators.
type Option func(*Tracker)

// WithClock overrides the time source (tests use a fake clock).
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithEventStream attaches the Stream autonomy.budget events are published to.
func WithEventStream(s *events.Stream) Option {
	return func(t *Tracker) { t.stream = s }
}

// WithMetrics attaches an OTEL-backed (or noop) Metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithTracer attaches a Tracer. The Tracker stores it but opens no spans:
// ConsumeIteration and ReserveToolCall are not traced.
func WithTracer(tr telemetry.Tracer) Option {
	return func(t *Tracker) { t.tracer = tr }
}

// New returns a Tracker, or nil if limits has no finite, positive bound — in
// which case the run operates unbounded (spec.md §4.4: createBudgetState).
func New(limits Limits, opts ...Option) *Tracker {
	if !limits.hasAny() {
		return nil
	}
	t := &Tracker{
		limits:  limits,
		now:     time.Now,
		metrics: telemetry.NewNoopMetrics(),
		tracer:  telemetry.NewNoopTracer(),
	}
	for _, o := range opts {
		o(t)
	}
	t.used = State{Limits: limits, StartedAt: t.now()}
	return t
}

// Snapshot returns a copy of the current accounting state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used
}

func statusFor(used, limit int) Status {
	if limit <= 0 {
		return StatusOK
	}
	remaining := limit - used
	if remaining <= 0 {
		return StatusExhausted
	}
	if float64(remaining)/float64(limit) <= 0.2 {
		return StatusWarning
	}
	return StatusOK
}

// ConsumeIteration charges one iteration against maxIterations. groupID is
// carried only for event correlation.
func (t *Tracker) ConsumeIteration(groupID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.limits.MaxIterations > 0 && t.used.UsedIterations >= t.limits.MaxIterations {
		return t.markStopLocked(StopMaxIterations, fmt.Sprintf("maxIterations=%d reached", t.limits.MaxIterations))
	}
	t.used.UsedIterations++
	status := statusFor(t.used.UsedIterations, t.limits.MaxIterations)
	remaining := t.limits.MaxIterations - t.used.UsedIterations
	if t.limits.MaxIterations == 0 {
		remaining = 0
	}
	if t.stream != nil {
		t.stream.EmitAutonomyBudget(levelFor(status), groupID, "steps", t.used.UsedIterations, t.limits.MaxIterations, remaining, string(status))
	}
	t.metrics.IncCounter("execorch.budget.iterations.used", 1)
	return nil
}

// ReserveToolCall checks duration then the tool-call cap, charging one call on
// success. On failure it returns ok=false and a message suitable for
// surfacing to the model as a tool-result error (spec.md §4.2 step 6).
func (t *Tracker) ReserveToolCall(groupID, toolName string) (ok bool, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.limits.MaxDurationMs > 0 && t.elapsedLocked() >= t.limits.MaxDurationMs {
		_ = t.markStopLocked(StopMaxDuration, fmt.Sprintf("maxDurationMs=%d reached before tool call %q", t.limits.MaxDurationMs, toolName))
		return false, fmt.Sprintf("RUNTIME_BUDGET_EXCEEDED: %s", t.used.StopMessage)
	}
	if t.limits.MaxToolCalls > 0 && t.used.UsedToolCalls >= t.limits.MaxToolCalls {
		_ = t.markStopLocked(StopMaxToolCalls, fmt.Sprintf("maxToolCalls=%d reached before tool call %q", t.limits.MaxToolCalls, toolName))
		return false, fmt.Sprintf("RUNTIME_BUDGET_EXCEEDED: %s", t.used.StopMessage)
	}

	t.used.UsedToolCalls++
	status := statusFor(t.used.UsedToolCalls, t.limits.MaxToolCalls)
	remaining := t.limits.MaxToolCalls - t.used.UsedToolCalls
	if t.limits.MaxToolCalls == 0 {
		remaining = 0
	}
	if t.stream != nil {
		t.stream.EmitAutonomyBudget(levelFor(status), groupID, "calls", t.used.UsedToolCalls, t.limits.MaxToolCalls, remaining, string(status))
	}
	t.metrics.IncCounter("execorch.budget.toolcalls.used", 1)
	return true, ""
}

// AssertDuration raises BudgetExceeded(maxDurationMs) when the wall-clock
// budget has been exceeded. stage is carried for diagnostic messages only.
func (t *Tracker) AssertDuration(stage string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limits.MaxDurationMs > 0 && t.elapsedLocked() >= t.limits.MaxDurationMs {
		return t.markStopLocked(StopMaxDuration, fmt.Sprintf("maxDurationMs=%d reached at stage %q", t.limits.MaxDurationMs, stage))
	}
	return nil
}

func (t *Tracker) elapsedLocked() int64 {
	return t.now().Sub(t.used.StartedAt).Milliseconds()
}

// ElapsedMs reports milliseconds elapsed since the tracker started.
func (t *Tracker) ElapsedMs() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked()
}

// RemainingDurationMs reports the wall-clock budget left, used by the Task
// Runner to clip per-attempt timeouts (spec.md §4.2 step 4). hasLimit is false
// when no maxDurationMs was configured, in which case callers should not clip.
func (t *Tracker) RemainingDurationMs() (remainingMs int64, hasLimit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limits.MaxDurationMs <= 0 {
		return 0, false
	}
	remaining := t.limits.MaxDurationMs - t.elapsedLocked()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// MarkStop sets stopReason/stopMessage exactly once (first-writer-wins) and
// emits a terminal budget event, or a progress event for targetScore (spec.md
// §4.4: markStop).
func (t *Tracker) MarkStop(reason StopReason, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.markStopLocked(reason, message)
}

func (t *Tracker) markStopLocked(reason StopReason, message string) error {
	if t.used.StopReason == "" {
		t.used.StopReason = reason
		t.used.StopMessage = message
		level := events.LevelError
		status := "exhausted"
		if reason == StopTargetScore {
			level = events.LevelProgress
			status = "exhausted"
		}
		if t.stream != nil {
			t.stream.EmitAutonomyBudget(level, "", string(reason), 0, 0, 0, status)
			t.stream.EmitAutonomyDecision("", "budget_stop", string(reason)+": "+message)
		}
	}
	return &Exceeded{Reason: t.used.StopReason, Message: t.used.StopMessage}
}

// StopReason returns the first stop reason recorded, or "" if none.
func (t *Tracker) StopReason() StopReason {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used.StopReason
}

// SetFinalScore records the computed final score for reporting (spec.md §4.8).
// If a targetScore limit is set and score falls short, it raises the
// targetScore stop reason (first-writer-wins, same as any other stop).
func (t *Tracker) SetFinalScore(score int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := score
	t.used.FinalScore = &s
	if t.limits.TargetScore > 0 && score < t.limits.TargetScore {
		_ = t.markStopLocked(StopTargetScore, fmt.Sprintf("score %d below targetScore %d", score, t.limits.TargetScore))
	}
}

// ResolveQualityMaxRounds returns min(5, remainingIterations-1) when an
// iteration budget exists; otherwise 5. If no iterations remain, it marks a
// stop and returns 0 (spec.md §4.4).
func (t *Tracker) ResolveQualityMaxRounds() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limits.MaxIterations == 0 {
		return 5
	}
	remaining := t.limits.MaxIterations - t.used.UsedIterations
	if remaining <= 0 {
		_ = t.markStopLocked(StopMaxIterations, "no iterations remain for quality/repair rounds")
		return 0
	}
	rounds := remaining - 1
	if rounds > 5 {
		rounds = 5
	}
	if rounds < 0 {
		rounds = 0
	}
	return rounds
}

func levelFor(s Status) events.Level {
	switch s {
	case StatusExhausted:
		return events.LevelError
	case StatusWarning:
		return events.LevelProgress
	default:
		return events.LevelInfo
	}
}
