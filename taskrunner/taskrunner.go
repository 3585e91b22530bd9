// Package taskrunner implements the Task Runner (C5): the per-task state
// machine that assembles a prompt, runs an LLM+tool-calling attempt against a
// budget- and schema-gated tool bridge, diffs the session workspace, and
// enforces the mutation-required and resolvable-imports invariants before
// publishing patch intents to the Blackboard.
package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/forgeflow/execorch/budget"
	"github.com/forgeflow/execorch/events"
	"github.com/forgeflow/execorch/patch"
	"github.com/forgeflow/execorch/plan"
	"github.com/forgeflow/execorch/telemetry"
	"github.com/forgeflow/execorch/toolbridge"
)

// TaskResult is the Task Runner's contract output (spec.md §4.2).
type TaskResult struct {
	TaskID       string
	AgentID      plan.AgentID
	Success      bool
	PatchIntents []patch.Intent
	TouchedFiles []string
	ResponseText string
	Error        error
}

// Runner executes individual plan tasks. It holds no per-run state beyond its
// collaborators, so a single Runner may be reused across waves within a run.
type Runner struct {
	storage        FileStorage
	promptBuilders PromptBuilders
	toolRegistry   toolbridge.ToolRegistry
	toolExec       toolbridge.Executor
	llm            LLMAdapter
	budget         *budget.Tracker
	stream         *events.Stream
	publisher      PatchPublisher
	importChecker  ImportChecker
	logger         telemetry.Logger
	toolCallLimit  *rate.Limiter

	defaultTimeout time.Duration
	clock          func() int64
}

// Option configures optional Runner collaborators.
type Option func(*Runner)

// WithBudget attaches the shared Budget Tracker. A nil tracker leaves the run
// unbounded, matching budget.New's own nil-means-unbounded contract.
func WithBudget(b *budget.Tracker) Option { return func(r *Runner) { r.budget = b } }

// WithEventStream attaches the Stream agent.task.progress and tool.call.*
// events are published to.
func WithEventStream(s *events.Stream) Option { return func(r *Runner) { r.stream = s } }

// WithPublisher attaches the Blackboard (or a stand-in) intents are submitted
// to (spec.md §4.2 step 9).
func WithPublisher(p PatchPublisher) Option { return func(r *Runner) { r.publisher = p } }

// WithImportChecker attaches the Artifact Analyzer's import-resolution pass,
// consulted only for the repair agent (spec.md §4.2 step 8, second bullet).
func WithImportChecker(c ImportChecker) Option { return func(r *Runner) { r.importChecker = c } }

// WithLogger attaches a structured logger.
func WithLogger(l telemetry.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithDefaultTimeout overrides the default (non-scaffold, non-repair) attempt
// timeout; callers are expected to have already applied ClampDefaultTimeout.
func WithDefaultTimeout(d time.Duration) Option { return func(r *Runner) { r.defaultTimeout = d } }

// WithClock overrides the monotonic-nanosecond clock used to stamp
// patch.Intent.CreatedAt (tests use a deterministic counter).
func WithClock(clock func() int64) Option { return func(r *Runner) { r.clock = clock } }

// WithToolCallRateLimit throttles tool dispatches to at most rps calls per
// second (burst additional calls allowed in a single instant), independent of
// the Budget Tracker's maxToolCalls cap. Useful when the underlying tool
// registry fronts a rate-limited external API. A nil limiter (the default)
// leaves dispatch unthrottled.
func WithToolCallRateLimit(rps float64, burst int) Option {
	return func(r *Runner) { r.toolCallLimit = rate.NewLimiter(rate.Limit(rps), burst) }
}

// New constructs a Runner. storage, promptBuilders, toolRegistry, toolExec,
// and llm are required collaborators (spec.md §6); everything else is
// optional via Option.
func New(storage FileStorage, promptBuilders PromptBuilders, toolRegistry toolbridge.ToolRegistry, toolExec toolbridge.Executor, llm LLMAdapter, opts ...Option) *Runner {
	start := time.Now()
	r := &Runner{
		storage:        storage,
		promptBuilders: promptBuilders,
		toolRegistry:   toolRegistry,
		toolExec:       toolExec,
		llm:            llm,
		logger:         telemetry.NewNoopLogger(),
		defaultTimeout: defaultAttemptTimeout,
		clock:          func() int64 { return int64(time.Since(start)) },
	}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	return r
}

// maxAttempts returns the retry budget for an agent: 3 for mutation-required
// agents, 1 otherwise (the quality agent never retries; spec.md §4.2).
func maxAttempts(agentID plan.AgentID) int {
	if agentID.MutationRequired() {
		return 3
	}
	return 1
}

// Execute runs the per-task state machine described in spec.md §4.2. The
// returned error is non-nil only when it must propagate out of the wave loop:
// a *budget.Exceeded, or a programming error (no registered prompt builder for
// the task's agent). All other failures are captured into a TaskResult with
// Success=false.
func (r *Runner) Execute(ctx context.Context, task plan.ExecutionPlanTask, execCtx ExecutionContext, waveID string) (TaskResult, error) {
	builder, ok := r.promptBuilders.BuilderFor(task.AgentID)
	if !ok {
		return TaskResult{}, fmt.Errorf("taskrunner: no prompt builder registered for agent %q", task.AgentID)
	}

	whitelistBase := mergeToolWhitelist(defaultToolsFor(task.AgentID), task.Tools)
	attempts := maxAttempts(task.AgentID)

	var retryHint string
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := r.attempt(ctx, task, execCtx, waveID, builder, whitelistBase, attempt, attempts, retryHint)
		if err != nil {
			// Propagating errors (budget exhaustion) always abort immediately.
			var exceeded *budget.Exceeded
			if errors.As(err, &exceeded) {
				return TaskResult{}, err
			}
			lastErr = err
			if attempt < attempts && isTransient(err) {
				retryHint = strengthenRetryHintTransient(retryHint, err)
				continue
			}
			return TaskResult{TaskID: task.ID, AgentID: task.AgentID, Success: false, Error: err}, nil
		}

		switch {
		case result.outcome == outcomeMutationMissing:
			if attempt < attempts {
				retryHint = strengthenRetryHintMutation(retryHint)
				lastErr = result.err
				continue
			}
			return TaskResult{TaskID: task.ID, AgentID: task.AgentID, Success: false, Error: result.err}, nil
		case result.outcome == outcomeUnresolvedImports:
			if attempt < attempts {
				retryHint = strengthenRetryHintImports(retryHint, result.unresolvedImports)
				lastErr = result.err
				continue
			}
			return TaskResult{TaskID: task.ID, AgentID: task.AgentID, Success: false, Error: result.err}, nil
		default:
			r.publish(waveID, task, result.intents)
			touched := touchedPaths(result.intents)
			if r.stream != nil {
				r.stream.EmitAgentTaskProgress(task.ID, task.ID, string(task.AgentID), fmt.Sprintf("completed - %d file(s) changed", len(touched)))
			}
			return TaskResult{
				TaskID:       task.ID,
				AgentID:      task.AgentID,
				Success:      true,
				PatchIntents: result.intents,
				TouchedFiles: touched,
				ResponseText: result.responseText,
			}, nil
		}
	}

	// Unreachable in practice (the loop always returns on its last iteration),
	// kept as a defensive fallback so Execute never silently drops a result.
	return TaskResult{TaskID: task.ID, AgentID: task.AgentID, Success: false, Error: lastErr}, nil
}

// attemptOutcome classifies what an attempt produced, beyond a bare error.
type attemptOutcome int

const (
	outcomeOK attemptOutcome = iota
	outcomeMutationMissing
	outcomeUnresolvedImports
)

type attemptResult struct {
	outcome           attemptOutcome
	intents           []patch.Intent
	responseText      string
	unresolvedImports []string
	err               error
}

// attempt runs a single pre-flight -> prompt -> tools -> diff -> policy pass.
func (r *Runner) attempt(ctx context.Context, task plan.ExecutionPlanTask, execCtx ExecutionContext, waveID string, builder PromptBuilder, whitelistBase []string, attemptN, totalAttempts int, retryHint string) (attemptResult, error) {
	groupID := task.ID

	// 1. Pre-flight.
	if r.budget != nil {
		if err := r.budget.ConsumeIteration(groupID); err != nil {
			return attemptResult{}, err
		}
		if err := r.budget.AssertDuration("task:" + task.ID); err != nil {
			return attemptResult{}, err
		}
	}

	// 2. Prompt assembly.
	execCtx.Attempt = attemptN
	execCtx.RetryHint = retryHint
	execCtx.Task = task
	systemPrompt, err := builder.BuildPrompt(execCtx)
	if err != nil {
		return attemptResult{}, &TaskExecutionError{TaskID: task.ID, Attempt: attemptN, Cause: err}
	}

	// 3. Tool whitelist selection.
	whitelist := whitelistBase
	if attemptN >= 2 && task.AgentID.MutationRequired() && !task.AgentID.PreserveContextOnRetry() {
		whitelist = narrowToMutating(whitelistBase)
	}

	// 4. Timeout derivation.
	var remainingMs int64
	var hasRemaining bool
	if r.budget != nil {
		remainingMs, hasRemaining = r.budget.RemainingDurationMs()
	}
	perAttempt := attemptTimeout(task.AgentID, attemptN, r.defaultTimeout, remainingMs, hasRemaining)
	hard := hardTimeout(perAttempt)
	attemptCtx, cancel := context.WithTimeout(ctx, hard)
	defer cancel()

	// 5. Filesystem snapshot.
	before, err := r.snapshot(attemptCtx, execCtx.SessionID)
	if err != nil {
		return attemptResult{}, &TaskExecutionError{TaskID: task.ID, Attempt: attemptN, Cause: err}
	}

	// 6. LLM+tool loop.
	bridge := toolbridge.New(r.toolRegistry, r.wrapExecutor(groupID, task.ID), r.beforeToolCall(groupID))
	req := CompletionRequest{
		SystemPrompt: systemPrompt,
		UserMessage:  task.Goal,
		Tools:        bridge.Definitions(whitelist),
	}
	res, err := r.llm.Complete(attemptCtx, req, bridge.Dispatch)
	if err != nil {
		if attemptCtx.Err() != nil {
			return attemptResult{}, &TimeoutError{AttemptTimeoutMs: perAttempt.Milliseconds()}
		}
		return attemptResult{}, classifyTransportError(task.ID, attemptN, err)
	}

	// 7. Diff collection.
	after, err := r.snapshot(ctx, execCtx.SessionID)
	if err != nil {
		return attemptResult{}, &TaskExecutionError{TaskID: task.ID, Attempt: attemptN, Cause: err}
	}
	intents := diffToIntents(waveID, task, before, after, r.clock)

	// 8. Policy checks.
	if task.AgentID.MutationRequired() && len(intents) == 0 {
		return attemptResult{
			outcome: outcomeMutationMissing,
			err:     &MutationMissingError{TaskID: task.ID, AgentID: string(task.AgentID)},
		}, nil
	}
	if task.AgentID.IsRepair() && r.importChecker != nil {
		unresolved := r.importChecker.UnresolvedImports(after)
		if len(unresolved) > 0 {
			return attemptResult{
				outcome:           outcomeUnresolvedImports,
				unresolvedImports: unresolved,
				err:               &UnresolvedImportsError{TaskID: task.ID, Imports: unresolved},
			}, nil
		}
	}

	return attemptResult{outcome: outcomeOK, intents: intents, responseText: res.Text}, nil
}

func (r *Runner) snapshot(ctx context.Context, sessionID string) (map[string]string, error) {
	files, err := r.storage.GetAllFiles(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(files))
	for _, f := range files {
		out[f.Path] = f.Content
	}
	return out, nil
}

// diffToIntents computes the set of files whose content changed (including
// newly created files) between two snapshots (spec.md §4.2 step 7).
func diffToIntents(waveID string, task plan.ExecutionPlanTask, before, after map[string]string, clock func() int64) []patch.Intent {
	var intents []patch.Intent
	for path, content := range after {
		if prev, ok := before[path]; ok && prev == content {
			continue
		}
		intents = append(intents, patch.NewIntent(waveID, task.ID, task.AgentID, path, content, clock()))
	}
	return intents
}

func touchedPaths(intents []patch.Intent) []string {
	out := make([]string, 0, len(intents))
	for _, in := range intents {
		out = append(out, in.FilePath)
	}
	return out
}

func (r *Runner) publish(waveID string, task plan.ExecutionPlanTask, intents []patch.Intent) {
	for _, in := range intents {
		if r.publisher != nil {
			r.publisher.PublishIntent(in)
		}
		if r.stream != nil {
			r.stream.EmitPatchIntentSubmitted(task.ID, in.ID, task.ID, in.FilePath)
		}
	}
}

// wrapExecutor wires event emission around the real tool executor: every
// dispatch emits tool.call.started then either completed or failed.
func (r *Runner) wrapExecutor(groupID, taskID string) toolbridge.Executor {
	return func(ctx context.Context, name string, args map[string]any) (string, bool) {
		callID := uuid.NewString()
		if r.stream != nil {
			r.stream.EmitToolCall(events.TypeToolCallStarted, events.LevelInfo, groupID, taskID, callID, name, "", "")
		}
		content, isError := r.toolExec(ctx, name, args)
		if r.stream != nil {
			if isError {
				r.stream.EmitToolCall(events.TypeToolCallFailed, events.LevelError, groupID, taskID, callID, name, "", content)
			} else {
				r.stream.EmitToolCall(events.TypeToolCallCompleted, events.LevelInfo, groupID, taskID, callID, name, content, "")
			}
		}
		return content, isError
	}
}

// beforeToolCall gates each dispatch through the Budget Tracker (spec.md §4.2
// step 6: onBeforeToolCall).
func (r *Runner) beforeToolCall(groupID string) toolbridge.BeforeToolCall {
	return func(toolName string) (bool, string) {
		if r.toolCallLimit != nil && !r.toolCallLimit.Allow() {
			return false, fmt.Sprintf("tool call %q throttled: rate limit exceeded", toolName)
		}
		if r.budget == nil {
			return true, ""
		}
		return r.budget.ReserveToolCall(groupID, toolName)
	}
}

func classifyTransportError(taskID string, attempt int, err error) error {
	if isTransient(err) {
		return &TransientTransportError{Cause: err}
	}
	return &TaskExecutionError{TaskID: taskID, Attempt: attempt, Cause: err}
}

func strengthenRetryHintTransient(prev string, err error) string {
	return appendHint(prev, fmt.Sprintf("The previous attempt failed with a transient error (%v); retry the same goal.", err))
}

func strengthenRetryHintMutation(prev string) string {
	return appendHint(prev, "Your previous attempt made no file changes. You MUST create or modify at least one file using the write or apply_diff tool before finishing.")
}

func strengthenRetryHintImports(prev string, unresolved []string) string {
	return appendHint(prev, "Resolve these unresolved imports before finishing: "+strings.Join(unresolved, ", "))
}

func appendHint(prev, addition string) string {
	if prev == "" {
		return addition
	}
	return prev + "\n" + addition
}
