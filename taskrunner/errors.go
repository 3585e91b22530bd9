package taskrunner

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// TaskExecutionError wraps a recoverable task-attempt failure (spec.md §7).
// It never propagates past Execute; it is captured into TaskResult.Error.
type TaskExecutionError struct {
	TaskID string
	Attempt int
	Cause   error
}

func (e *TaskExecutionError) Error() string {
	return fmt.Sprintf("task %q attempt %d failed: %v", e.TaskID, e.Attempt, e.Cause)
}

func (e *TaskExecutionError) Unwrap() error { return e.Cause }

// MutationMissingError is raised when a mutation-required agent exhausts its
// retries without producing a single patch intent.
type MutationMissingError struct {
	TaskID  string
	AgentID string
}

func (e *MutationMissingError) Error() string {
	return fmt.Sprintf("task %q (agent %s) produced no file mutations after exhausting retries", e.TaskID, e.AgentID)
}

// UnresolvedImportsError is raised when the repair agent exhausts its retries
// while the workspace still has unresolvable imports.
type UnresolvedImportsError struct {
	TaskID  string
	Imports []string
}

func (e *UnresolvedImportsError) Error() string {
	return fmt.Sprintf("task %q left %d unresolved import(s): %s", e.TaskID, len(e.Imports), strings.Join(e.Imports, "; "))
}

// TransientTransportError marks a network-level failure signature as
// retryable (spec.md §4.2 step 8, third bullet).
type TransientTransportError struct {
	Cause error
}

func (e *TransientTransportError) Error() string { return fmt.Sprintf("transient transport error: %v", e.Cause) }
func (e *TransientTransportError) Unwrap() error  { return e.Cause }

// TimeoutError is synthesized by the hard-timeout race (attemptTimeout+5s). It
// is treated as transient (spec.md §7).
type TimeoutError struct {
	AttemptTimeoutMs int64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("attempt exceeded hard timeout of %dms", e.AttemptTimeoutMs+hardTimeoutSlack.Milliseconds())
}

// transientErrorSignatures are the network failure signatures spec.md §4.2
// step 8 names as retryable, classified the way net.Error/net.DNSError
// failures are diagnosed before a retry decision.
var transientErrorSignatures = []string{
	"ECONNRESET", "ETIMEDOUT", "ECONNREFUSED", "ENOTFOUND", "EAI_AGAIN",
}

// isTransient classifies an error as retryable per the transient-network
// signatures, a synthetic TimeoutError, or any stdlib net.Error (including
// *net.DNSError).
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var to *TimeoutError
	if errors.As(err, &to) {
		return true
	}
	var tt *TransientTransportError
	if errors.As(err, &tt) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := err.Error()
	for _, sig := range transientErrorSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return strings.Contains(msg, "HTTP status 0") || strings.Contains(msg, "status=0")
}
