package taskrunner

import (
	"time"

	"github.com/forgeflow/execorch/plan"
)

const (
	// MinAttemptTimeout and MaxAttemptTimeout bound the configurable default
	// per spec.md §6: "EXECUTION_AGENT_TIMEOUT_MS may override the default
	// 120s, clamped to [30s, 300s]."
	MinAttemptTimeout = 30 * time.Second
	MaxAttemptTimeout = 300 * time.Second

	defaultAttemptTimeout  = 120 * time.Second
	scaffoldAttemptTimeout = 180 * time.Second
	repairAttemptTimeout   = 300 * time.Second

	retryCapDefault = 180 * time.Second
	retryCapRepair  = 300 * time.Second

	hardTimeoutSlack = 5 * time.Second
)

// ClampDefaultTimeout clamps a caller-supplied default attempt timeout (e.g.
// from EXECUTION_AGENT_TIMEOUT_MS) to [MinAttemptTimeout, MaxAttemptTimeout].
func ClampDefaultTimeout(d time.Duration) time.Duration {
	if d < MinAttemptTimeout {
		return MinAttemptTimeout
	}
	if d > MaxAttemptTimeout {
		return MaxAttemptTimeout
	}
	return d
}

// baseAttemptTimeout returns the per-agent base timeout before retry capping
// or wall-clock clipping (spec.md §4.2 step 4).
func baseAttemptTimeout(agentID plan.AgentID, defaultTimeout time.Duration) time.Duration {
	switch agentID {
	case plan.AgentScaffold:
		return scaffoldAttemptTimeout
	case plan.AgentRepair:
		return repairAttemptTimeout
	default:
		return defaultTimeout
	}
}

// attemptTimeout derives the per-attempt timeout: base timeout, capped on
// retry attempts, then clipped by the remaining wall-clock duration budget if
// one exists.
func attemptTimeout(agentID plan.AgentID, attempt int, defaultTimeout time.Duration, remainingMs int64, hasRemaining bool) time.Duration {
	d := baseAttemptTimeout(agentID, defaultTimeout)
	if attempt >= 2 {
		retryCap := retryCapDefault
		if agentID == plan.AgentRepair {
			retryCap = retryCapRepair
		}
		if d > retryCap {
			d = retryCap
		}
	}
	if hasRemaining {
		remaining := time.Duration(remainingMs) * time.Millisecond
		if remaining < d {
			d = remaining
		}
	}
	if d < 0 {
		d = 0
	}
	return d
}

// hardTimeout is the attempt timeout plus the fixed slack that races the
// operation (spec.md §5: "a hard-timeout timer = attempt timeout + 5s").
func hardTimeout(attempt time.Duration) time.Duration {
	return attempt + hardTimeoutSlack
}
