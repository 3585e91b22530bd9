// Package config loads runtime configuration for the Orchestrator from the
// environment and an optional YAML defaults file, using a plain
// os.Getenv-with-fallback style rather than a config framework.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forgeflow/execorch/budget"
	"github.com/forgeflow/execorch/taskrunner"
)

// EnvAgentTimeoutMs is the environment variable that overrides the default
// per-attempt agent timeout (spec.md §6), clamped to
// [taskrunner.MinAttemptTimeout, taskrunner.MaxAttemptTimeout].
const EnvAgentTimeoutMs = "EXECUTION_AGENT_TIMEOUT_MS"

// Config is the resolved runtime configuration for one Orchestrator process.
type Config struct {
	// DefaultAgentTimeout is the clamped per-attempt default timeout.
	DefaultAgentTimeout time.Duration
	// BudgetDefaults are the ExecutionBudgetState.limits to use when a run
	// does not supply its own. Zero value means "no defaults configured".
	BudgetDefaults budget.Limits
}

// Load resolves Config from the environment, applying budgetDefaultsPath (if
// non-empty) as an optional YAML overlay for BudgetDefaults. A malformed
// EXECUTION_AGENT_TIMEOUT_MS value is ignored in favor of the built-in
// default — configuration parsing never aborts startup.
func Load(budgetDefaultsPath string) (Config, error) {
	cfg := Config{DefaultAgentTimeout: taskrunner.ClampDefaultTimeout(defaultAgentTimeout())}

	cfg.DefaultAgentTimeout = taskrunner.ClampDefaultTimeout(agentTimeoutFromEnv(cfg.DefaultAgentTimeout))

	if budgetDefaultsPath != "" {
		limits, err := loadBudgetDefaults(budgetDefaultsPath)
		if err != nil {
			return Config{}, fmt.Errorf("config: load budget defaults: %w", err)
		}
		cfg.BudgetDefaults = limits
	}

	return cfg, nil
}

func defaultAgentTimeout() time.Duration {
	return 120 * time.Second
}

// agentTimeoutFromEnv returns the timeout encoded by EXECUTION_AGENT_TIMEOUT_MS,
// or fallback if the variable is unset or not a valid non-negative integer.
func agentTimeoutFromEnv(fallback time.Duration) time.Duration {
	v := os.Getenv(EnvAgentTimeoutMs)
	if v == "" {
		return fallback
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms < 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// budgetDefaultsDocument mirrors the subset of ExecutionBudgetState.limits a
// deployment may want to pin via file instead of per-run input.
type budgetDefaultsDocument struct {
	MaxIterations int   `yaml:"maxIterations"`
	MaxDurationMs int64 `yaml:"maxDurationMs"`
	MaxToolCalls  int   `yaml:"maxToolCalls"`
	TargetScore   int   `yaml:"targetScore"`
}

func loadBudgetDefaults(path string) (budget.Limits, error) {
	f, err := os.Open(path)
	if err != nil {
		return budget.Limits{}, err
	}
	defer f.Close()
	return decodeBudgetDefaults(f)
}

func decodeBudgetDefaults(r io.Reader) (budget.Limits, error) {
	var doc budgetDefaultsDocument
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return budget.Limits{}, err
	}
	return budget.Limits{
		MaxIterations: doc.MaxIterations,
		MaxDurationMs: doc.MaxDurationMs,
		MaxToolCalls:  doc.MaxToolCalls,
		TargetScore:   doc.TargetScore,
	}, nil
}
