package taskrunner

import "github.com/forgeflow/execorch/plan"

// defaultToolsByAgent is the fixed default tool whitelist per agent. Quality
// is deliberately read-only; repair gets the full mutation set per spec.md
// §4.5 ("its allowed tools are full mutation").
var defaultToolsByAgent = map[plan.AgentID][]string{
	plan.AgentScaffold:    {"read", "grep", "glob", "write", "apply_diff", "bash"},
	plan.AgentPage:        {"read", "grep", "glob", "write", "apply_diff"},
	plan.AgentState:       {"read", "grep", "glob", "write", "apply_diff"},
	plan.AgentStyle:       {"read", "grep", "glob", "write", "apply_diff"},
	plan.AgentInteraction: {"read", "grep", "glob", "write", "apply_diff"},
	plan.AgentQuality:     {"read", "grep", "glob", "bash"},
	plan.AgentRepair:      {"read", "grep", "glob", "apply_diff", "write", "bash"},
}

// mutatingTools is the narrowed subset attempt >= 2 falls back to for
// mutation-required agents outside the preserve-context-on-retry set
// (spec.md §4.2 step 3).
var mutatingTools = map[string]bool{"write": true, "apply_diff": true}

// defaultToolsFor returns the default whitelist for an agent, or a minimal
// read-only set if the agent is not one of the known ids (defensive; the
// orchestrator is expected to reject unknown agent ids before reaching here).
func defaultToolsFor(agentID plan.AgentID) []string {
	if tools, ok := defaultToolsByAgent[agentID]; ok {
		return append([]string(nil), tools...)
	}
	return []string{"read", "grep", "glob"}
}

// mergeToolWhitelist unions the agent defaults with the task's declared
// tools, preserving default order first and appending any additional
// declared ids not already present.
func mergeToolWhitelist(defaults, declared []string) []string {
	seen := make(map[string]bool, len(defaults)+len(declared))
	out := make([]string, 0, len(defaults)+len(declared))
	for _, t := range defaults {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range declared {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// narrowToMutating filters a whitelist down to the mutating subset, keeping
// relative order.
func narrowToMutating(whitelist []string) []string {
	out := make([]string, 0, len(whitelist))
	for _, t := range whitelist {
		if mutatingTools[t] {
			out = append(out, t)
		}
	}
	return out
}
