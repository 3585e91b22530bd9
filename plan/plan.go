// Package plan defines the execution plan data model: tasks, their agent
// bindings, dependency edges, and the session documents that inform prompt
// assembly and artifact analysis. Plans are immutable for the duration of a run.
package plan

import (
	"io"

	"gopkg.in/yaml.v3"
)

type (
	// SessionDocumentKind tags which of the four upstream analysis documents a
	// SessionDocument carries (spec.md §3: "product-manager, frontend-architect,
	// ui-expert, ux-expert").
	SessionDocumentKind string

	// RouteSpec is one entry in a frontend architect's route design: a path the
	// generated application is expected to serve.
	RouteSpec struct {
		Path string `yaml:"path" json:"path"`
		Name string `yaml:"name,omitempty" json:"name,omitempty"`
	}

	// FrontendArchitectDoc is the payload of a SessionDocumentKindFrontendArchitect
	// document: the route table the Artifact Analyzer's route-coverage checks
	// compare declared routes against (spec.md §4.6 "Missing architect routes").
	FrontendArchitectDoc struct {
		RouteDesign []RouteSpec `yaml:"routeDesign,omitempty" json:"routeDesign,omitempty"`
	}

	// SessionDocument is one of the four tagged upstream analysis documents
	// consumed by prompt assembly and, for the frontend-architect variant, by
	// the Artifact Analyzer. Only Architect is populated for the architect
	// kind; the other three carry opaque free text consumed only by prompt
	// assembly (spec.md §3).
	SessionDocument struct {
		Kind      SessionDocumentKind   `yaml:"kind" json:"kind"`
		Content   string                `yaml:"content,omitempty" json:"content,omitempty"`
		Architect *FrontendArchitectDoc `yaml:"architect,omitempty" json:"architect,omitempty"`
	}

	// AgentID identifies the specialized agent bound to a task. The set is
	// closed over the variants known to this orchestration core; unknown agent
	// ids are a programming error the Orchestrator surfaces rather than swallows
	// (spec.md §7: "unknown agent id" is one of the two error kinds allowed to
	// propagate out of the orchestrator boundary).
	AgentID string

	// ExecutionPlanTask is a single node in the dependency graph: a goal bound
	// to an agent, with an ordered set of upstream dependencies and an ordered
	// set of whitelisted tool ids. Tasks are immutable once a run starts.
	ExecutionPlanTask struct {
		ID        string   `yaml:"id" json:"id"`
		AgentID   AgentID  `yaml:"agentId" json:"agentId"`
		Goal      string   `yaml:"goal" json:"goal"`
		DependsOn []string `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
		Tools     []string `yaml:"tools,omitempty" json:"tools,omitempty"`
	}

	// ExecutionPlan is the top-level input: an ordered set of tasks. Order is
	// significant — it is the tiebreaker for wave membership ordering (spec.md
	// §4.1: "Order within a wave is the input order (stable)").
	ExecutionPlan struct {
		Tasks []ExecutionPlanTask `yaml:"tasks" json:"tasks"`
	}
)

const (
	SessionDocProductManager    SessionDocumentKind = "product-manager"
	SessionDocFrontendArchitect SessionDocumentKind = "frontend-architect"
	SessionDocUIExpert          SessionDocumentKind = "ui-expert"
	SessionDocUXExpert          SessionDocumentKind = "ux-expert"
)

const (
	AgentScaffold    AgentID = "scaffold"
	AgentPage        AgentID = "page"
	AgentState       AgentID = "state"
	AgentStyle       AgentID = "style"
	AgentInteraction AgentID = "interaction"
	AgentQuality     AgentID = "quality"
	AgentRepair      AgentID = "repair"
)

// mutationRequired is the set of agents whose purpose is to mutate the
// workspace. The orchestrator enforces that they actually did (spec.md §4.2).
var mutationRequired = map[AgentID]bool{
	AgentScaffold:    true,
	AgentPage:        true,
	AgentState:       true,
	AgentStyle:       true,
	AgentInteraction: true,
	AgentRepair:      true,
}

// MutationRequired reports whether the agent is expected to produce file
// mutations on every successful attempt.
func (a AgentID) MutationRequired() bool {
	return mutationRequired[a]
}

// IsQuality reports whether the agent is the deliberately non-mutating
// quality-review agent, which never retries.
func (a AgentID) IsQuality() bool {
	return a == AgentQuality
}

// IsRepair reports whether the agent is the repair agent, which is subject to
// the resolvable-imports invariant in addition to the mutation-required one.
func (a AgentID) IsRepair() bool {
	return a == AgentRepair
}

// PreserveContextOnRetry reports whether a mutation-required agent should keep
// its full (discovery + mutation) tool whitelist on attempt >= 2 instead of
// being narrowed to the mutating subset (spec.md §4.2 step 3). No agent in
// this implementation opts out of narrowing; the hook exists so a future agent
// whose retry genuinely needs re-discovery (e.g. one driven by live external
// state) can be added without changing the Task Runner.
func (a AgentID) PreserveContextOnRetry() bool {
	return false
}

// ArchitectRoutePaths extracts the route design paths from whichever document
// in docs carries SessionDocFrontendArchitect, or nil if none does.
func ArchitectRoutePaths(docs []SessionDocument) []string {
	for _, d := range docs {
		if d.Kind != SessionDocFrontendArchitect || d.Architect == nil {
			continue
		}
		paths := make([]string, 0, len(d.Architect.RouteDesign))
		for _, r := range d.Architect.RouteDesign {
			paths = append(paths, r.Path)
		}
		return paths
	}
	return nil
}

// TaskByID indexes the plan's tasks for O(1) lookup.
func (p *ExecutionPlan) TaskByID() map[string]ExecutionPlanTask {
	out := make(map[string]ExecutionPlanTask, len(p.Tasks))
	for _, t := range p.Tasks {
		out[t.ID] = t
	}
	return out
}

// LoadYAML decodes an ExecutionPlan from YAML, as produced by planning
// tooling or hand-authored for tests. It performs no validation beyond
// structural decoding; the scheduler is responsible for cycle detection and
// for silently dropping dependency ids outside the plan (spec.md §4.1, §9 Open
// Question 1).
func LoadYAML(r io.Reader) (*ExecutionPlan, error) {
	var p ExecutionPlan
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
