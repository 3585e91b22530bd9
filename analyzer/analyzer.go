package analyzer

import (
	"github.com/forgeflow/execorch/plan"
)

// Analyzer runs the deterministic structural checks of spec.md §4.6 against a
// session workspace. It holds no state between runs; every method is a pure
// function of its arguments.
type Analyzer struct{}

// New constructs an Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze runs the full artifact-analysis pass: workspace scoping, entry
// detection, reachability, import resolution, export contract checks, and the
// named fidelity/routing checks, returning a de-duplicated issue list
// (spec.md §4.6: "Returns a de-duplicated list").
func (a *Analyzer) Analyze(files map[string]string, docs []plan.SessionDocument) []Issue {
	normalized := normalizeFiles(files)
	root := PrimaryRoot(normalized)
	scoped := scopedUIFiles(normalized, root)
	entry := findEntry(scoped)
	reach := reachable(normalized, root, entry)

	hasViteAlias, esmWithDirnameAlias := detectViteAliasState(normalized)

	var issues []Issue
	issues = append(issues, unresolvedImportIssues(scoped, root, hasViteAlias, esmWithDirnameAlias)...)
	issues = append(issues, exportMismatchIssues(scoped, root)...)
	issues = append(issues, checkEmptyContainerPage(reach)...)
	issues = append(issues, checkPlaceholderMarkers(reach)...)
	issues = append(issues, checkLowFidelityPage(reach)...)
	issues = append(issues, checkMissingEntryMount(reach, entry)...)
	issues = append(issues, checkNestedRouterProviders(reach, entry)...)
	issues = append(issues, checkNoRouterComposition(reach)...)
	issues = append(issues, checkGenericOnlyRoutes(reach)...)
	issues = append(issues, checkMissingArchitectRoutes(reach, plan.ArchitectRoutePaths(docs))...)
	issues = append(issues, checkNoInteractionHandlers(reach)...)
	issues = append(issues, checkNoStatefulHooks(reach)...)
	issues = append(issues, checkUnstableStoreSelector(reach)...)

	return dedupIssues(issues)
}

// UnresolvedImports satisfies taskrunner.ImportChecker: it reports only the
// unresolved-import-specifier messages, used by the Task Runner's repair-agent
// policy check (spec.md §4.2 step 8).
func (a *Analyzer) UnresolvedImports(files map[string]string) []string {
	normalized := normalizeFiles(files)
	root := PrimaryRoot(normalized)
	scoped := scopedUIFiles(normalized, root)
	hasViteAlias, esmWithDirnameAlias := detectViteAliasState(normalized)

	var out []string
	for _, issue := range unresolvedImportIssues(scoped, root, hasViteAlias, esmWithDirnameAlias) {
		out = append(out, issue.Message)
	}
	return out
}

func normalizeFiles(files map[string]string) map[string]string {
	out := make(map[string]string, len(files))
	for path, content := range files {
		out[normalizePath(path)] = content
	}
	return out
}

func dedupIssues(issues []Issue) []Issue {
	seen := make(map[Issue]bool, len(issues))
	out := make([]Issue, 0, len(issues))
	for _, iss := range issues {
		if seen[iss] {
			continue
		}
		seen[iss] = true
		out = append(out, iss)
	}
	return out
}
