package analyzer

import (
	"regexp"
	"sort"
)

var (
	reCreateRootMount  = regexp.MustCompile(`createRoot\s*\([^)]*\)[\s\S]{0,80}?\.render\s*\(`)
	reGetElementByID   = regexp.MustCompile(`document\.getElementById\s*\(`)
	reReactDOMRender   = regexp.MustCompile(`\.render\s*\(`)
	reRouterImport     = regexp.MustCompile(`from\s+['"]react-router(-dom)?['"]`)
	reAnyImport        = regexp.MustCompile(`(?m)^\s*import\s`)
	reExportDefault    = regexp.MustCompile(`export\s+default\b`)
)

// scoreEntryCandidate implements the entry-detection scoring rules of
// spec.md §4.6.
func scoreEntryCandidate(content string) int {
	score := 0
	hasMount := reCreateRootMount.MatchString(content)
	if hasMount {
		score += 120
	}
	if reGetElementByID.MatchString(content) && reReactDOMRender.MatchString(content) {
		score += 40
	}
	if reRouterImport.MatchString(content) {
		score += 20
	}
	if reAnyImport.MatchString(content) {
		score += 10
	}
	if reExportDefault.MatchString(content) && !hasMount && !reReactDOMRender.MatchString(content) {
		score -= 30
	}
	return score
}

// findEntry returns the path of the highest-scoring file with a positive
// score, or "" if none qualifies. Candidates are visited in sorted path order
// so that equal top scores resolve deterministically (Go map iteration order
// is unspecified; spec.md §9's determinism stance applies here too).
func findEntry(files map[string]string) string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	best := ""
	bestScore := 0
	for _, path := range paths {
		s := scoreEntryCandidate(files[path])
		if s > bestScore {
			bestScore = s
			best = path
		}
	}
	return best
}
