package analyzer

import (
	"regexp"
	"strings"
)

var (
	rePlaceholderAttr = regexp.MustCompile(`placeholder\s*=\s*(".*?"|'.*?'|\{[^}]*\})`)
	rePlaceholderWord = regexp.MustCompile(`(?i)todo|fixme|coming soon|placeholder component|占位页面|示例数据|mock数据`)

	rePageLikeName = regexp.MustCompile(`(^|/)(App\.tsx|[A-Za-z0-9]*Page\.[jt]sx?)$`)
	reEmptyReturn  = regexp.MustCompile(`return\s*\(\s*<([A-Za-z][\w.]*)[^>]*>\s*</[A-Za-z][\w.]*>\s*\)`)
	reEmptyReturnSC = regexp.MustCompile(`return\s*\(\s*<([A-Za-z][\w.]*)[^>]*/>\s*\)`)

	reInteractionHandler = regexp.MustCompile(`\bon(Click|Change|Submit|Input|KeyDown|KeyUp|Focus|Blur)\s*=\s*\{`)
	reStatefulHook       = regexp.MustCompile(`\buse(State|Reducer|Memo|Effect|Ref)\s*\(`)
	reUnstableSelector   = regexp.MustCompile(`use\w*Store\s*\(\s*\(?\s*state\s*\)?\s*=>\s*\(\{`)

	reBrowserRouter  = regexp.MustCompile(`<BrowserRouter\b|<RouterProvider\b`)
	reRouterComposed = regexp.MustCompile(`\b(Routes|Route|useRoutes|createBrowserRouter|RouterProvider|Navigate)\b`)
	reCreateRoot     = regexp.MustCompile(`createRoot\s*\([^)]*\)[\s\S]{0,120}?\.render\s*\(`)

	reRouteJSX    = regexp.MustCompile(`<Route\s+[^>]*path\s*=\s*["']([^"']+)["']`)
	reRouteObject = regexp.MustCompile(`path\s*:\s*["']([^"']+)["']`)
)

var genericRouteSegments = map[string]bool{
	"dashboard": true, "home": true, "settings": true, "list": true,
	"detail": true, "profile": true, "about": true, "contact": true,
	"index": true, "overview": true,
}

// Issue is a single deterministic finding emitted by the Artifact Analyzer.
type Issue struct {
	Code    string
	File    string
	Message string
}

func stripPlaceholderAttr(content string) string {
	return rePlaceholderAttr.ReplaceAllString(content, "")
}

func isEmptyContainerReturn(content string) bool {
	return reEmptyReturn.MatchString(content) || reEmptyReturnSC.MatchString(content)
}

// checkEmptyContainerPage flags page-like files whose JSX return is an empty
// or self-closing container (spec.md §4.6).
func checkEmptyContainerPage(reachable map[string]string) []Issue {
	var issues []Issue
	for path, content := range reachable {
		if !rePageLikeName.MatchString(path) {
			continue
		}
		if isEmptyContainerReturn(content) {
			issues = append(issues, Issue{Code: "empty-container-page", File: path, Message: path + " renders an empty container"})
		}
	}
	return issues
}

// checkPlaceholderMarkers flags placeholder/stub markers after stripping the
// legitimate JSX placeholder= attribute.
func checkPlaceholderMarkers(reachable map[string]string) []Issue {
	var issues []Issue
	for path, content := range reachable {
		stripped := stripPlaceholderAttr(content)
		if rePlaceholderWord.MatchString(stripped) {
			issues = append(issues, Issue{Code: "placeholder-marker", File: path, Message: path + " contains a placeholder/stub marker"})
		}
	}
	return issues
}

// checkLowFidelityPage flags small, non-interactive, non-routed page-like
// content.
func checkLowFidelityPage(reachable map[string]string) []Issue {
	var issues []Issue
	for path, content := range reachable {
		if !rePageLikeName.MatchString(path) {
			continue
		}
		compact := strings.TrimSpace(content)
		if len(compact) >= 400 {
			continue
		}
		if reInteractionHandler.MatchString(content) || reRouterComposed.MatchString(content) {
			continue
		}
		issues = append(issues, Issue{Code: "low-fidelity-page", File: path, Message: path + " is a low-fidelity page: too small, no interaction, no router composition"})
	}
	return issues
}

// checkMissingEntryMount flags a workspace with no createRoot(...).render(...)
// call composed with a router or App shell.
func checkMissingEntryMount(reachable map[string]string, entry string) []Issue {
	if entry == "" {
		return []Issue{{Code: "missing-entry-mount", Message: "no runtime entry point with a React root mount was found"}}
	}
	content := reachable[entry]
	if !reCreateRoot.MatchString(content) {
		return []Issue{{Code: "missing-entry-mount", File: entry, Message: entry + " does not mount a React root via createRoot(...).render(...)"}}
	}
	if !reRouterComposed.MatchString(content) && !strings.Contains(content, "App") {
		return []Issue{{Code: "missing-entry-mount", File: entry, Message: entry + " mounts a root but composes neither a router nor an App shell"}}
	}
	return nil
}

// checkNestedRouterProviders flags a router provider declared in both the
// entry and another app-shell file.
func checkNestedRouterProviders(reachable map[string]string, entry string) []Issue {
	var others []string
	entryHasRouter := entry != "" && reBrowserRouter.MatchString(reachable[entry])
	for path, content := range reachable {
		if path == entry {
			continue
		}
		if reBrowserRouter.MatchString(content) {
			others = append(others, path)
		}
	}
	if entryHasRouter && len(others) > 0 {
		return []Issue{{Code: "nested-router-providers", File: others[0], Message: "a router provider is declared in both " + entry + " and " + others[0]}}
	}
	return nil
}

// checkNoRouterComposition flags an app shell with zero router vocabulary.
func checkNoRouterComposition(reachable map[string]string) []Issue {
	for path, content := range reachable {
		if !rePageLikeName.MatchString(path) {
			continue
		}
		if !strings.HasSuffix(path, "App.tsx") && !strings.HasSuffix(path, "App.jsx") {
			continue
		}
		if !reRouterComposed.MatchString(content) {
			return []Issue{{Code: "no-router-composition", File: path, Message: path + " does not compose any router primitives"}}
		}
	}
	return nil
}

// declaredRoutes collects every route path declared across reachable files,
// from both JSX <Route path="..."> and object-config {path: "..."} forms.
func declaredRoutes(reachable map[string]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, content := range reachable {
		for _, m := range reRouteJSX.FindAllStringSubmatch(content, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
		for _, m := range reRouteObject.FindAllStringSubmatch(content, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	return out
}

func firstSegment(route string) string {
	route = strings.TrimPrefix(route, "/")
	if idx := strings.Index(route, "/"); idx >= 0 {
		route = route[:idx]
	}
	return strings.ToLower(route)
}

// checkGenericOnlyRoutes flags a route table with >= 3 routes that are all
// drawn from the generic placeholder vocabulary.
func checkGenericOnlyRoutes(reachable map[string]string) []Issue {
	routes := declaredRoutes(reachable)
	if len(routes) < 3 {
		return nil
	}
	for _, r := range routes {
		seg := firstSegment(r)
		if seg != "" && !genericRouteSegments[seg] {
			return nil
		}
	}
	return []Issue{{Code: "generic-only-routes", Message: "declared routes are all generic placeholders: " + strings.Join(routes, ", ")}}
}

// canonicalRoute strips a trailing plural 's' (with ies -> y) for the
// architect route-coverage comparison (spec.md §4.6 canonicalization rule).
func canonicalRoute(route string) string {
	route = strings.TrimSuffix(route, "/")
	if strings.HasSuffix(route, "ies") {
		return strings.TrimSuffix(route, "ies") + "y"
	}
	return strings.TrimSuffix(route, "s")
}

// routeCovers reports whether declared covers expected per spec.md §4.6:
// "equals, is a prefix of, is a descendant of, or canonicalizes equal to".
func routeCovers(declared, expected string) bool {
	d := strings.TrimSuffix(declared, "/")
	e := strings.TrimSuffix(expected, "/")
	if d == e {
		return true
	}
	if strings.HasPrefix(e, d+"/") || strings.HasPrefix(d, e+"/") {
		return true
	}
	return canonicalRoute(d) == canonicalRoute(e)
}

// checkMissingArchitectRoutes flags expected routes from the architect's
// SessionDocument that no declared route covers.
func checkMissingArchitectRoutes(reachable map[string]string, expected []string) []Issue {
	if len(expected) == 0 {
		return nil
	}
	declared := declaredRoutes(reachable)
	var issues []Issue
	for _, exp := range expected {
		covered := false
		for _, d := range declared {
			if routeCovers(d, exp) {
				covered = true
				break
			}
		}
		if !covered {
			issues = append(issues, Issue{Code: "missing-architect-routes", Message: "architect route \"" + exp + "\" has no matching declared route"})
		}
	}
	return issues
}

func checkNoInteractionHandlers(reachable map[string]string) []Issue {
	for _, content := range reachable {
		if reInteractionHandler.MatchString(content) {
			return nil
		}
	}
	return []Issue{{Code: "no-interaction-handlers", Message: "no interaction event handlers found in the reachable UI tree"}}
}

func checkNoStatefulHooks(reachable map[string]string) []Issue {
	for _, content := range reachable {
		if reStatefulHook.MatchString(content) {
			return nil
		}
	}
	return []Issue{{Code: "no-stateful-hooks", Message: "no stateful hooks found in the reachable UI tree"}}
}

func checkUnstableStoreSelector(reachable map[string]string) []Issue {
	var issues []Issue
	for path, content := range reachable {
		if reUnstableSelector.MatchString(content) {
			issues = append(issues, Issue{Code: "unstable-store-selector", File: path, Message: path + " uses a store selector returning a fresh object literal on every call"})
		}
	}
	return issues
}
