// Package analyzer implements the Artifact Analyzer (C7): a deterministic
// quality oracle that scores a session workspace's UI source tree for
// structural fidelity (entry wiring, routing, interactivity, import
// resolvability) without ever invoking a model. spec.md §9 design notes call
// the analyzer authoritative and the quality-agent's free text advisory.
//
// There is no third-party JS/TSX parser available for this module's domain
// (agent orchestration, not a JS toolchain), so this package is built on
// stdlib regexp/strings/path text processing — the one package in this
// module where that is the correct call rather than a concession; see
// DESIGN.md.
package analyzer

import (
	"sort"
	"strings"
)

// uiSourceExtensions is the file-extension set spec.md §4.6 scopes UI source
// discovery to.
var uiSourceExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true,
}

// resolveExtensions is the broader extension list import resolution searches
// across (spec.md §4.6 Reachability).
var resolveExtensions = []string{
	".ts", ".tsx", ".js", ".jsx", ".json", ".css", ".scss", ".sass", ".less",
	".pcss", ".styl", ".svg", ".png", ".jpg", ".jpeg", ".webp", ".gif",
}

// normalizePath converts a path to POSIX form, collapsing "//", stripping a
// leading "./", and leaving ".." segments alone to resolve later (spec.md §9:
// "the normalizer collapses //, strips leading ./, and rejects .. segments
// outside the workspace" — rejection happens at resolution time, in imports.go).
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	p = strings.TrimPrefix(p, "./")
	return p
}

func ext(path string) string {
	idx := strings.LastIndex(path, ".")
	slash := strings.LastIndex(path, "/")
	if idx <= slash {
		return ""
	}
	return path[idx:]
}

func isTestFile(path string) bool {
	base := path
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.Contains(base, ".test.") || strings.Contains(base, ".spec.")
}

// isUISourceFile reports whether path is a UI source candidate: an allowed
// extension under a "src" directory, excluding test files.
func isUISourceFile(path string) bool {
	if isTestFile(path) {
		return false
	}
	if !uiSourceExtensions[ext(path)] {
		return false
	}
	_, ok := srcRootOf(path)
	return ok
}

// srcRootOf returns the path prefix preceding a top-level "src" path segment,
// e.g. "apps/web" for "apps/web/src/App.tsx", or "" for "src/App.tsx".
func srcRootOf(path string) (string, bool) {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "src" {
			return strings.Join(parts[:i], "/"), true
		}
	}
	return "", false
}

// PrimaryRoot picks the workspace-root prefix hosting the largest count of UI
// source files, tie-broken by shallower depth then shorter prefix string
// (spec.md §4.6 Workspace scoping; §9 Open Question 2: ties beyond these
// tiebreakers are implementation-defined and not guessed further here).
func PrimaryRoot(files map[string]string) string {
	counts := make(map[string]int)
	for path := range files {
		path = normalizePath(path)
		if !isUISourceFile(path) {
			continue
		}
		root, _ := srcRootOf(path)
		counts[root]++
	}
	if len(counts) == 0 {
		return ""
	}
	roots := make([]string, 0, len(counts))
	for r := range counts {
		roots = append(roots, r)
	}
	sort.Slice(roots, func(i, j int) bool {
		ci, cj := counts[roots[i]], counts[roots[j]]
		if ci != cj {
			return ci > cj
		}
		di, dj := depthOf(roots[i]), depthOf(roots[j])
		if di != dj {
			return di < dj
		}
		return len(roots[i]) < len(roots[j])
	})
	return roots[0]
}

func depthOf(root string) int {
	if root == "" {
		return 0
	}
	return strings.Count(root, "/") + 1
}

// scopedUIFiles returns the UI source files whose srcRootOf matches root,
// i.e. the files inside the primary workspace root (mirror trees elsewhere
// are excluded from issue reporting, per spec.md §4.6).
func scopedUIFiles(files map[string]string, root string) map[string]string {
	out := make(map[string]string)
	for path, content := range files {
		np := normalizePath(path)
		if !isUISourceFile(np) {
			continue
		}
		r, _ := srcRootOf(np)
		if r == root {
			out[np] = content
		}
	}
	return out
}
