package analyzer

import (
	"path"
	"regexp"
	"strings"
)

var (
	reImportFrom  = regexp.MustCompile(`(?m)import\s+(?:[\w*{}\s,]+\s+from\s+)?['"]([^'"]+)['"]`)
	reDynamicImp  = regexp.MustCompile(`import\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	reRequireCall = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
)

// importSpecifiers extracts every import/require specifier referenced by a
// file's content, in first-seen order.
func importSpecifiers(content string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, m := range reImportFrom.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	for _, m := range reDynamicImp.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	for _, m := range reRequireCall.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	return out
}

// isInternalSpecifier reports whether a specifier names something this
// workspace owns (as opposed to an npm package resolved through
// node_modules, which this analyzer does not attempt to validate).
func isInternalSpecifier(spec string) bool {
	return strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") ||
		strings.HasPrefix(spec, "@/") || strings.HasPrefix(spec, "src/") ||
		strings.HasPrefix(spec, "@")
}

// candidateBase maps a specifier to a workspace-relative base path (without
// extension) from the perspective of fromFile, or "" if the specifier is not
// internal (spec.md §4.6 Reachability: "resolving ., @/, bare src/, and
// @scope/... specifiers").
func candidateBase(root, fromFile, spec string) string {
	switch {
	case strings.HasPrefix(spec, "."):
		return path.Clean(path.Join(path.Dir(fromFile), spec))
	case strings.HasPrefix(spec, "@/"):
		return path.Clean(path.Join(root, "src", spec[len("@/"):]))
	case strings.HasPrefix(spec, "/"):
		return path.Clean(strings.TrimPrefix(spec, "/"))
	case strings.HasPrefix(spec, "src/"):
		return path.Clean(path.Join(root, spec))
	case strings.HasPrefix(spec, "@"):
		// Scoped alias (monorepo-style) or npm scoped package. Only treated as
		// internal if it actually resolves under the primary root; otherwise
		// callers fall back to treating it as an external dependency.
		return path.Clean(path.Join(root, "src", spec))
	default:
		return ""
	}
}

// resolveSpecifier tries base, base.{ext}, base/index.{ext} against files,
// returning the resolved path and whether resolution succeeded.
func resolveSpecifier(files map[string]string, root, fromFile, spec string) (string, bool) {
	base := candidateBase(root, fromFile, spec)
	if base == "" {
		return "", false
	}
	if _, ok := files[base]; ok {
		return base, true
	}
	for _, e := range resolveExtensions {
		if p := base + e; fileExists(files, p) {
			return p, true
		}
		if p := path.Join(base, "index"+e); fileExists(files, p) {
			return p, true
		}
	}
	return "", false
}

func fileExists(files map[string]string, p string) bool {
	_, ok := files[p]
	return ok
}

// unresolvedImportIssues walks every workspace file and every internal import
// specifier in it, reporting any that resolve to nothing (spec.md §4.6
// Unresolved imports). "All workspace files are scored for import
// resolution" — unlike fidelity checks, this is not limited to reachable
// files from the entry point.
func unresolvedImportIssues(files map[string]string, root string, hasViteAlias, esmWithDirnameAlias bool) []Issue {
	var issues []Issue
	usesAtAlias := false
	for path, content := range files {
		for _, spec := range importSpecifiers(content) {
			if strings.HasPrefix(spec, "@/") {
				usesAtAlias = true
			}
			if !isInternalSpecifier(spec) {
				continue
			}
			if spec2, ok := resolveSpecifier(files, root, path, spec); ok {
				_ = spec2
				continue
			}
			// A scoped "@pkg/x" specifier that does not resolve under the
			// workspace is presumed to be an external npm dependency, not an
			// unresolved internal import, unless it is the "@/" alias form.
			if strings.HasPrefix(spec, "@") && !strings.HasPrefix(spec, "@/") {
				continue
			}
			issues = append(issues, Issue{
				Code:    "unresolved-import",
				File:    path,
				Message: path + " has unresolved import \"" + spec + "\"",
			})
		}
	}
	if usesAtAlias && !hasViteAlias {
		issues = append(issues, Issue{
			Code:    "unresolved-import",
			Message: "\"@/\" import alias used without a matching vite.config.* alias declaration",
		})
	}
	if esmWithDirnameAlias {
		issues = append(issues, Issue{
			Code:    "unresolved-import",
			Message: "vite.config.* declares the \"@\" alias using __dirname in an ESM project (package.json type:module)",
		})
	}
	return issues
}

// reachable follows imports transitively from entry, returning the set of
// workspace files reachable from it (spec.md §4.6 Reachability). Only
// internal specifiers that resolve to an actual file are followed.
func reachable(files map[string]string, root, entry string) map[string]string {
	out := make(map[string]string)
	if entry == "" {
		return out
	}
	queue := []string{entry}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if _, seen := out[p]; seen {
			continue
		}
		content, ok := files[p]
		if !ok {
			continue
		}
		out[p] = content
		for _, spec := range importSpecifiers(content) {
			if !isInternalSpecifier(spec) {
				continue
			}
			if resolved, ok := resolveSpecifier(files, root, p, spec); ok {
				if _, seen := out[resolved]; !seen {
					queue = append(queue, resolved)
				}
			}
		}
	}
	return out
}
