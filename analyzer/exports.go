package analyzer

import (
	"regexp"
	"strings"
)

var (
	reDefaultImportClause = regexp.MustCompile(`import\s+([A-Za-z_$][\w$]*)\s*(?:,\s*\{([^}]*)\})?\s+from\s+['"]([^'"]+)['"]`)
	reNamedOnlyClause     = regexp.MustCompile(`import\s+\{([^}]*)\}\s+from\s+['"]([^'"]+)['"]`)

	reNamedDecl    = regexp.MustCompile(`export\s+(?:const|let|var|function|class|interface|type|enum)\s+([A-Za-z_$][\w$]*)`)
	reNamedBraces  = regexp.MustCompile(`export\s*\{([^}]*)\}`)
	reHasDefault   = regexp.MustCompile(`export\s+default\b`)
)

// moduleExports collects the default/named export surface of a file's
// content (spec.md §4.6 Import/export contract mismatch).
type moduleExports struct {
	hasDefault bool
	named      map[string]bool
}

func analyzeExports(content string) moduleExports {
	ex := moduleExports{named: make(map[string]bool)}
	ex.hasDefault = reHasDefault.MatchString(content)
	for _, m := range reNamedDecl.FindAllStringSubmatch(content, -1) {
		ex.named[m[1]] = true
	}
	for _, m := range reNamedBraces.FindAllStringSubmatch(content, -1) {
		for _, part := range splitCommaList(m[1]) {
			name := part
			if idx := strings.Index(part, " as "); idx >= 0 {
				name = strings.TrimSpace(part[idx+4:])
			}
			if name != "" {
				ex.named[name] = true
			}
		}
	}
	return ex
}

// importClause describes one parsed `import ... from '<module>'` statement.
type importClause struct {
	module       string
	defaultName  string
	namedImports []string
}

func parseImportClauses(content string) []importClause {
	var out []importClause
	seen := make(map[string]bool)

	for _, m := range reDefaultImportClause.FindAllStringSubmatch(content, -1) {
		key := m[0]
		if seen[key] {
			continue
		}
		seen[key] = true
		ic := importClause{module: m[3], defaultName: m[1]}
		if m[2] != "" {
			ic.namedImports = append(ic.namedImports, namesOf(m[2])...)
		}
		out = append(out, ic)
	}
	for _, m := range reNamedOnlyClause.FindAllStringSubmatch(content, -1) {
		key := m[0]
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, importClause{module: m[2], namedImports: namesOf(m[1])})
	}
	return out
}

func namesOf(clause string) []string {
	var out []string
	for _, part := range splitCommaList(clause) {
		name := part
		if idx := strings.Index(part, " as "); idx >= 0 {
			name = strings.TrimSpace(part[:idx])
		}
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		p := strings.TrimSpace(part)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// exportMismatchIssues checks every import clause whose module resolves
// within root against the target file's actual export surface.
func exportMismatchIssues(files map[string]string, root string) []Issue {
	var issues []Issue
	for path, content := range files {
		for _, ic := range parseImportClauses(content) {
			if !isInternalSpecifier(ic.module) {
				continue
			}
			target, ok := resolveSpecifier(files, root, path, ic.module)
			if !ok {
				continue // already reported as unresolved-import
			}
			exp := analyzeExports(files[target])
			if ic.defaultName != "" && !exp.hasDefault {
				issues = append(issues, Issue{
					Code:    "export-contract-mismatch",
					File:    path,
					Message: path + " imports a default export from " + target + " which does not export a default",
				})
			}
			for _, name := range ic.namedImports {
				if !exp.named[name] {
					issues = append(issues, Issue{
						Code:    "export-contract-mismatch",
						File:    path,
						Message: path + " imports \"" + name + "\" from " + target + " which does not export it",
					})
				}
			}
		}
	}
	return issues
}
