package quality

import (
	"regexp"
	"strings"
)

const maxIssueLen = 320

var reBulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

var passIndicators = []string{
	"quality_passed",
	"all checks passed",
	"all checks pass",
	"no issues found",
	"looks good",
}

var contextRequestPhrases = []string{
	"share the repository",
	"share the repo",
	"cannot access your code",
	"cannot access the repository",
	"i do not have access",
	"i don't have access",
	"unable to access the codebase",
}

var concreteEvidenceExtensions = []string{
	".ts", ".tsx", ".js", ".jsx", ".json", ".css", ".scss", ".html", ".yaml", ".yml",
}

var concreteEvidenceKeywords = []string{"npm", "eslint", "vite"}

var reNumericErrorCode = regexp.MustCompile(`\b[A-Z]{2,}[0-9]{2,}\b|\berror\s+\d+\b|\bcode\s+\d+\b`)

var issueKeywords = []string{
	"error", "failed", "issue", "missing", "cannot", "invalid", "broken",
	"unresolved", "empty", "not found", "mismatch", "crash", "warning",
}

// parseModelIssues extracts actionable issue lines from a quality agent's
// free-text response (spec.md §4.5 "Parsing rules for model issues").
func parseModelIssues(response string) []string {
	seen := make(map[string]bool)
	var out []string

	for _, raw := range strings.Split(response, "\n") {
		line := reBulletPrefix.ReplaceAllString(raw, "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > maxIssueLen {
			line = strings.TrimSpace(line[:maxIssueLen])
		}

		lower := strings.ToLower(line)
		if containsAny(lower, passIndicators) {
			continue
		}
		if containsAny(lower, contextRequestPhrases) && !hasConcreteEvidence(lower, line) {
			continue
		}
		if !containsAny(lower, issueKeywords) {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
		if len(out) >= 12 {
			break
		}
	}
	return out
}

// isQualityPassed reports whether response explicitly signals the pass
// indicator spec.md §4.5 step 1 asks the agent to emit.
func isQualityPassed(response string) bool {
	return strings.Contains(strings.ToUpper(response), "QUALITY_PASSED")
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// hasConcreteEvidence reports whether a context-request line nonetheless
// cites concrete evidence that survives the filter: a file path with a known
// extension, a numeric error code, or an npm/eslint/vite keyword (spec.md
// §4.5, Scenario 6's carve-out).
func hasConcreteEvidence(lower, original string) bool {
	for _, ext := range concreteEvidenceExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	if reNumericErrorCode.MatchString(original) {
		return true
	}
	return containsAny(lower, concreteEvidenceKeywords)
}
