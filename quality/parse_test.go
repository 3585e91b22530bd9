package quality

import "testing"

func TestParseModelIssues_StripsBulletsAndPassLines(t *testing.T) {
	response := "- The App.tsx file has a missing import for './lib/util'\n" +
		"* All checks passed\n" +
		"1) invoices.tsx references a missing export\n"

	issues := parseModelIssues(response)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d: %+v", len(issues), issues)
	}
	for _, i := range issues {
		if i[0] == '-' || i[0] == '*' {
			t.Fatalf("bullet prefix not stripped: %q", i)
		}
	}
}

func TestParseModelIssues_FiltersContextRequestWithoutEvidence(t *testing.T) {
	response := "I cannot access your code, please share the repository so I can review it."
	issues := parseModelIssues(response)
	if len(issues) != 0 {
		t.Fatalf("expected context-request line filtered out, got %+v", issues)
	}
}

func TestParseModelIssues_KeepsContextRequestWithConcreteEvidence(t *testing.T) {
	response := "I cannot access your code, but src/App.tsx throws error 500 on npm install."
	issues := parseModelIssues(response)
	if len(issues) != 1 {
		t.Fatalf("expected the evidenced context-request line to survive, got %+v", issues)
	}
}

func TestParseModelIssues_RequiresIssueKeyword(t *testing.T) {
	response := "The dashboard layout uses a two-column grid with a sidebar."
	issues := parseModelIssues(response)
	if len(issues) != 0 {
		t.Fatalf("expected non-issue commentary to be filtered, got %+v", issues)
	}
}

func TestParseModelIssues_TrimsOverlongLines(t *testing.T) {
	long := "error: "
	for i := 0; i < 60; i++ {
		long += "broken "
	}
	issues := parseModelIssues(long)
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %d", len(issues))
	}
	if len(issues[0]) > maxIssueLen {
		t.Fatalf("expected line trimmed to <= %d chars, got %d", maxIssueLen, len(issues[0]))
	}
}

func TestIsQualityPassed(t *testing.T) {
	if !isQualityPassed("QUALITY_PASSED") {
		t.Fatalf("expected exact marker to be recognized")
	}
	if !isQualityPassed("After review: quality_passed") {
		t.Fatalf("expected case-insensitive marker to be recognized")
	}
	if isQualityPassed("there is a missing import error") {
		t.Fatalf("did not expect unrelated text to be recognized as passed")
	}
}
