package curator

import (
	"strings"
	"testing"

	"github.com/clanktank/judge-engine/internal/analyzer"
)

func TestDeterministicFallbackHasSaneDefaults(t *testing.T) {
	s := deterministicFallback("test reason")
	if s.CoreCodeMax != defaultCoreCodeMax || s.OtherFileMax != defaultOtherFileMax {
		t.Errorf("fallback caps = (%d, %d), want defaults", s.CoreCodeMax, s.OtherFileMax)
	}
	if !s.FellBackToHeuristic {
		t.Error("expected FellBackToHeuristic=true")
	}
	if len(s.IncludePatterns) == 0 || len(s.ExcludePatterns) == 0 {
		t.Error("fallback patterns should not be empty")
	}
}

func TestAdvisoryResponseValidateRejectsOutOfRangeCaps(t *testing.T) {
	r := advisoryResponse{IncludePatterns: []string{"**/*.go"}, CoreCodeMax: 0, OtherFileMax: 1000}
	if err := r.validate(); err == nil {
		t.Fatal("expected error for core_code_max=0")
	}
}

func TestAdvisoryResponseValidateRejectsLongRationale(t *testing.T) {
	long := make([]byte, maxRationaleLen+1)
	for i := range long {
		long[i] = 'x'
	}
	r := advisoryResponse{
		IncludePatterns: []string{"**/*.go"}, CoreCodeMax: 1000, OtherFileMax: 1000,
		Rationale: string(long),
	}
	if err := r.validate(); err == nil {
		t.Fatal("expected error for over-length rationale")
	}
}

func TestExtractJSONFencedBlock(t *testing.T) {
	raw := "here is my answer:\n```json\n{\"a\":1}\n```\nthanks"
	got := extractJSON(raw)
	if string(got) != `{"a":1}` {
		t.Errorf("extractJSON = %q, want %q", got, `{"a":1}`)
	}
}

func TestExtractJSONNoFenceReturnsRaw(t *testing.T) {
	raw := `{"a":1}`
	got := extractJSON(raw)
	if string(got) != raw {
		t.Errorf("extractJSON = %q, want unchanged raw", got)
	}
}

func TestTopEntriesOrdersByRelevance(t *testing.T) {
	files := []analyzer.FileEntry{
		{Path: "a.txt", Relevance: analyzer.RelevanceLow},
		{Path: "src/main.go", Relevance: analyzer.RelevanceHigh},
		{Path: "README.md", Relevance: analyzer.RelevanceMedium},
	}
	ranked := topEntries(files, 10)
	if ranked[0].Path != "src/main.go" {
		t.Errorf("expected highest-relevance entry first, got %q", ranked[0].Path)
	}
}

func TestTopEntriesCapsAtN(t *testing.T) {
	var files []analyzer.FileEntry
	for i := 0; i < 10; i++ {
		files = append(files, analyzer.FileEntry{Path: "f", Relevance: analyzer.RelevanceLow})
	}
	ranked := topEntries(files, 3)
	if len(ranked) != 3 {
		t.Errorf("topEntries capped at 3 = %d entries", len(ranked))
	}
}

func TestMatchesAnyPatternDoubleStar(t *testing.T) {
	if !MatchesAnyPattern("node_modules/foo/bar.js", []string{"**/node_modules/**"}) {
		t.Error("expected node_modules path to match **/node_modules/** exclude pattern")
	}
}

func TestMatchesAnyPatternExtension(t *testing.T) {
	if !MatchesAnyPattern("src/deep/nested/file.go", []string{"**/*.go"}) {
		t.Error("expected nested .go file to match **/*.go")
	}
}

func TestTruncateShorterThanMaxIsUnchanged(t *testing.T) {
	s := "hello"
	if got := Truncate(s, 100); got != s {
		t.Errorf("Truncate should not alter a string under the limit, got %q", got)
	}
}

func TestTruncateCapsAtMaxBytes(t *testing.T) {
	s := strings.Repeat("x", 1000)
	got := Truncate(s, 300)
	if len(got) != 300 {
		t.Errorf("Truncate(%d bytes, 300) = %d bytes, want 300", len(s), len(got))
	}
}
