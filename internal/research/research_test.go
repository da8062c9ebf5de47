package research

import (
	"strings"
	"testing"
	"time"

	"github.com/clanktank/judge-engine/internal/analyzer"
	"github.com/clanktank/judge-engine/pkg/models"
)

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	o := New(nil, nil, nil, nil, dir, 24*time.Hour)

	entry := cacheEntry{
		SubmissionID: "abc123",
		CreatedAt:    time.Now().UTC(),
		Research:     models.Research{SubmissionID: "abc123"},
	}
	o.writeCache(entry)

	got, ok := o.readCache("abc123")
	if !ok {
		t.Fatal("expected cache hit after write")
	}
	if got.SubmissionID != "abc123" {
		t.Errorf("cached submission id = %q, want abc123", got.SubmissionID)
	}
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	dir := t.TempDir()
	o := New(nil, nil, nil, nil, dir, time.Hour)

	entry := cacheEntry{
		SubmissionID: "abc123",
		CreatedAt:    time.Now().UTC().Add(-2 * time.Hour),
		Research:     models.Research{SubmissionID: "abc123"},
	}
	o.writeCache(entry)

	if _, ok := o.readCache("abc123"); ok {
		t.Fatal("expected cache miss for an entry older than the TTL")
	}
}

func TestCacheMissWhenAbsent(t *testing.T) {
	o := New(nil, nil, nil, nil, t.TempDir(), 24*time.Hour)
	if _, ok := o.readCache("never-written"); ok {
		t.Fatal("expected cache miss for a submission id never written")
	}
}

func TestComputeRedFlagsMinimalImplementation(t *testing.T) {
	result := &analyzer.Result{Files: []analyzer.FileEntry{{Path: "a.go"}}}
	flags := computeRedFlags(result)
	if !contains(flags, "minimal implementation") {
		t.Errorf("expected minimal implementation flag, got %v", flags)
	}
}

func TestComputeRedFlagsGeneratedCodeRatio(t *testing.T) {
	var files []analyzer.FileEntry
	for i := 0; i < 3; i++ {
		files = append(files, analyzer.FileEntry{Path: "src/a.go", Relevance: analyzer.RelevanceHigh})
	}
	for i := 0; i < 10; i++ {
		files = append(files, analyzer.FileEntry{Path: "dist/b.js", Relevance: analyzer.RelevanceLow})
	}
	result := &analyzer.Result{Files: files}
	flags := computeRedFlags(result)
	if !contains(flags, "generated-code ratio") {
		t.Errorf("expected generated-code ratio flag, got %v", flags)
	}
}

func TestComputeRedFlagsStaleRepo(t *testing.T) {
	result := &analyzer.Result{
		Facts: analyzer.RepoFacts{
			CreatedAt: time.Now().UTC().Add(-60 * 24 * time.Hour),
			UpdatedAt: time.Now().UTC().Add(-10 * 24 * time.Hour),
		},
		Files: make([]analyzer.FileEntry, 20),
	}
	flags := computeRedFlags(result)
	if !contains(flags, "stale repo") {
		t.Errorf("expected stale repo flag, got %v", flags)
	}
}

func TestComputeRedFlagsFreshRepoHasNoStaleFlag(t *testing.T) {
	result := &analyzer.Result{
		Facts: analyzer.RepoFacts{
			CreatedAt: time.Now().UTC().Add(-60 * 24 * time.Hour),
			UpdatedAt: time.Now().UTC(),
		},
		Files: make([]analyzer.FileEntry, 20),
	}
	flags := computeRedFlags(result)
	if contains(flags, "stale repo") {
		t.Errorf("repo updated today should not be flagged stale, got %v", flags)
	}
}

func TestExtractJSONFencedBlock(t *testing.T) {
	raw := "```json\n{\"a\":1}\n```"
	if got := string(extractJSON(raw)); got != `{"a":1}` {
		t.Errorf("extractJSON = %q", got)
	}
}

func TestComposePromptIncludesRedFlags(t *testing.T) {
	sub := models.Submission{ProjectName: "Zephyr"}
	prompt := composePrompt(sub, []string{"stale repo"}, models.GithubAnalysis{}, "")
	if !strings.Contains(prompt, "stale repo") {
		t.Error("expected prompt to mention the computed red flag")
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
