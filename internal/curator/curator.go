// Package curator implements the Content Curator (C5): a two-stage file
// selector that narrows an Analyzer result down to a token budget a
// repo-packager tool can turn into one concatenated text snapshot. Stage
// 1 reuses the Analyzer's relevance labels; stage 2 asks the LLM for
// include/exclude globs within a strict JSON schema, falling back to a
// deterministic heuristic on any violation — the same "fall back to a
// safe default on malformed upstream" posture the teacher's auth
// middleware uses for its dev-mode bypass.
package curator

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/clanktank/judge-engine/internal/analyzer"
	"github.com/clanktank/judge-engine/internal/llmclient"
)

// Settings is the Curator's output — what the repo-packager tool
// consumes to decide which blobs to concatenate.
type Settings struct {
	IncludePatterns []string
	ExcludePatterns []string
	CoreCodeMax     int
	OtherFileMax    int
	Rationale       string
	FellBackToHeuristic bool
}

const (
	defaultCoreCodeMax  = 150 * 1024
	defaultOtherFileMax = 50 * 1024
	maxRationaleLen     = 500
	topManifestEntries  = 400
)

var heuristicInclude = []string{"**/*.md"}
var heuristicExclude = []string{"**/node_modules/**", "**/dist/**", "**/build/**", "**/__pycache__/**", "**/*.log"}

func init() {
	for ext := range sourceExtensionGlobs {
		heuristicInclude = append(heuristicInclude, "**/*"+ext)
	}
	sort.Strings(heuristicInclude)
}

// sourceExtensionGlobs mirrors the analyzer's notion of "common source
// extension", duplicated here rather than imported so the heuristic
// fallback has no runtime dependency on the Analyzer's classification
// internals — only its already-labeled manifest.
var sourceExtensionGlobs = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".rs": true, ".go": true, ".sol": true,
	".java": true, ".c": true, ".cpp": true, ".rb": true, ".php": true, ".swift": true,
}

func deterministicFallback(rationale string) Settings {
	return Settings{
		IncludePatterns:     heuristicInclude,
		ExcludePatterns:      heuristicExclude,
		CoreCodeMax:          defaultCoreCodeMax,
		OtherFileMax:         defaultOtherFileMax,
		Rationale:            rationale,
		FellBackToHeuristic:  true,
	}
}

// advisoryResponse is the strict schema the LLM must answer in stage 2.
type advisoryResponse struct {
	IncludePatterns []string `json:"include_patterns"`
	ExcludePatterns []string `json:"exclude_patterns"`
	CoreCodeMax     int      `json:"core_code_max"`
	OtherFileMax    int      `json:"other_file_max"`
	Rationale       string   `json:"rationale"`
}

func (r *advisoryResponse) validate() error {
	if len(r.IncludePatterns) == 0 {
		return fmt.Errorf("curator: include_patterns is empty")
	}
	if r.CoreCodeMax <= 0 || r.CoreCodeMax > 10*1024*1024 {
		return fmt.Errorf("curator: core_code_max %d is out of range", r.CoreCodeMax)
	}
	if r.OtherFileMax <= 0 || r.OtherFileMax > 10*1024*1024 {
		return fmt.Errorf("curator: other_file_max %d is out of range", r.OtherFileMax)
	}
	if len(r.Rationale) > maxRationaleLen {
		return fmt.Errorf("curator: rationale exceeds %d characters", maxRationaleLen)
	}
	return nil
}

// Curate runs the two-stage selection described in §4.5 against an
// already-computed Analyzer result.
func Curate(ctx context.Context, llm *llmclient.Client, result *analyzer.Result) Settings {
	entries := topEntries(result.Files, topManifestEntries)

	prompt := buildAdvisoryPrompt(entries, result.DependencyExcerpts, result.Histogram, result.Facts)
	raw, err := llm.Complete(ctx, advisorySystemPrompt, prompt)
	if err != nil {
		return deterministicFallback(fmt.Sprintf("llm call failed: %v", err))
	}

	var parsed advisoryResponse
	if err := json.Unmarshal(extractJSON(raw), &parsed); err != nil {
		return deterministicFallback(fmt.Sprintf("malformed JSON response: %v", err))
	}
	if err := parsed.validate(); err != nil {
		return deterministicFallback(err.Error())
	}

	return Settings{
		IncludePatterns: parsed.IncludePatterns,
		ExcludePatterns: parsed.ExcludePatterns,
		CoreCodeMax:     parsed.CoreCodeMax,
		OtherFileMax:    parsed.OtherFileMax,
		Rationale:       parsed.Rationale,
	}
}

// topEntries returns up to n manifest entries, highest relevance first.
func topEntries(files []analyzer.FileEntry, n int) []analyzer.FileEntry {
	ranked := make([]analyzer.FileEntry, len(files))
	copy(ranked, files)
	sort.SliceStable(ranked, func(i, j int) bool {
		return relevanceRank(ranked[i].Relevance) > relevanceRank(ranked[j].Relevance)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func relevanceRank(r analyzer.Relevance) int {
	switch r {
	case analyzer.RelevanceHigh:
		return 3
	case analyzer.RelevanceMediumHigh:
		return 2
	case analyzer.RelevanceMedium:
		return 1
	default:
		return 0
	}
}

const advisorySystemPrompt = `You select which files from a software repository should be included in a condensed snapshot for code review. Respond with a single JSON object matching exactly: {"include_patterns": string[], "exclude_patterns": string[], "core_code_max": integer, "other_file_max": integer, "rationale": string}. core_code_max and other_file_max are byte caps per file. rationale must be 500 characters or fewer. Respond with JSON only, no prose.`

func buildAdvisoryPrompt(entries []analyzer.FileEntry, excerpts []analyzer.DependencyExcerpt, histogram analyzer.SizeHistogram, facts analyzer.RepoFacts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n\n", facts.Description)
	b.WriteString("File manifest (path, bytes, relevance):\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s\t%d\t%s\n", e.Path, e.Bytes, e.Relevance)
	}
	b.WriteString("\nSize histogram:\n")
	for bucket, count := range histogram {
		fmt.Fprintf(&b, "%s: %d\n", bucket, count)
	}
	b.WriteString("\nDependency manifest excerpts:\n")
	for _, ex := range excerpts {
		fmt.Fprintf(&b, "--- %s ---\n%s\n", ex.Path, strings.Join(ex.Lines, "\n"))
	}
	return b.String()
}

// extractJSON pulls a fenced ```json ... ``` block out of raw LLM text
// if present, otherwise returns raw unchanged — the same
// fence-then-raw-fallback pattern §4.6 step 6 requires for research
// responses, reused here since advisory responses are prone to the same
// "wrapped in prose" failure mode.
func extractJSON(raw string) []byte {
	const fenceOpen = "```json"
	if idx := strings.Index(raw, fenceOpen); idx >= 0 {
		rest := raw[idx+len(fenceOpen):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return []byte(strings.TrimSpace(rest[:end]))
		}
	}
	if idx := strings.Index(raw, "```"); idx >= 0 {
		rest := raw[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return []byte(strings.TrimSpace(rest[:end]))
		}
	}
	return []byte(raw)
}

// MatchesAnyPattern reports whether path matches any of the given glob
// patterns, supporting "**" as a directory wildcard in addition to
// filepath.Match's single-level "*".
func MatchesAnyPattern(path string, patterns []string) bool {
	for _, p := range patterns {
		if matchGlob(p, path) {
			return true
		}
	}
	return false
}

func matchGlob(pattern, path string) bool {
	if !strings.Contains(pattern, "**") {
		ok, _ := filepath.Match(pattern, path)
		return ok
	}
	re := globToRegexp(pattern)
	return re.MatchString(path)
}

var globRegexpCache = map[string]*regexp.Regexp{}

// globToRegexp compiles a "**"-aware glob into an anchored regexp,
// caching by pattern since the same exclude/include list is reused
// across every file in a repo's manifest.
func globToRegexp(pattern string) *regexp.Regexp {
	if re, ok := globRegexpCache[pattern]; ok {
		return re
	}
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		switch {
		case strings.HasPrefix(pattern[i:], "**/"):
			// "**/" matches zero or more whole path segments, including
			// none — so "**/node_modules/**" also matches a top-level
			// node_modules directory, not just a nested one.
			b.WriteString("(?:.*/)?")
			i += 2
		case strings.HasPrefix(pattern[i:], "**"):
			b.WriteString(".*")
			i++
		case pattern[i] == '*':
			b.WriteString("[^/]*")
		case pattern[i] == '?':
			b.WriteString(".")
		case strings.ContainsRune(`.+()|[]{}^$\`, rune(pattern[i])):
			b.WriteString(`\` + string(pattern[i]))
		default:
			b.WriteByte(pattern[i])
		}
	}
	b.WriteString("$")
	re := regexp.MustCompile(b.String())
	globRegexpCache[pattern] = re
	return re
}

// Package is the repo-packager tool: it applies Settings to an
// Analyzer.Result's file manifest and fetches the surviving files'
// content, concatenating them into one text snapshot with a path header
// per file. Per-file size is capped at CoreCodeMax for high/medium-high
// relevance files and OtherFileMax otherwise; the overall snapshot is
// truncated by the caller (the Research Orchestrator applies its
// snapshotMaxBytes ~300 kB ceiling, per SPEC_FULL.md §D.1's
// truncation-policy decision — Package itself does not truncate the
// total).
func Package(ctx context.Context, client *analyzer.Client, repoURL string, result *analyzer.Result, settings Settings) string {
	var b strings.Builder
	for _, f := range result.Files {
		if len(settings.IncludePatterns) > 0 && !MatchesAnyPattern(f.Path, settings.IncludePatterns) {
			continue
		}
		if MatchesAnyPattern(f.Path, settings.ExcludePatterns) {
			continue
		}
		sizeCap := settings.OtherFileMax
		if f.Relevance == analyzer.RelevanceHigh || f.Relevance == analyzer.RelevanceMediumHigh {
			sizeCap = settings.CoreCodeMax
		}
		if int64(sizeCap) > 0 && f.Bytes > int64(sizeCap) {
			continue
		}
		content, err := client.FetchFile(ctx, repoURL, f.Path)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "--- %s ---\n%s\n\n", f.Path, content)
	}
	return b.String()
}

// Truncate hard-caps a snapshot to maxBytes, the final ceiling the
// Research Orchestrator applies (§4.6 step 4, ~300 kB).
func Truncate(snapshot string, maxBytes int) string {
	if len(snapshot) <= maxBytes {
		return snapshot
	}
	return snapshot[:maxBytes]
}
