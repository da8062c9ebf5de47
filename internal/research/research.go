// Package research implements the Research Orchestrator (C6): for one
// submission, it runs the Analyzer and Curator, invokes the LLM with the
// curated repo snapshot, and caches the structured verdict — mirroring
// the teacher's Poller (internal/mempool/poller.go), which also checks
// a local cache/dedup set before doing expensive work and persists its
// result for reuse on the next pass.
package research

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clanktank/judge-engine/internal/analyzer"
	"github.com/clanktank/judge-engine/internal/audit"
	"github.com/clanktank/judge-engine/internal/curator"
	"github.com/clanktank/judge-engine/internal/llmclient"
	"github.com/clanktank/judge-engine/internal/store"
	"github.com/clanktank/judge-engine/pkg/models"
)

// snapshotMaxBytes is the one authoritative truncation ceiling applied
// to the repo snapshot embedded in the research prompt (SPEC_FULL.md
// §D.1's truncation-policy decision): the Curator's own per-file caps bound
// which files are concatenated; this is the final hard cap on the
// resulting text.
const snapshotMaxBytes = 300 * 1024

// Orchestrator runs the research stage for submissions.
type Orchestrator struct {
	store    *store.Store
	analyzer *analyzer.Client
	llm      *llmclient.Client
	audit    *audit.Log
	cacheDir string
	cacheTTL time.Duration
}

func New(st *store.Store, az *analyzer.Client, llm *llmclient.Client, al *audit.Log, cacheDir string, cacheTTL time.Duration) *Orchestrator {
	return &Orchestrator{store: st, analyzer: az, llm: llm, audit: al, cacheDir: cacheDir, cacheTTL: cacheTTL}
}

// cacheEntry is the on-disk cache record keyed by submission ID, per
// §4.6 step 1/8 (a 24h-TTL cache file, distinct from the Store's
// permanent Research row — re-running research always refreshes the
// Store, the cache only short-circuits repeat work within the window).
type cacheEntry struct {
	SubmissionID string          `json:"submission_id"`
	CreatedAt    time.Time       `json:"created_at"`
	Research     models.Research `json:"research"`
}

func (o *Orchestrator) cachePath(submissionID string) string {
	sum := sha256.Sum256([]byte(submissionID))
	return filepath.Join(o.cacheDir, hex.EncodeToString(sum[:])+".json")
}

func (o *Orchestrator) readCache(submissionID string) (*cacheEntry, bool) {
	raw, err := os.ReadFile(o.cachePath(submissionID))
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	if time.Since(entry.CreatedAt) > o.cacheTTL {
		return nil, false
	}
	return &entry, true
}

func (o *Orchestrator) writeCache(entry cacheEntry) {
	if err := os.MkdirAll(o.cacheDir, 0o755); err != nil {
		log.Printf("research: failed to create cache dir %s: %v", o.cacheDir, err)
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		log.Printf("research: failed to marshal cache entry: %v", err)
		return
	}
	if err := os.WriteFile(o.cachePath(entry.SubmissionID), raw, 0o644); err != nil {
		log.Printf("research: failed to write cache file: %v", err)
	}
}

// llmResponse is the strict JSON directive §4.6 step 5 requires.
type llmResponse struct {
	TechnicalImplementation string `json:"technical_implementation"`
	OriginalityEffort       string `json:"originality_effort"`
	MarketAnalysis          string `json:"market_analysis"`
	Viability               string `json:"viability"`
	Innovation              string `json:"innovation"`
	JudgeSpecificInsights   string `json:"judge_specific_insights"`
	RedFlags                string `json:"red_flags"`
}

// Run executes the research stage for one submission. force bypasses
// the cache (but the Store is always the source of truth for the
// submission record itself).
func (o *Orchestrator) Run(ctx context.Context, version models.SchemaVersion, submissionID string, force bool) error {
	if !force {
		if entry, ok := o.readCache(submissionID); ok {
			if err := o.store.UpsertResearch(ctx, entry.Research); err != nil {
				return fmt.Errorf("research: failed to replay cached research: %w", err)
			}
			return nil
		}
	}

	sub, err := o.store.GetSubmission(ctx, version, submissionID)
	if err != nil {
		return fmt.Errorf("research: failed to load submission %s: %w", submissionID, err)
	}

	var githubAnalysis models.GithubAnalysis
	var snapshot string
	var redFlags []string
	if sub.GithubURL == "" {
		redFlags = []string{"no repository url provided"}
	} else {
		result, err := o.analyzer.Analyze(ctx, sub.GithubURL)
		if err != nil {
			log.Printf("research: analyzer failed for %s (%s): %v — continuing with no code context", submissionID, sub.GithubURL, err)
			redFlags = []string{"repository analysis unavailable"}
		} else {
			githubAnalysis = reduceAnalysis(result)
			redFlags = computeRedFlags(result)
			settings := curator.Curate(ctx, o.llm, result)
			raw := curator.Package(ctx, o.analyzer, sub.GithubURL, result, settings)
			snapshot = curator.Truncate(raw, snapshotMaxBytes)
		}
	}

	prompt := composePrompt(*sub, redFlags, githubAnalysis, snapshot)

	raw, err := o.llm.Complete(ctx, researchSystemPrompt, prompt)
	rawResponse := raw
	var parsed llmResponse
	parseErr := err
	if err == nil {
		parseErr = json.Unmarshal(extractJSON(raw), &parsed)
	}

	now := time.Now().UTC()
	githubAnalysis.RedFlags = redFlags
	researchRow := models.Research{
		SubmissionID:   submissionID,
		GithubAnalysis: githubAnalysis,
		CreatedAt:      now,
	}
	if parseErr != nil {
		researchRow.MarketResearch = models.MarketResearch{RawResponse: rawResponse}
		researchRow.TechnicalAssessment = models.TechnicalAssessment{RawResponse: rawResponse}
	} else {
		researchRow.TechnicalAssessment.Facts = []models.Fact{
			{Key: "technical_implementation", Value: parsed.TechnicalImplementation, Provenance: models.ProvenanceLLM},
			{Key: "originality_effort", Value: parsed.OriginalityEffort, Provenance: models.ProvenanceLLM},
			{Key: "innovation", Value: parsed.Innovation, Provenance: models.ProvenanceLLM},
			{Key: "judge_specific_insights", Value: parsed.JudgeSpecificInsights, Provenance: models.ProvenanceLLM},
		}
		researchRow.MarketResearch.Facts = []models.Fact{
			{Key: "market_analysis", Value: parsed.MarketAnalysis, Provenance: models.ProvenanceLLM},
			{Key: "viability", Value: parsed.Viability, Provenance: models.ProvenanceLLM},
		}
		if parsed.RedFlags != "" {
			researchRow.GithubAnalysis.RedFlags = append(researchRow.GithubAnalysis.RedFlags, parsed.RedFlags)
		}
	}

	if err := o.store.UpsertResearch(ctx, researchRow); err != nil {
		return fmt.Errorf("research: failed to persist research for %s: %w", submissionID, err)
	}

	if ok, err := o.store.AdvanceStatus(ctx, version, submissionID, models.StatusSubmitted, models.StatusResearched); err != nil {
		return fmt.Errorf("research: failed to advance status for %s: %w", submissionID, err)
	} else if !ok {
		log.Printf("research: submission %s was not in status=submitted when research completed; status left unchanged", submissionID)
	}

	o.writeCache(cacheEntry{SubmissionID: submissionID, CreatedAt: now, Research: researchRow})
	o.audit.Entry(ctx, "research_completed", submissionID, "", "")
	return nil
}

// reduceAnalysis builds the persisted GithubAnalysis from the full
// Analyzer result: metadata, a structure summary, and sample file
// lists — never the full file list, per §4.6 step 4.
func reduceAnalysis(result *analyzer.Result) models.GithubAnalysis {
	var facts []models.Fact
	add := func(key, value string) {
		if value != "" {
			facts = append(facts, models.Fact{Key: key, Value: value, Provenance: models.ProvenanceHeuristic})
		}
	}
	add("description", result.Facts.Description)
	add("license", result.Facts.License)
	add("topics", strings.Join(result.Facts.Topics, ", "))
	facts = append(facts, models.Fact{
		Key:        "commits_last_72h",
		Value:      fmt.Sprintf("%d", result.Facts.CommitsLast72h),
		Provenance: models.ProvenanceHeuristic,
	})

	var high, mediumHigh, medium, low []string
	for _, f := range result.Files {
		switch f.Relevance {
		case analyzer.RelevanceHigh:
			high = append(high, f.Path)
		case analyzer.RelevanceMediumHigh:
			mediumHigh = append(mediumHigh, f.Path)
		case analyzer.RelevanceMedium:
			medium = append(medium, f.Path)
		default:
			low = append(low, f.Path)
		}
	}

	structureSummary := fmt.Sprintf(
		"%d files total: %d high-relevance, %d medium-high, %d medium, %d low",
		len(result.Files), len(high), len(mediumHigh), len(medium), len(low),
	)

	return models.GithubAnalysis{
		Facts:             facts,
		StructureSummary:  structureSummary,
		SampleHighFiles:   sample(high, 10),
		SampleMediumFiles: sample(medium, 10),
		TokenBudget:       result.TokenBudget,
	}
}

func sample(paths []string, n int) []string {
	if len(paths) > n {
		return paths[:n]
	}
	return paths
}

// computeRedFlags implements §4.6's four heuristics against the full
// Analyzer result, before it is reduced for storage.
func computeRedFlags(result *analyzer.Result) []string {
	var flags []string
	now := time.Now().UTC()

	if !result.Facts.CreatedAt.IsZero() && now.Sub(result.Facts.CreatedAt) > 30*24*time.Hour &&
		now.Sub(result.Facts.UpdatedAt) > 7*24*time.Hour {
		flags = append(flags, "stale repo")
	}

	hasLargeFile := false
	for _, f := range result.Files {
		if f.Bytes > 50*1024 {
			hasLargeFile = true
			break
		}
	}
	if hasLargeFile && result.Histogram["<1KB"] > result.Histogram["1-10KB"] {
		flags = append(flags, "dependency bloat")
	}

	var high, mediumHigh, low int
	for _, f := range result.Files {
		switch f.Relevance {
		case analyzer.RelevanceHigh:
			high++
		case analyzer.RelevanceMediumHigh:
			mediumHigh++
		case analyzer.RelevanceLow:
			low++
		}
	}
	if low > 2*(high+mediumHigh) {
		flags = append(flags, "generated-code ratio")
	}

	if len(result.Files) < 10 {
		flags = append(flags, "minimal implementation")
	}

	return flags
}

const researchSystemPrompt = `You are a technical research analyst evaluating a hackathon submission. Respond with a single JSON object matching exactly: {"technical_implementation": string, "originality_effort": string, "market_analysis": string, "viability": string, "innovation": string, "judge_specific_insights": string, "red_flags": string}. Respond with JSON only, no prose.`

func composePrompt(sub models.Submission, redFlags []string, analysis models.GithubAnalysis, snapshot string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\nCategory: %s\nDescription: %s\nProblem solved: %s\n\n",
		sub.ProjectName, sub.Category, sub.Description, sub.ProblemSolved)
	if len(redFlags) > 0 {
		fmt.Fprintf(&b, "Automated red flags: %s\n\n", strings.Join(redFlags, "; "))
	}
	fmt.Fprintf(&b, "Repository structure: %s\n", analysis.StructureSummary)
	if len(analysis.SampleHighFiles) > 0 {
		fmt.Fprintf(&b, "Sample high-relevance files: %s\n", strings.Join(analysis.SampleHighFiles, ", "))
	}
	if len(analysis.SampleMediumFiles) > 0 {
		fmt.Fprintf(&b, "Sample medium-relevance files: %s\n", strings.Join(analysis.SampleMediumFiles, ", "))
	}
	if snapshot != "" {
		fmt.Fprintf(&b, "\nRepository snapshot:\n%s\n", snapshot)
	}
	return b.String()
}

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
