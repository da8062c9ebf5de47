// Package synth implements the Synthesizer (C8): a round-2 comparative
// pass over the full cohort of scored submissions. It computes cohort
// statistics and per-submission community engagement tiers, composes a
// comparative round-2 prompt per (submission, judge), and applies the
// judge's optional score revision before flipping the submission to
// completed. Cohort statistics mirror the teacher's
// internal/heuristics aggregate-scoring shape, generalized from a
// single-pass linear score to a two-pass comparative one.
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/clanktank/judge-engine/internal/audit"
	"github.com/clanktank/judge-engine/internal/llmclient"
	"github.com/clanktank/judge-engine/internal/store"
	"github.com/clanktank/judge-engine/pkg/models"
)

// EngagementTier classifies a submission's community engagement relative
// to the cohort, per §4.8 step 2.
type EngagementTier string

const (
	EngagementHigh   EngagementTier = "high"
	EngagementMedium EngagementTier = "medium"
	EngagementLow    EngagementTier = "low"
)

// absoluteHighThreshold and absoluteLowThreshold are the fallback
// thresholds used when the cohort has one or zero members and no
// median is meaningful.
const (
	absoluteHighThreshold = 5
	absoluteLowThreshold  = 2
)

// CohortStats holds the distribution statistics computed once per
// synthesis run over every scored submission's round-1 total.
type CohortStats struct {
	Mean   float64
	Median float64
	StdDev float64
}

// submissionSummary is the per-submission view the Synthesizer builds
// before composing any prompts: round-1 scores per judge, the mean
// total used for ranking, and engagement context.
type submissionSummary struct {
	Submission    models.Submission
	Round1Scores  []models.Score // one per judge, round=1
	MeanTotal     float64
	Variance      float64
	Rank          int
	Percentile    float64
	VoteCount     int
	UniqueVoters  int
	Tier          EngagementTier
}

// Synthesizer runs the round-2 comparative pass.
type Synthesizer struct {
	store *store.Store
	llm   *llmclient.Client
	audit *audit.Log
}

func New(st *store.Store, llm *llmclient.Client, al *audit.Log) *Synthesizer {
	return &Synthesizer{store: st, llm: llm, audit: al}
}

// Run loads every `scored` submission, computes cohort statistics and
// engagement tiers, then runs round 2 for each submission in turn.
func (s *Synthesizer) Run(ctx context.Context) error {
	subs, err := s.store.ListSubmissions(ctx, store.ListOptions{Statuses: []models.Status{models.StatusScored}})
	if err != nil {
		return fmt.Errorf("synth: failed to list scored submissions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	summaries := make([]*submissionSummary, 0, len(subs))
	for _, sub := range subs {
		scores, err := s.store.LatestScores(ctx, sub.SubmissionID)
		if err != nil {
			return fmt.Errorf("synth: failed to load scores for %s: %w", sub.SubmissionID, err)
		}
		round1 := filterRound(scores, models.RoundOne)
		if len(round1) == 0 {
			continue
		}
		votes, err := s.store.VotesForSubmission(ctx, sub.SubmissionID)
		if err != nil {
			return fmt.Errorf("synth: failed to load votes for %s: %w", sub.SubmissionID, err)
		}
		summaries = append(summaries, &submissionSummary{
			Submission:   sub,
			Round1Scores: round1,
			MeanTotal:    meanWeightedTotal(round1),
			Variance:     varianceWeightedTotal(round1),
			VoteCount:    len(votes),
			UniqueVoters: uniqueSenders(votes),
		})
	}

	stats := computeCohortStats(summaries)
	assignRanksAndTiers(summaries, stats)

	for _, sum := range summaries {
		if err := s.runOne(ctx, sum, summaries, stats); err != nil {
			return fmt.Errorf("synth: round 2 failed for %s: %w", sum.Submission.SubmissionID, err)
		}
	}
	return nil
}

func filterRound(scores []models.Score, round models.Round) []models.Score {
	var out []models.Score
	for _, sc := range scores {
		if sc.Round == round {
			out = append(out, sc)
		}
	}
	return out
}

func meanWeightedTotal(scores []models.Score) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, sc := range scores {
		sum += sc.WeightedTotal
	}
	return sum / float64(len(scores))
}

func varianceWeightedTotal(scores []models.Score) float64 {
	if len(scores) < 2 {
		return 0
	}
	mean := meanWeightedTotal(scores)
	var sumSq float64
	for _, sc := range scores {
		d := sc.WeightedTotal - mean
		sumSq += d * d
	}
	return sumSq / float64(len(scores))
}

func uniqueSenders(votes []models.Vote) int {
	seen := make(map[string]struct{}, len(votes))
	for _, v := range votes {
		seen[v.SenderAddress] = struct{}{}
	}
	return len(seen)
}

// computeCohortStats computes mean, median, and population std-dev of
// each submission's MeanTotal across the cohort.
func computeCohortStats(summaries []*submissionSummary) CohortStats {
	if len(summaries) == 0 {
		return CohortStats{}
	}
	totals := make([]float64, len(summaries))
	for i, sum := range summaries {
		totals[i] = sum.MeanTotal
	}
	sort.Float64s(totals)

	var sum float64
	for _, t := range totals {
		sum += t
	}
	mean := sum / float64(len(totals))

	median := totals[len(totals)/2]
	if len(totals)%2 == 0 {
		median = (totals[len(totals)/2-1] + totals[len(totals)/2]) / 2
	}

	var sumSq float64
	for _, t := range totals {
		d := t - mean
		sumSq += d * d
	}
	stddev := math.Sqrt(sumSq / float64(len(totals)))

	return CohortStats{Mean: mean, Median: median, StdDev: stddev}
}

// assignRanksAndTiers ranks submissions by MeanTotal (descending, 1 =
// best) and sets each submission's engagement tier per §4.8 step 2.
func assignRanksAndTiers(summaries []*submissionSummary, stats CohortStats) {
	ranked := make([]*submissionSummary, len(summaries))
	copy(ranked, summaries)
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].MeanTotal > ranked[j].MeanTotal })
	for i, sum := range ranked {
		sum.Rank = i + 1
		if len(ranked) > 1 {
			sum.Percentile = 100 * float64(len(ranked)-i-1) / float64(len(ranked)-1)
		} else {
			sum.Percentile = 100
		}
	}

	engagementValues := make([]float64, len(summaries))
	for i, sum := range summaries {
		engagementValues[i] = float64(sum.VoteCount)
	}
	for _, sum := range summaries {
		sum.Tier = engagementTier(float64(sum.VoteCount), engagementValues)
	}
}

// engagementTier implements §4.8 step 2: tiers are relative to the
// median of the cohort's engagement counts (high = above
// median+0.5*median, medium = above median, low = below), falling back
// to absolute thresholds when the cohort has one or zero members and a
// median isn't meaningful.
func engagementTier(engagement float64, cohort []float64) EngagementTier {
	if len(cohort) <= 1 {
		switch {
		case engagement > absoluteHighThreshold:
			return EngagementHigh
		case engagement > absoluteLowThreshold:
			return EngagementMedium
		default:
			return EngagementLow
		}
	}

	sorted := append([]float64(nil), cohort...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}
	high := median + 0.5*median
	switch {
	case engagement > high:
		return EngagementHigh
	case engagement > median:
		return EngagementMedium
	default:
		return EngagementLow
	}
}

// round2Response is the required JSON shape for a round-2 judge reply,
// per §4.8 step 3.
type round2Response struct {
	FinalVerdict      string         `json:"final_verdict"`
	ScoreRevision     scoreRevision  `json:"score_revision"`
	Reasoning         string         `json:"reasoning"`
	CommunityInfluence string        `json:"community_influence"`
	Confidence        string         `json:"confidence"`
}

type scoreRevision struct {
	Type       string   `json:"type"` // none|adjustment|explicit
	NewScore   *float64 `json:"new_score,omitempty"`
	Adjustment *float64 `json:"adjustment,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// applyRevision implements §4.8 step 4.
func applyRevision(round1Total float64, rev scoreRevision) float64 {
	switch rev.Type {
	case "adjustment":
		if rev.Adjustment == nil {
			return round1Total
		}
		return clamp40(round1Total + *rev.Adjustment)
	case "explicit":
		if rev.NewScore == nil || *rev.NewScore < 0 || *rev.NewScore > models.MaxWeightedTotal {
			return round1Total
		}
		return *rev.NewScore
	default:
		return round1Total
	}
}

func clamp40(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > models.MaxWeightedTotal {
		return models.MaxWeightedTotal
	}
	return v
}

func (s *Synthesizer) runOne(ctx context.Context, sum *submissionSummary, all []*submissionSummary, stats CohortStats) error {
	for _, r1 := range sum.Round1Scores {
		prompt := composeRound2Prompt(sum, r1, all, stats)
		raw, err := s.llm.Complete(ctx, judgePersonaOrDefault(r1.Judge), prompt)
		if err != nil {
			return err
		}

		var resp round2Response
		if err := json.Unmarshal(extractJSON(raw), &resp); err != nil {
			resp = round2Response{FinalVerdict: raw, ScoreRevision: scoreRevision{Type: "none"}, Confidence: "low"}
		}

		finalScore := applyRevision(r1.WeightedTotal, resp.ScoreRevision)

		sc := models.Score{
			SubmissionID:  sum.Submission.SubmissionID,
			Judge:         r1.Judge,
			Round:         models.RoundTwo,
			Axes:          r1.Axes,
			WeightedTotal: finalScore,
			Notes: models.ScoreNotes{
				Reasons:        r1.Notes.Reasons,
				OverallComment: resp.Reasoning,
				FinalVerdict:   resp.FinalVerdict,
				RawResponse:    raw,
			},
			FinalVerdict: resp.FinalVerdict,
			CreatedAt:    r1.CreatedAt,
		}
		if err := s.store.InsertScore(ctx, sc); err != nil {
			return err
		}
	}

	ok, err := s.store.AdvanceStatus(ctx, sum.Submission.SchemaVersion, sum.Submission.SubmissionID, models.StatusScored, models.StatusCompleted)
	if err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.Entry(ctx, "submission_completed", sum.Submission.SubmissionID, "", fmt.Sprintf("advanced=%v rank=%d", ok, sum.Rank))
	}
	return nil
}

// judgePersonaOrDefault keeps round 2 in the same persona voice as
// round 1; synth deliberately does not import internal/judging's
// persona map to avoid a package cycle (judging never needs synth), so
// it carries its own minimal voice tag instead of the full persona text
// — round 2 prompts are short comparative nudges, not full rubric
// re-evaluations.
func judgePersonaOrDefault(judge models.JudgeName) string {
	return fmt.Sprintf("You are the judge %q, continuing your evaluation from round one in the same voice and opinions you held then.", judge)
}

func composeRound2Prompt(sum *submissionSummary, r1 models.Score, all []*submissionSummary, stats CohortStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\nCategory: %s\n\n", sum.Submission.ProjectName, sum.Submission.Category)
	fmt.Fprintf(&b, "Your round-1 comment: %s\nYour round-1 score: %.1f/%.0f\n\n", r1.Notes.OverallComment, r1.WeightedTotal, models.MaxWeightedTotal)
	fmt.Fprintf(&b, "Community engagement: %d votes from %d unique wallets (tier: %s). This is context only, never a mechanical bonus.\n\n", sum.VoteCount, sum.UniqueVoters, sum.Tier)
	fmt.Fprintf(&b, "Cohort standing: rank %d of %d, %.0fth percentile, cohort mean %.1f, median %.1f.\n", sum.Rank, len(all), sum.Percentile, stats.Mean, stats.Median)

	if gap := pointsGapToNextRank(sum, all); gap != nil {
		fmt.Fprintf(&b, "Points behind the next-ranked submission: %.1f\n", *gap)
	}
	if shared := sharedNotes(sum, all); shared != "" {
		fmt.Fprintf(&b, "Themes echoed in other submissions' notes: %s\n", shared)
	}

	b.WriteString("\nGiven this comparative context, respond with JSON:\n")
	b.WriteString(`{"final_verdict": "2-3 sentences in your voice", "score_revision": {"type": "none|adjustment|explicit", "new_score": <0-40 optional>, "adjustment": <delta optional>, "reason": "..."}, "reasoning": "...", "community_influence": "none|minimal|moderate|significant|unknown", "confidence": "low|medium|high"}` + "\n")
	return b.String()
}

// pointsGapToNextRank returns the weighted_total gap to the
// next-higher-ranked submission, or nil if sum is already rank 1.
func pointsGapToNextRank(sum *submissionSummary, all []*submissionSummary) *float64 {
	if sum.Rank <= 1 {
		return nil
	}
	for _, other := range all {
		if other.Rank == sum.Rank-1 {
			gap := other.MeanTotal - sum.MeanTotal
			return &gap
		}
	}
	return nil
}

// sharedNotes mines other submissions' round-1 overall comments for
// word overlap with this submission's own comments, as a cheap proxy
// for "shared criticisms/strengths" without a second LLM round.
func sharedNotes(sum *submissionSummary, all []*submissionSummary) string {
	own := make(map[string]struct{})
	for _, sc := range sum.Round1Scores {
		for _, word := range strings.Fields(strings.ToLower(sc.Notes.OverallComment)) {
			if len(word) > 5 {
				own[word] = struct{}{}
			}
		}
	}
	counts := make(map[string]int)
	for _, other := range all {
		if other.Submission.SubmissionID == sum.Submission.SubmissionID {
			continue
		}
		seenInThis := make(map[string]bool)
		for _, sc := range other.Round1Scores {
			for _, word := range strings.Fields(strings.ToLower(sc.Notes.OverallComment)) {
				if _, ok := own[word]; ok && !seenInThis[word] {
					counts[word]++
					seenInThis[word] = true
				}
			}
		}
	}
	var shared []string
	for word, n := range counts {
		if n >= 2 {
			shared = append(shared, word)
		}
	}
	sort.Strings(shared)
	if len(shared) > 5 {
		shared = shared[:5]
	}
	return strings.Join(shared, ", ")
}

// extractJSON pulls a fenced ```json ... ``` block out of raw LLM text,
// falling back to the raw bytes when no fence is present.
func extractJSON(raw string) []byte {
	const fence = "```"
	start := strings.Index(raw, fence+"json")
	if start == -1 {
		start = strings.Index(raw, fence)
	}
	if start == -1 {
		return []byte(raw)
	}
	rest := raw[start:]
	rest = strings.TrimPrefix(rest, fence+"json")
	rest = strings.TrimPrefix(rest, fence)
	end := strings.Index(rest, fence)
	if end == -1 {
		return []byte(strings.TrimSpace(rest))
	}
	return []byte(strings.TrimSpace(rest[:end]))
}
