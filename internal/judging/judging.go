// Package judging implements the Judging Engine (C7): four persona-keyed
// judges each score a researched submission against a fixed rubric,
// weighted by a per-judge axis weight table, producing a round-1 Score
// row. Parsing follows a tagged-sum/state-machine shape over the LLM's
// regex-delimited response template — a generalization of the teacher's
// internal/heuristics linear weighted-combination pattern to a textual,
// rather than numeric, per-axis input.
package judging

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clanktank/judge-engine/internal/audit"
	"github.com/clanktank/judge-engine/internal/llmclient"
	"github.com/clanktank/judge-engine/internal/store"
	"github.com/clanktank/judge-engine/pkg/models"
)

// interCallDelay rate-limits consecutive LLM calls within a judging run,
// per §4.7's "rate-limit LLM calls with a per-request inter-call delay."
const interCallDelay = 2 * time.Second

// Engine runs the four-judge scoring pass for researched submissions.
type Engine struct {
	store *store.Store
	llm   *llmclient.Client
	audit *audit.Log
	// Renormalize enables the optional round-1 normalization described
	// in §4.7: when true, each judge's axis scores are scaled to a
	// target mean of 6 before weighting. Disabled by default; the Store
	// always persists the pre-normalization axis values regardless.
	Renormalize bool
}

func New(st *store.Store, llm *llmclient.Client, al *audit.Log) *Engine {
	return &Engine{store: st, llm: llm, audit: al}
}

// Run loads one submission's research and runs all four judges against
// it, persisting each judge's round-1 Score and, once all four have
// completed, advancing the submission to scored. Per §4.7, a judge
// failure does not leave the submission partially advanced: whatever
// scores were inserted before the failure stay (a retry re-inserts
// fresh rows rather than relying on partial state), but status only
// moves forward once every judge succeeds.
func (e *Engine) Run(ctx context.Context, version models.SchemaVersion, submissionID string) error {
	sub, err := e.store.GetSubmission(ctx, version, submissionID)
	if err != nil {
		return fmt.Errorf("judging: failed to load submission %s: %w", submissionID, err)
	}
	research, err := e.store.GetResearch(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("judging: failed to load research for %s: %w", submissionID, err)
	}

	scores, err := e.ScoreSubmission(ctx, *sub, *research, research.GithubAnalysis.RedFlags)
	for _, sc := range scores {
		if insErr := e.store.InsertScore(ctx, sc); insErr != nil {
			return fmt.Errorf("judging: failed to persist %s score for %s: %w", sc.Judge, submissionID, insErr)
		}
	}
	if err != nil {
		return err
	}

	ok, err := e.store.AdvanceStatus(ctx, version, submissionID, models.StatusResearched, models.StatusScored)
	if err != nil {
		return fmt.Errorf("judging: failed to advance status for %s: %w", submissionID, err)
	}
	if e.audit != nil {
		e.audit.Entry(ctx, "submission_scored", submissionID, "", fmt.Sprintf("advanced=%v judges=%d", ok, len(scores)))
	}
	return nil
}

// ScoreSubmission runs all four judges in the fixed order (aimarc,
// aishaw, spartan, peepo) against one submission's research context and
// returns one Score per judge. It does not persist — callers insert each
// Score via the Store and advance status once all four have run.
func (e *Engine) ScoreSubmission(ctx context.Context, sub models.Submission, research models.Research, redFlags []string) ([]models.Score, error) {
	scores := make([]models.Score, 0, len(models.AllJudges))
	for i, judge := range models.AllJudges {
		if i > 0 {
			select {
			case <-ctx.Done():
				return scores, ctx.Err()
			case <-time.After(interCallDelay):
			}
		}
		score, err := e.scoreOne(ctx, judge, sub, research, redFlags)
		if err != nil {
			return scores, fmt.Errorf("judging: judge %s failed for submission %s: %w", judge, sub.SubmissionID, err)
		}
		scores = append(scores, score)
	}
	return scores, nil
}

func (e *Engine) scoreOne(ctx context.Context, judge models.JudgeName, sub models.Submission, research models.Research, redFlags []string) (models.Score, error) {
	prompt := composePrompt(judge, sub, research, redFlags)
	raw, err := e.llm.Complete(ctx, personas[judge], prompt)
	if err != nil {
		return models.Score{}, err
	}

	axes, reasons, overall, warnings := parseResponse(raw)
	weightAxes := axes
	if e.Renormalize {
		weightAxes = renormalize(axes)
	}

	weighted := WeightedTotal(judge, weightAxes)

	return models.Score{
		SubmissionID:  sub.SubmissionID,
		Judge:         judge,
		Round:         models.RoundOne,
		Axes:          axes,
		WeightedTotal: weighted,
		Notes: models.ScoreNotes{
			Reasons:        reasons,
			OverallComment: overall,
			Warnings:       warnings,
			RawResponse:    raw,
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}

// WeightedTotal computes Σ axis_score × weight[judge][axis]. Not clamped
// to models.MaxWeightedTotal; that constant bounds the Synthesizer's
// round-2 revisions, not round-1 totals.
func WeightedTotal(judge models.JudgeName, axes models.AxisScores) float64 {
	var total float64
	for axis, weight := range weights[judge] {
		total += float64(axes[axis]) * weight
	}
	return total
}

// clamp bounds a parsed axis score to [0,10].
func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

var tagPattern = regexp.MustCompile(`(?m)^([A-Z_]+):\s*`)

// extractTags splits raw LLM text into an ordered map of TAG -> value,
// where value is everything between this tag and the next recognized
// tag (or end of string). This tolerates judges that reorder axes or
// add stray commentary between tags, which a fixed-position parser
// would not.
func extractTags(raw string) map[string]string {
	matches := tagPattern.FindAllStringSubmatchIndex(raw, -1)
	out := make(map[string]string, len(matches))
	for i, m := range matches {
		tagStart, tagEnd := m[2], m[3]
		valueStart := m[1]
		valueEnd := len(raw)
		if i+1 < len(matches) {
			valueEnd = matches[i+1][0]
		}
		tag := raw[tagStart:tagEnd]
		out[tag] = strings.TrimSpace(raw[valueStart:valueEnd])
	}
	return out
}

func axisTagBase(axis models.Axis) string {
	return strings.ToUpper(string(axis))
}

// parseResponse implements §4.7 steps 2-3: extract the regex-delimited
// template, clamp scores, and default missing/unparseable axes to 5
// with a recorded warning.
func parseResponse(raw string) (models.AxisScores, models.AxisReasons, string, []string) {
	tags := extractTags(raw)
	axes := make(models.AxisScores, len(models.AllAxes))
	reasons := make(models.AxisReasons, len(models.AllAxes))
	var warnings []string

	for _, axis := range models.AllAxes {
		base := axisTagBase(axis)
		scoreRaw, hasScore := tags[base+"_SCORE"]
		if !hasScore {
			axes[axis] = 5
			warnings = append(warnings, fmt.Sprintf("missing %s_SCORE, defaulted to 5", base))
		} else if n, err := strconv.Atoi(strings.TrimSpace(scoreRaw)); err != nil {
			axes[axis] = 5
			warnings = append(warnings, fmt.Sprintf("unparseable %s_SCORE %q, defaulted to 5", base, scoreRaw))
		} else {
			axes[axis] = clamp(n)
		}

		if reason, ok := tags[base+"_REASON"]; ok {
			reasons[axis] = reason
		} else {
			warnings = append(warnings, fmt.Sprintf("missing %s_REASON", base))
		}
	}

	overall := tags["OVERALL_COMMENT"]
	return axes, reasons, overall, warnings
}

// renormalize scales a judge's axis scores so their mean is 6, per the
// optional round-1 renormalization parameter. Scaling is proportional
// (each score multiplied by 6/mean) then clamped back to [0,10].
func renormalize(axes models.AxisScores) models.AxisScores {
	if len(axes) == 0 {
		return axes
	}
	var sum float64
	for _, v := range axes {
		sum += float64(v)
	}
	mean := sum / float64(len(axes))
	if mean == 0 {
		return axes
	}
	scale := 6.0 / mean
	out := make(models.AxisScores, len(axes))
	for axis, v := range axes {
		out[axis] = clamp(int(float64(v)*scale + 0.5))
	}
	return out
}

func composePrompt(judge models.JudgeName, sub models.Submission, research models.Research, redFlags []string) string {
	var b strings.Builder
	b.WriteString(scaleAnchors)
	b.WriteString("\n\nRubric axes:\n")
	for _, axis := range models.AllAxes {
		fmt.Fprintf(&b, "- %s\n", scoringCriteria[axis])
	}
	fmt.Fprintf(&b, "\nProject: %s\nCategory: %s\nDescription: %s\n", sub.ProjectName, sub.Category, sub.Description)
	if len(redFlags) > 0 {
		fmt.Fprintf(&b, "Automated red flags: %s\n", strings.Join(redFlags, "; "))
	}
	if research.TechnicalAssessment.RawResponse == "" {
		for _, f := range research.TechnicalAssessment.Facts {
			fmt.Fprintf(&b, "%s: %s\n", f.Key, f.Value)
		}
		for _, f := range research.MarketResearch.Facts {
			fmt.Fprintf(&b, "%s: %s\n", f.Key, f.Value)
		}
	}
	b.WriteString("\nRespond using exactly this template, one axis at a time:\n")
	for _, axis := range models.AllAxes {
		base := axisTagBase(axis)
		fmt.Fprintf(&b, "%s_SCORE: <0-10>\n%s_REASON: <reasoning citing at least one weakness>\n", base, base)
	}
	b.WriteString("OVERALL_COMMENT: <2-3 sentence overall verdict in your voice>\n")
	return b.String()
}
