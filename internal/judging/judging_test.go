package judging

import (
	"strings"
	"testing"

	"github.com/clanktank/judge-engine/pkg/models"
)

func TestWeightTableSumsMatchSourcePersonas(t *testing.T) {
	// Each judge's four weights sum to the per-persona total of the
	// original weight table (4.5, 4.5, 4.1, 4.2) — a boundary any drift
	// in the table would silently violate.
	wantSums := map[models.JudgeName]float64{
		models.JudgeAIMarc:  4.5,
		models.JudgeAIShaw:  4.5,
		models.JudgeSpartan: 4.1,
		models.JudgePeepo:   4.2,
	}
	for judge, w := range weights {
		var sum float64
		for _, v := range w {
			sum += v
		}
		want := wantSums[judge]
		if sum < want-0.01 || sum > want+0.01 {
			t.Errorf("judge %s weight sum = %v, want ~%v", judge, sum, want)
		}
	}
}

func TestWeightedTotalMaxCeiling(t *testing.T) {
	maxAxes := models.AxisScores{
		models.AxisInnovation:         10,
		models.AxisTechnicalExecution: 10,
		models.AxisMarketPotential:    10,
		models.AxisUserExperience:     10,
	}
	for _, judge := range models.AllJudges {
		total := WeightedTotal(judge, maxAxes)
		if total > 45.01 {
			t.Errorf("judge %s weighted total at max axes = %v, expected <= 45 (4.5 weight sum * 10)", judge, total)
		}
	}
}

func TestClampBounds(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{-5, 0}, {0, 0}, {5, 5}, {10, 10}, {15, 10},
	}
	for _, c := range cases {
		if got := clamp(c.in); got != c.want {
			t.Errorf("clamp(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestExtractTagsOrderIndependent(t *testing.T) {
	raw := "OVERALL_COMMENT: Solid entry.\nINNOVATION_REASON: strong idea but thin tests\nINNOVATION_SCORE: 8\n"
	tags := extractTags(raw)
	if tags["INNOVATION_SCORE"] != "8" {
		t.Errorf("INNOVATION_SCORE = %q", tags["INNOVATION_SCORE"])
	}
	if tags["OVERALL_COMMENT"] != "Solid entry." {
		t.Errorf("OVERALL_COMMENT = %q", tags["OVERALL_COMMENT"])
	}
}

func TestParseResponseWellFormed(t *testing.T) {
	raw := `INNOVATION_SCORE: 9
INNOVATION_REASON: novel but derivative in places
TECHNICAL_EXECUTION_SCORE: 7
TECHNICAL_EXECUTION_REASON: clean but lacks tests
MARKET_POTENTIAL_SCORE: 6
MARKET_POTENTIAL_REASON: niche audience
USER_EXPERIENCE_SCORE: 8
USER_EXPERIENCE_REASON: polished demo, rough onboarding
OVERALL_COMMENT: A strong contender with room to grow.
`
	axes, reasons, overall, warnings := parseResponse(raw)
	if axes[models.AxisInnovation] != 9 {
		t.Errorf("innovation score = %d", axes[models.AxisInnovation])
	}
	if reasons[models.AxisTechnicalExecution] == "" {
		t.Error("expected a technical_execution reason")
	}
	if overall != "A strong contender with room to grow." {
		t.Errorf("overall = %q", overall)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings for a well-formed response, got %v", warnings)
	}
}

func TestParseResponseMissingAxisDefaultsAndWarns(t *testing.T) {
	raw := `INNOVATION_SCORE: 9
INNOVATION_REASON: good
OVERALL_COMMENT: short
`
	axes, _, _, warnings := parseResponse(raw)
	if axes[models.AxisTechnicalExecution] != 5 {
		t.Errorf("missing axis should default to 5, got %d", axes[models.AxisTechnicalExecution])
	}
	if len(warnings) == 0 {
		t.Error("expected warnings for missing axes")
	}
}

func TestParseResponseUnparseableScoreDefaultsAndWarns(t *testing.T) {
	raw := `INNOVATION_SCORE: great
INNOVATION_REASON: good
TECHNICAL_EXECUTION_SCORE: 7
TECHNICAL_EXECUTION_REASON: ok
MARKET_POTENTIAL_SCORE: 5
MARKET_POTENTIAL_REASON: ok
USER_EXPERIENCE_SCORE: 5
USER_EXPERIENCE_REASON: ok
OVERALL_COMMENT: x
`
	axes, _, _, warnings := parseResponse(raw)
	if axes[models.AxisInnovation] != 5 {
		t.Errorf("unparseable score should default to 5, got %d", axes[models.AxisInnovation])
	}
	found := false
	for _, w := range warnings {
		if w != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected at least one warning")
	}
}

func TestParseResponseScoreOutOfRangeIsClamped(t *testing.T) {
	raw := `INNOVATION_SCORE: 99
INNOVATION_REASON: wildly overconfident
`
	axes, _, _, _ := parseResponse(raw)
	if axes[models.AxisInnovation] != 10 {
		t.Errorf("out-of-range score should clamp to 10, got %d", axes[models.AxisInnovation])
	}
}

func TestRenormalizeTargetsMeanSix(t *testing.T) {
	axes := models.AxisScores{
		models.AxisInnovation:         10,
		models.AxisTechnicalExecution: 10,
		models.AxisMarketPotential:    10,
		models.AxisUserExperience:     10,
	}
	out := renormalize(axes)
	var sum float64
	for _, v := range out {
		sum += float64(v)
	}
	mean := sum / float64(len(out))
	if mean < 5.5 || mean > 6.5 {
		t.Errorf("renormalized mean = %v, want ~6", mean)
	}
}

func TestRenormalizeLeavesLowScoresBelowCeiling(t *testing.T) {
	axes := models.AxisScores{
		models.AxisInnovation:         2,
		models.AxisTechnicalExecution: 2,
		models.AxisMarketPotential:    2,
		models.AxisUserExperience:     2,
	}
	out := renormalize(axes)
	for axis, v := range out {
		if v < 0 || v > 10 {
			t.Errorf("axis %s renormalized out of range: %d", axis, v)
		}
	}
}

func TestComposePromptIncludesPersonaDirective(t *testing.T) {
	sub := models.Submission{ProjectName: "Astra", Description: "A protocol"}
	prompt := composePrompt(models.JudgeAIMarc, sub, models.Research{}, []string{"stale repo"})
	for _, want := range []string{"Astra", "stale repo", "INNOVATION_SCORE"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing expected content %q", want)
		}
	}
}
