package synth

import (
	"testing"

	"github.com/clanktank/judge-engine/pkg/models"
)

func TestComputeCohortStatsMeanMedianStdDev(t *testing.T) {
	summaries := []*submissionSummary{
		{MeanTotal: 10},
		{MeanTotal: 20},
		{MeanTotal: 30},
	}
	stats := computeCohortStats(summaries)
	if stats.Mean != 20 {
		t.Errorf("mean = %v, want 20", stats.Mean)
	}
	if stats.Median != 20 {
		t.Errorf("median = %v, want 20", stats.Median)
	}
	if stats.StdDev <= 0 {
		t.Error("expected nonzero stddev for a spread cohort")
	}
}

func TestComputeCohortStatsEmptyCohort(t *testing.T) {
	stats := computeCohortStats(nil)
	if stats.Mean != 0 || stats.Median != 0 || stats.StdDev != 0 {
		t.Errorf("expected zero stats for empty cohort, got %+v", stats)
	}
}

func TestAssignRanksAndTiersOrdersDescending(t *testing.T) {
	summaries := []*submissionSummary{
		{Submission: models.Submission{SubmissionID: "low"}, MeanTotal: 5},
		{Submission: models.Submission{SubmissionID: "high"}, MeanTotal: 35},
	}
	assignRanksAndTiers(summaries, CohortStats{})
	for _, sum := range summaries {
		if sum.Submission.SubmissionID == "high" && sum.Rank != 1 {
			t.Errorf("highest score should be rank 1, got %d", sum.Rank)
		}
		if sum.Submission.SubmissionID == "low" && sum.Rank != 2 {
			t.Errorf("lowest score should be rank 2, got %d", sum.Rank)
		}
	}
}

func TestEngagementTierSmallCohortUsesAbsoluteThresholds(t *testing.T) {
	if got := engagementTier(6, []float64{6}); got != EngagementHigh {
		t.Errorf("single-member cohort at 6 votes = %v, want high (> %d)", got, absoluteHighThreshold)
	}
	if got := engagementTier(1, []float64{1}); got != EngagementLow {
		t.Errorf("single-member cohort at 1 vote = %v, want low", got)
	}
}

func TestEngagementTierDistributionRelative(t *testing.T) {
	cohort := []float64{2, 4, 6, 8, 10} // median = 6, high cutoff = 9
	if got := engagementTier(10, cohort); got != EngagementHigh {
		t.Errorf("10 votes against median 6 = %v, want high", got)
	}
	if got := engagementTier(7, cohort); got != EngagementMedium {
		t.Errorf("7 votes against median 6 = %v, want medium", got)
	}
	if got := engagementTier(2, cohort); got != EngagementLow {
		t.Errorf("2 votes against median 6 = %v, want low", got)
	}
}

func TestApplyRevisionNoneKeepsRound1(t *testing.T) {
	got := applyRevision(28.5, scoreRevision{Type: "none"})
	if got != 28.5 {
		t.Errorf("applyRevision(none) = %v, want unchanged 28.5", got)
	}
}

func TestApplyRevisionAdjustmentClamps(t *testing.T) {
	adj := 50.0
	got := applyRevision(30, scoreRevision{Type: "adjustment", Adjustment: &adj})
	if got != models.MaxWeightedTotal {
		t.Errorf("applyRevision(adjustment overshoot) = %v, want clamped to %v", got, models.MaxWeightedTotal)
	}
}

func TestApplyRevisionAdjustmentNegativeClamps(t *testing.T) {
	adj := -100.0
	got := applyRevision(30, scoreRevision{Type: "adjustment", Adjustment: &adj})
	if got != 0 {
		t.Errorf("applyRevision(adjustment undershoot) = %v, want 0", got)
	}
}

func TestApplyRevisionExplicitInRangeIsUsed(t *testing.T) {
	newScore := 22.0
	got := applyRevision(30, scoreRevision{Type: "explicit", NewScore: &newScore})
	if got != 22 {
		t.Errorf("applyRevision(explicit) = %v, want 22", got)
	}
}

func TestApplyRevisionExplicitOutOfRangeKeepsRound1(t *testing.T) {
	newScore := 99.0
	got := applyRevision(30, scoreRevision{Type: "explicit", NewScore: &newScore})
	if got != 30 {
		t.Errorf("applyRevision(explicit out of range) = %v, want round1 kept (30)", got)
	}
}

func TestPointsGapToNextRankTopRankIsNil(t *testing.T) {
	sum := &submissionSummary{Rank: 1}
	if gap := pointsGapToNextRank(sum, []*submissionSummary{sum}); gap != nil {
		t.Errorf("expected nil gap for rank 1, got %v", *gap)
	}
}

func TestPointsGapToNextRankComputesDelta(t *testing.T) {
	higher := &submissionSummary{Rank: 1, MeanTotal: 30}
	lower := &submissionSummary{Rank: 2, MeanTotal: 20}
	gap := pointsGapToNextRank(lower, []*submissionSummary{higher, lower})
	if gap == nil || *gap != 10 {
		t.Errorf("expected gap 10, got %v", gap)
	}
}

func TestExtractJSONFencedBlock(t *testing.T) {
	raw := "```json\n{\"final_verdict\":\"ok\"}\n```"
	if got := string(extractJSON(raw)); got != `{"final_verdict":"ok"}` {
		t.Errorf("extractJSON = %q", got)
	}
}
