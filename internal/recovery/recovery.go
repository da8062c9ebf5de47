// Package recovery implements the recovery tool supplemented from
// original_source/scripts/recovery_tool.py: it scans the Store for rows
// that violate the pipeline's append-only/forward-only invariants —
// submissions stuck at a stage whose terminal artifact already exists —
// and reports them. With repair enabled it re-flips a stuck status
// forward rather than re-running the stage, mirroring the original
// script's "don't redo work that already happened" posture.
package recovery

import (
	"context"
	"fmt"

	"github.com/clanktank/judge-engine/internal/store"
	"github.com/clanktank/judge-engine/pkg/models"
)

// Anomaly describes one submission whose stored state does not match
// what its terminal artifacts imply.
type Anomaly struct {
	SubmissionID string
	Status       models.Status
	Problem      string
	Repaired     bool
}

// Scan walks every submission and flags stuck-stage anomalies. With
// repair=true, an anomaly whose terminal artifact already exists (full
// research row, all four round-1 scores) is advanced forward instead of
// merely reported.
func Scan(ctx context.Context, st *store.Store, repair bool) ([]Anomaly, error) {
	subs, err := st.ListSubmissions(ctx, store.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("recovery: failed to list submissions: %w", err)
	}

	var anomalies []Anomaly
	for _, sub := range subs {
		switch sub.Status {
		case models.StatusSubmitted:
			research, err := st.GetResearch(ctx, sub.SubmissionID)
			if err != nil || research == nil {
				continue
			}
			a := Anomaly{SubmissionID: sub.SubmissionID, Status: sub.Status, Problem: "research exists but status was never advanced past submitted"}
			if repair {
				ok, err := st.AdvanceStatus(ctx, sub.SchemaVersion, sub.SubmissionID, models.StatusSubmitted, models.StatusResearched)
				a.Repaired = err == nil && ok
			}
			anomalies = append(anomalies, a)

		case models.StatusResearched:
			scores, err := st.LatestScores(ctx, sub.SubmissionID)
			if err != nil {
				continue
			}
			if countRound(scores, models.RoundOne) < len(models.AllJudges) {
				continue
			}
			a := Anomaly{SubmissionID: sub.SubmissionID, Status: sub.Status, Problem: "all four round-1 scores exist but status was never advanced past researched"}
			if repair {
				ok, err := st.AdvanceStatus(ctx, sub.SchemaVersion, sub.SubmissionID, models.StatusResearched, models.StatusScored)
				a.Repaired = err == nil && ok
			}
			anomalies = append(anomalies, a)

		case models.StatusScored:
			research, err := st.GetResearch(ctx, sub.SubmissionID)
			if err != nil || research == nil {
				anomalies = append(anomalies, Anomaly{SubmissionID: sub.SubmissionID, Status: sub.Status, Problem: "scored with no research row — orphaned scores"})
				continue
			}
			scores, err := st.LatestScores(ctx, sub.SubmissionID)
			if err != nil || countRound(scores, models.RoundOne) < len(models.AllJudges) {
				anomalies = append(anomalies, Anomaly{SubmissionID: sub.SubmissionID, Status: sub.Status, Problem: "scored with fewer than four round-1 scores"})
			}
		}
	}
	return anomalies, nil
}

func countRound(scores []models.Score, round models.Round) int {
	n := 0
	for _, sc := range scores {
		if sc.Round == round {
			n++
		}
	}
	return n
}
