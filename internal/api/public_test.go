package api

import (
	"testing"

	"github.com/clanktank/judge-engine/pkg/models"
)

func TestLeaderboardStatusesExcludesPrePipelineSubmissions(t *testing.T) {
	want := map[models.Status]bool{
		models.StatusScored:    true,
		models.StatusCompleted: true,
		models.StatusPublished: true,
	}
	if len(leaderboardStatuses) != len(want) {
		t.Fatalf("leaderboardStatuses has %d entries, want %d", len(leaderboardStatuses), len(want))
	}
	for _, s := range leaderboardStatuses {
		if !want[s] {
			t.Errorf("leaderboardStatuses contains unexpected status %q", s)
		}
	}
	excluded := []models.Status{models.StatusSubmitted, models.StatusResearched}
	for _, s := range excluded {
		for _, got := range leaderboardStatuses {
			if got == s {
				t.Errorf("leaderboardStatuses should not include %q", s)
			}
		}
	}
}
