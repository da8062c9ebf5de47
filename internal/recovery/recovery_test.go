package recovery

import (
	"testing"

	"github.com/clanktank/judge-engine/pkg/models"
)

func TestCountRoundCountsOnlyMatchingRound(t *testing.T) {
	scores := []models.Score{
		{Judge: models.JudgeAIMarc, Round: models.RoundOne},
		{Judge: models.JudgeAIShaw, Round: models.RoundOne},
		{Judge: models.JudgeSpartan, Round: models.RoundTwo},
	}
	if got := countRound(scores, models.RoundOne); got != 2 {
		t.Errorf("countRound(RoundOne) = %d, want 2", got)
	}
	if got := countRound(scores, models.RoundTwo); got != 1 {
		t.Errorf("countRound(RoundTwo) = %d, want 1", got)
	}
}
