package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/clanktank/judge-engine/pkg/models"
)

// InsertScore appends a new (submission, judge, round) score row. Scores
// are never updated in place — a re-score is a new row, and readers
// always resolve to the latest CreatedAt per key (see LatestScores).
func (s *Store) InsertScore(ctx context.Context, sc models.Score) error {
	axes, err := json.Marshal(sc.Axes)
	if err != nil {
		return fmt.Errorf("store: failed to marshal axes: %w", err)
	}
	notes, err := json.Marshal(sc.Notes)
	if err != nil {
		return fmt.Errorf("store: failed to marshal notes: %w", err)
	}
	const sql = `
		INSERT INTO scores (submission_id, judge, round, axes, weighted_total, notes, community_bonus, final_verdict, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
	`
	_, err = s.pool.Exec(ctx, sql, sc.SubmissionID, string(sc.Judge), int(sc.Round), axes, sc.WeightedTotal,
		notes, sc.CommunityBonus, sc.FinalVerdict, sc.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: failed to insert score: %w", err)
	}
	return nil
}

func scanScore(row pgx.Row) (*models.Score, error) {
	var sc models.Score
	var judge string
	var round int
	var axes, notes []byte
	var finalVerdict *string
	err := row.Scan(&sc.SubmissionID, &judge, &round, &axes, &sc.WeightedTotal, &notes,
		&sc.CommunityBonus, &finalVerdict, &sc.CreatedAt)
	if err != nil {
		return nil, err
	}
	sc.Judge = models.JudgeName(judge)
	sc.Round = models.Round(round)
	if finalVerdict != nil {
		sc.FinalVerdict = *finalVerdict
	}
	if err := json.Unmarshal(axes, &sc.Axes); err != nil {
		return nil, fmt.Errorf("store: failed to unmarshal axes: %w", err)
	}
	if err := json.Unmarshal(notes, &sc.Notes); err != nil {
		return nil, fmt.Errorf("store: failed to unmarshal notes: %w", err)
	}
	return &sc, nil
}

const scoreColumns = `submission_id, judge, round, axes, weighted_total, notes, community_bonus, final_verdict, created_at`

// LatestScores returns the most recent row per (judge, round) for a
// submission — the canonical scorecard a reader should see.
func (s *Store) LatestScores(ctx context.Context, submissionID string) ([]models.Score, error) {
	sql := fmt.Sprintf(`
		SELECT DISTINCT ON (judge, round) %s
		FROM scores
		WHERE submission_id = $1
		ORDER BY judge, round, created_at DESC
	`, scoreColumns)
	rows, err := s.pool.Query(ctx, sql, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Score
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sc)
	}
	return out, rows.Err()
}

// LatestScoreFor returns the latest row for one specific (judge, round)
// key, or ErrNotFound if the judge hasn't scored that round yet.
func (s *Store) LatestScoreFor(ctx context.Context, submissionID string, judge models.JudgeName, round models.Round) (*models.Score, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM scores
		WHERE submission_id = $1 AND judge = $2 AND round = $3
		ORDER BY created_at DESC LIMIT 1
	`, scoreColumns)
	row := s.pool.QueryRow(ctx, sql, submissionID, string(judge), int(round))
	sc, err := scanScore(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sc, nil
}
