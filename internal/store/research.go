package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/clanktank/judge-engine/pkg/models"
)

// UpsertResearch writes the Research Orchestrator's output, replacing any
// prior record for the submission — re-running research always overwrites,
// it never accumulates history (unlike scores, which version by round).
func (s *Store) UpsertResearch(ctx context.Context, r models.Research) error {
	github, err := json.Marshal(r.GithubAnalysis)
	if err != nil {
		return fmt.Errorf("store: failed to marshal github_analysis: %w", err)
	}
	market, err := json.Marshal(r.MarketResearch)
	if err != nil {
		return fmt.Errorf("store: failed to marshal market_research: %w", err)
	}
	technical, err := json.Marshal(r.TechnicalAssessment)
	if err != nil {
		return fmt.Errorf("store: failed to marshal technical_assessment: %w", err)
	}

	const sql = `
		INSERT INTO research (submission_id, github_analysis, market_research, technical_assessment, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (submission_id) DO UPDATE SET
			github_analysis = EXCLUDED.github_analysis,
			market_research = EXCLUDED.market_research,
			technical_assessment = EXCLUDED.technical_assessment,
			created_at = EXCLUDED.created_at
	`
	_, err = s.pool.Exec(ctx, sql, r.SubmissionID, github, market, technical, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: failed to upsert research: %w", err)
	}
	return nil
}

// GetResearch fetches the one research record for a submission.
func (s *Store) GetResearch(ctx context.Context, submissionID string) (*models.Research, error) {
	const sql = `
		SELECT submission_id, github_analysis, market_research, technical_assessment, created_at
		FROM research WHERE submission_id = $1
	`
	var r models.Research
	var github, market, technical []byte
	err := s.pool.QueryRow(ctx, sql, submissionID).Scan(&r.SubmissionID, &github, &market, &technical, &r.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(github, &r.GithubAnalysis); err != nil {
		return nil, fmt.Errorf("store: failed to unmarshal github_analysis: %w", err)
	}
	if err := json.Unmarshal(market, &r.MarketResearch); err != nil {
		return nil, fmt.Errorf("store: failed to unmarshal market_research: %w", err)
	}
	if err := json.Unmarshal(technical, &r.TechnicalAssessment); err != nil {
		return nil, fmt.Errorf("store: failed to unmarshal technical_assessment: %w", err)
	}
	return &r, nil
}
