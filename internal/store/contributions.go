package store

import (
	"context"
	"fmt"

	"github.com/clanktank/judge-engine/pkg/models"
)

// InsertContribution records a prize pool contribution. Overflow
// contributions arrive with tx_signature set to the originating vote's
// signature plus a "-overflow" suffix (see internal/votes), so a
// duplicate here is exactly as meaningful as on votes: already recorded.
func (s *Store) InsertContribution(ctx context.Context, c models.PrizePoolContribution) error {
	const sql = `
		INSERT INTO prize_pool_contributions (tx_signature, token_mint, token_symbol, amount, contributor_wallet, source, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, sql, c.TxSignature, c.TokenMint, c.TokenSymbol, c.Amount, c.ContributorWallet,
		string(c.Source), c.Timestamp)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTxSignature
		}
		return fmt.Errorf("store: failed to insert contribution: %w", err)
	}
	return nil
}

// ContributionTotals sums contributed amount per token mint, across all
// sources.
func (s *Store) ContributionTotals(ctx context.Context) (map[string]float64, error) {
	const sql = `SELECT token_mint, SUM(amount) FROM prize_pool_contributions GROUP BY token_mint`
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var mint string
		var total float64
		if err := rows.Scan(&mint, &total); err != nil {
			return nil, err
		}
		out[mint] = total
	}
	return out, rows.Err()
}
