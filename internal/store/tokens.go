package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/clanktank/judge-engine/pkg/models"
)

// UpsertTokenMetadata refreshes the cached descriptor for one mint.
func (s *Store) UpsertTokenMetadata(ctx context.Context, m models.TokenMetadata) error {
	const sql = `
		INSERT INTO token_metadata (mint, symbol, name, decimals, logo_uri, last_updated)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		ON CONFLICT (mint) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			decimals = EXCLUDED.decimals,
			logo_uri = EXCLUDED.logo_uri,
			last_updated = EXCLUDED.last_updated
	`
	_, err := s.pool.Exec(ctx, sql, m.Mint, m.Symbol, m.Name, m.Decimals, m.LogoURI, m.LastUpdated)
	return err
}

// GetTokenMetadata returns the cached descriptor, or ErrNotFound if the
// mint has never been fetched. Callers decide TTL expiry against
// LastUpdated and models.TokenMetadataTTL themselves — the store only
// persists, it does not evict.
func (s *Store) GetTokenMetadata(ctx context.Context, mint string) (*models.TokenMetadata, error) {
	const sql = `SELECT mint, symbol, name, decimals, logo_uri, last_updated FROM token_metadata WHERE mint = $1`
	var m models.TokenMetadata
	var logoURI *string
	err := s.pool.QueryRow(ctx, sql, mint).Scan(&m.Mint, &m.Symbol, &m.Name, &m.Decimals, &logoURI, &m.LastUpdated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if logoURI != nil {
		m.LogoURI = *logoURI
	}
	return &m, nil
}

// IsStale reports whether a cached token metadata entry has exceeded its TTL.
func IsStale(m models.TokenMetadata, now time.Time) bool {
	return now.Sub(m.LastUpdated) > models.TokenMetadataTTL
}
