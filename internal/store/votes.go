package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/clanktank/judge-engine/pkg/models"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// InsertVote records one vote. A duplicate tx_signature (webhook replay,
// or the same transaction observed by both the webhook and the poller)
// returns ErrDuplicateTxSignature rather than failing the caller — vote
// ingestion treats this as "already recorded", not an error condition.
func (s *Store) InsertVote(ctx context.Context, v models.Vote) error {
	const sql = `
		INSERT INTO votes (tx_signature, submission_id, sender_address, amount, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.pool.Exec(ctx, sql, v.TxSignature, v.SubmissionID, v.SenderAddress, v.Amount, v.Timestamp)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTxSignature
		}
		return fmt.Errorf("store: failed to insert vote: %w", err)
	}
	return nil
}

// VotesForSubmission returns every recorded vote for one submission, used
// by the community score computation.
func (s *Store) VotesForSubmission(ctx context.Context, submissionID string) ([]models.Vote, error) {
	const sql = `SELECT tx_signature, submission_id, sender_address, amount, timestamp FROM votes WHERE submission_id = $1`
	rows, err := s.pool.Query(ctx, sql, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Vote
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.TxSignature, &v.SubmissionID, &v.SenderAddress, &v.Amount, &v.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// VoteExists reports whether a transaction signature has already been
// recorded as a vote — used by the ingestor to short-circuit before the
// more expensive memo-decode path on redelivered webhooks.
func (s *Store) VoteExists(ctx context.Context, txSignature string) (bool, error) {
	const sql = `SELECT 1 FROM votes WHERE tx_signature = $1`
	var one int
	err := s.pool.QueryRow(ctx, sql, txSignature).Scan(&one)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
