package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/clanktank/judge-engine/pkg/models"
)

// AddReaction records a legacy emoji-style reaction, idempotently —
// reacting twice with the same (submission, user, reaction) is a no-op,
// matching the composite primary key's intent.
func (s *Store) AddReaction(ctx context.Context, r models.CommunityReaction) error {
	const sql = `
		INSERT INTO community_reactions (submission_id, user_id, reaction_type, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (submission_id, user_id, reaction_type) DO NOTHING
	`
	_, err := s.pool.Exec(ctx, sql, r.SubmissionID, r.UserID, string(r.ReactionType), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: failed to add reaction: %w", err)
	}
	return nil
}

// ReactionCounts returns the count per reaction type for one submission.
func (s *Store) ReactionCounts(ctx context.Context, submissionID string) (map[models.ReactionType]int, error) {
	const sql = `SELECT reaction_type, COUNT(*) FROM community_reactions WHERE submission_id = $1 GROUP BY reaction_type`
	rows, err := s.pool.Query(ctx, sql, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[models.ReactionType]int)
	for rows.Next() {
		var rt string
		var count int
		if err := rows.Scan(&rt, &count); err != nil {
			return nil, err
		}
		out[models.ReactionType(rt)] = count
	}
	return out, rows.Err()
}

// SetLikeDislike upserts a user's like/dislike/remove action on a
// submission. Action=ActionRemove deletes the row outright rather than
// persisting a tombstone — "remove" means back to no opinion, not a
// third state callers need to filter out later.
func (s *Store) SetLikeDislike(ctx context.Context, ld models.LikeDislike) error {
	if ld.Action == models.ActionRemove {
		const delSQL = `DELETE FROM likes_dislikes WHERE discord_id = $1 AND submission_id = $2`
		_, err := s.pool.Exec(ctx, delSQL, ld.DiscordID, ld.SubmissionID)
		if err != nil {
			return fmt.Errorf("store: failed to remove like/dislike: %w", err)
		}
		return nil
	}
	const sql = `
		INSERT INTO likes_dislikes (discord_id, submission_id, action, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (discord_id, submission_id) DO UPDATE SET
			action = EXCLUDED.action,
			created_at = EXCLUDED.created_at
	`
	_, err := s.pool.Exec(ctx, sql, ld.DiscordID, ld.SubmissionID, string(ld.Action), ld.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: failed to set like/dislike: %w", err)
	}
	return nil
}

// LikeDislikeCounts returns (likes, dislikes) for one submission.
func (s *Store) LikeDislikeCounts(ctx context.Context, submissionID string) (likes, dislikes int, err error) {
	const sql = `
		SELECT
			COUNT(*) FILTER (WHERE action = 'like'),
			COUNT(*) FILTER (WHERE action = 'dislike')
		FROM likes_dislikes WHERE submission_id = $1
	`
	err = s.pool.QueryRow(ctx, sql, submissionID).Scan(&likes, &dislikes)
	return likes, dislikes, err
}

// UserLikeDislike returns the current action a user has taken on a
// submission, or "" if none.
func (s *Store) UserLikeDislike(ctx context.Context, discordID, submissionID string) (models.LikeDislikeAction, error) {
	const sql = `SELECT action FROM likes_dislikes WHERE discord_id = $1 AND submission_id = $2`
	var action string
	err := s.pool.QueryRow(ctx, sql, discordID, submissionID).Scan(&action)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return models.LikeDislikeAction(action), nil
}
