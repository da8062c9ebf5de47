package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/clanktank/judge-engine/pkg/models"
)

// UpsertUser records a Discord identity at login time, refreshing
// LastLogin on every OAuth callback.
func (s *Store) UpsertUser(ctx context.Context, u models.User) error {
	roles, err := json.Marshal(u.Roles)
	if err != nil {
		return fmt.Errorf("store: failed to marshal roles: %w", err)
	}
	const sql = `
		INSERT INTO users (discord_id, username, avatar, roles, last_login)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		ON CONFLICT (discord_id) DO UPDATE SET
			username = EXCLUDED.username,
			avatar = EXCLUDED.avatar,
			roles = EXCLUDED.roles,
			last_login = EXCLUDED.last_login
	`
	_, err = s.pool.Exec(ctx, sql, u.DiscordID, u.Username, u.Avatar, roles, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: failed to upsert user: %w", err)
	}
	return nil
}

// GetUser fetches one Discord identity by id.
func (s *Store) GetUser(ctx context.Context, discordID string) (*models.User, error) {
	const sql = `SELECT discord_id, username, avatar, roles, last_login FROM users WHERE discord_id = $1`
	var u models.User
	var avatar *string
	var roles []byte
	err := s.pool.QueryRow(ctx, sql, discordID).Scan(&u.DiscordID, &u.Username, &avatar, &roles, &u.LastLogin)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if avatar != nil {
		u.Avatar = *avatar
	}
	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &u.Roles); err != nil {
			return nil, fmt.Errorf("store: failed to unmarshal roles: %w", err)
		}
	}
	return &u, nil
}
