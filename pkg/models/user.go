package models

import "time"

// User is a Discord identity. Roles is populated only when the bot
// token + guild id are configured for role enrichment; it is optional
// even then.
type User struct {
	DiscordID string    `json:"discord_id"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	Roles     []string  `json:"roles,omitempty"`
	LastLogin time.Time `json:"last_login"`
}

// ReactionType enumerates the legacy emoji-style reactions, retained for
// display compatibility only (see SPEC_FULL.md §D.3).
type ReactionType string

// CommunityReaction is a per-user emoji-style reaction on a submission,
// superseded by on-chain voting but kept readable for older clients.
type CommunityReaction struct {
	SubmissionID string       `json:"submission_id"`
	UserID       string       `json:"user_id"`
	ReactionType ReactionType `json:"reaction_type"`
	CreatedAt    time.Time    `json:"created_at"`
}

// LikeDislikeAction is the toggle action a Discord-authenticated user
// can take on a submission.
type LikeDislikeAction string

const (
	ActionLike    LikeDislikeAction = "like"
	ActionDislike LikeDislikeAction = "dislike"
	ActionRemove  LikeDislikeAction = "remove"
)

// LikeDislike is a unique-per-(user, submission) binary reaction. It
// drives the community-engagement context fed to Synthesizer round-2
// prompts; it is never itself a mechanical score bonus.
type LikeDislike struct {
	SubmissionID string            `json:"submission_id"`
	DiscordID    string            `json:"discord_id"`
	Action       LikeDislikeAction `json:"action"`
	CreatedAt    time.Time         `json:"created_at"`
}

// AuditEntry is one append-only row in the audit trail.
type AuditEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	ResourceID string    `json:"resource_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	Details    string    `json:"details,omitempty"`
}
