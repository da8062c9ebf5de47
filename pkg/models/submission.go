// Package models holds the domain types shared across every component of
// the judging engine: submissions, research, scores, votes, and the
// supporting entities each one references by primary key.
package models

import "time"

// Category enumerates the permitted submission categories.
type Category string

const (
	CategoryDeFi           Category = "DeFi"
	CategoryAIAgents       Category = "AI/Agents"
	CategoryGaming         Category = "Gaming"
	CategoryInfrastructure Category = "Infrastructure"
	CategorySocial         Category = "Social"
	CategoryOther          Category = "Other"
)

// Status is a submission's lifecycle stage. Transitions only ever move
// forward through this ordered set; see Status.Next and IsForwardTransition.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusResearched Status = "researched"
	StatusScored    Status = "scored"
	StatusCompleted Status = "completed"
	StatusPublished Status = "published"
)

// statusOrder fixes the total order used to validate forward-only transitions.
var statusOrder = map[Status]int{
	StatusSubmitted:  0,
	StatusResearched: 1,
	StatusScored:     2,
	StatusCompleted:  3,
	StatusPublished:  4,
}

// IsForwardTransition reports whether moving from `from` to `to` is a valid
// forward (or no-op) transition under the fixed lifecycle order.
func IsForwardTransition(from, to Status) bool {
	fromOrd, ok1 := statusOrder[from]
	toOrd, ok2 := statusOrder[to]
	if !ok1 || !ok2 {
		return false
	}
	return toOrd >= fromOrd
}

// SchemaVersion identifies which versioned field manifest a submission
// was created against. The Store keeps one table per version
// (hackathon_submissions_v1, hackathon_submissions_v2); everything else
// (scores, research, votes, ...) is version-agnostic.
type SchemaVersion string

const (
	SchemaV1 SchemaVersion = "v1"
	SchemaV2 SchemaVersion = "v2"
)

// Submission is the root entity of the pipeline. SubmissionID is a stable
// opaque string: under SchemaV1 it is a sanitized project-name slug, under
// SchemaV2 it is a monotone integer minted under the Store's write lock,
// formatted as a decimal string so the type is uniform across versions.
type Submission struct {
	SubmissionID   string        `json:"submission_id"`
	SchemaVersion  SchemaVersion `json:"schema_version"`
	ProjectName    string        `json:"project_name"`
	Category       Category      `json:"category"`
	Description    string        `json:"description"`
	GithubURL      string        `json:"github_url"`
	DemoVideoURL   string        `json:"demo_video_url"`
	ProblemSolved  string        `json:"problem_solved,omitempty"`
	FavoritePart   string        `json:"favorite_part,omitempty"`
	TwitterHandle  string        `json:"twitter_handle,omitempty"`
	ProjectImage   string        `json:"project_image,omitempty"`
	SolanaAddress  string        `json:"solana_address,omitempty"`
	DiscordHandle  string        `json:"discord_handle,omitempty"`

	OwnerDiscordID string `json:"owner_discord_id"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmissionInput is the write-side shape accepted from POST/PUT bodies,
// validated against the Schema Registry for the submission's version
// before being persisted as a Submission.
type SubmissionInput struct {
	ProjectName   string `json:"project_name" binding:"required"`
	Category      string `json:"category" binding:"required"`
	Description   string `json:"description" binding:"required"`
	GithubURL     string `json:"github_url" binding:"required"`
	DemoVideoURL  string `json:"demo_video_url" binding:"required"`
	ProblemSolved string `json:"problem_solved"`
	FavoritePart  string `json:"favorite_part"`
	TwitterHandle string `json:"twitter_handle"`
	ProjectImage  string `json:"project_image"`
	SolanaAddress string `json:"solana_address"`
	DiscordHandle string `json:"discord_handle"`
}
