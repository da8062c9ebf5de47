package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/clanktank/judge-engine/pkg/models"
)

func tableFor(version models.SchemaVersion) (string, error) {
	switch version {
	case models.SchemaV1:
		return "hackathon_submissions_v1", nil
	case models.SchemaV2:
		return "hackathon_submissions_v2", nil
	default:
		return "", fmt.Errorf("store: unknown schema version %q", version)
	}
}

var slugSanitizer = regexp.MustCompile(`[^a-z0-9-]+`)

// sanitizeSlug turns a project name into a path-safe v1 submission id.
// Per DESIGN.md / SPEC_FULL.md §9, this is deliberately confined to v1;
// v2 uses monotone integers so there is no path-traversal surface to
// sanitize against at all for new submissions.
func sanitizeSlug(projectName string) string {
	lower := strings.ToLower(strings.TrimSpace(projectName))
	lower = strings.ReplaceAll(lower, " ", "-")
	slug := slugSanitizer.ReplaceAllString(lower, "")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "submission"
	}
	return fmt.Sprintf("%s-%d", slug, time.Now().UnixNano()%100000)
}

// CreateSubmission inserts a new submission at status=submitted. For
// SchemaV2 the id is minted as MAX(submission_id)+1 under the table's
// write lock (serialized by the transaction), per §9's id-generation
// note; for SchemaV1 it is a sanitized slug.
func (s *Store) CreateSubmission(ctx context.Context, version models.SchemaVersion, in models.SubmissionInput, ownerDiscordID string) (*models.Submission, error) {
	table, err := tableFor(version)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	sub := &models.Submission{
		SchemaVersion:  version,
		ProjectName:    in.ProjectName,
		Category:       models.Category(in.Category),
		Description:    in.Description,
		GithubURL:      in.GithubURL,
		DemoVideoURL:   in.DemoVideoURL,
		ProblemSolved:  in.ProblemSolved,
		FavoritePart:   in.FavoritePart,
		TwitterHandle:  in.TwitterHandle,
		SolanaAddress:  in.SolanaAddress,
		DiscordHandle:  in.DiscordHandle,
		OwnerDiscordID: ownerDiscordID,
		Status:         models.StatusSubmitted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	switch version {
	case models.SchemaV1:
		sub.SubmissionID = sanitizeSlug(in.ProjectName)
		sql := fmt.Sprintf(`
			INSERT INTO %s (submission_id, project_name, category, description, github_url, demo_video_url,
				problem_solved, favorite_part, owner_discord_id, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`, table)
		_, err = tx.Exec(ctx, sql, sub.SubmissionID, sub.ProjectName, string(sub.Category), sub.Description,
			sub.GithubURL, sub.DemoVideoURL, sub.ProblemSolved, sub.FavoritePart, sub.OwnerDiscordID,
			string(sub.Status), sub.CreatedAt, sub.UpdatedAt)
	case models.SchemaV2:
		var nextID int64
		if _, err := tx.Exec(ctx, fmt.Sprintf(`LOCK TABLE %s IN SHARE ROW EXCLUSIVE MODE`, table)); err != nil {
			return nil, fmt.Errorf("store: failed to lock %s for v2 id minting: %w", table, err)
		}
		lockSQL := fmt.Sprintf(`SELECT COALESCE(MAX(submission_id), 0) + 1 FROM %s`, table)
		if err := tx.QueryRow(ctx, lockSQL).Scan(&nextID); err != nil {
			return nil, fmt.Errorf("store: failed to mint next v2 submission id: %w", err)
		}
		sub.SubmissionID = strconv.FormatInt(nextID, 10)
		sql := fmt.Sprintf(`
			INSERT INTO %s (submission_id, project_name, discord_handle, category, description, twitter_handle,
				github_url, demo_video_url, problem_solved, favorite_part, solana_address, owner_discord_id,
				status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		`, table)
		_, err = tx.Exec(ctx, sql, nextID, sub.ProjectName, sub.DiscordHandle, string(sub.Category), sub.Description,
			sub.TwitterHandle, sub.GithubURL, sub.DemoVideoURL, sub.ProblemSolved, sub.FavoritePart,
			sub.SolanaAddress, sub.OwnerDiscordID, string(sub.Status), sub.CreatedAt, sub.UpdatedAt)
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to insert submission: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sub, nil
}

func scanSubmission(row pgx.Row, version models.SchemaVersion) (*models.Submission, error) {
	sub := &models.Submission{SchemaVersion: version}
	var category, status string
	if version == models.SchemaV1 {
		err := row.Scan(&sub.SubmissionID, &sub.ProjectName, &category, &sub.Description, &sub.GithubURL,
			&sub.DemoVideoURL, &sub.ProblemSolved, &sub.FavoritePart, &sub.ProjectImage, &sub.OwnerDiscordID,
			&status, &sub.CreatedAt, &sub.UpdatedAt)
		if err != nil {
			return nil, err
		}
	} else {
		var id int64
		err := row.Scan(&id, &sub.ProjectName, &sub.DiscordHandle, &category, &sub.Description, &sub.TwitterHandle,
			&sub.GithubURL, &sub.DemoVideoURL, &sub.ProjectImage, &sub.ProblemSolved, &sub.FavoritePart,
			&sub.SolanaAddress, &sub.OwnerDiscordID, &status, &sub.CreatedAt, &sub.UpdatedAt)
		if err != nil {
			return nil, err
		}
		sub.SubmissionID = strconv.FormatInt(id, 10)
	}
	sub.Category = models.Category(category)
	sub.Status = models.Status(status)
	return sub, nil
}

// GetSubmission fetches one submission by id within a known version.
func (s *Store) GetSubmission(ctx context.Context, version models.SchemaVersion, id string) (*models.Submission, error) {
	table, err := tableFor(version)
	if err != nil {
		return nil, err
	}
	var sql string
	if version == models.SchemaV1 {
		sql = fmt.Sprintf(`SELECT submission_id, project_name, category, description, github_url, demo_video_url,
			problem_solved, favorite_part, project_image, owner_discord_id, status, created_at, updated_at
			FROM %s WHERE submission_id = $1`, table)
	} else {
		sql = fmt.Sprintf(`SELECT submission_id, project_name, discord_handle, category, description, twitter_handle,
			github_url, demo_video_url, project_image, problem_solved, favorite_part, solana_address,
			owner_discord_id, status, created_at, updated_at
			FROM %s WHERE submission_id = $1`, table)
	}
	row := s.pool.QueryRow(ctx, sql, idParam(version, id))
	sub, err := scanSubmission(row, version)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

// FindSubmission looks across both schema versions for an id — used by
// handlers that only receive a submission_id path param with no version
// context (most of the public API).
func (s *Store) FindSubmission(ctx context.Context, id string) (*models.Submission, error) {
	if sub, err := s.GetSubmission(ctx, models.SchemaV2, id); err == nil {
		return sub, nil
	}
	return s.GetSubmission(ctx, models.SchemaV1, id)
}

func idParam(version models.SchemaVersion, id string) any {
	if version == models.SchemaV2 {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return int64(-1)
		}
		return n
	}
	return id
}

// UpdateSubmission applies an owner-authorized edit. Callers are
// responsible for the owner/window checks (§4.11); this only persists.
func (s *Store) UpdateSubmission(ctx context.Context, version models.SchemaVersion, id string, in models.SubmissionInput) error {
	table, err := tableFor(version)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	var sql string
	var args []any
	if version == models.SchemaV1 {
		sql = fmt.Sprintf(`UPDATE %s SET project_name=$1, category=$2, description=$3, github_url=$4,
			demo_video_url=$5, problem_solved=$6, favorite_part=$7, updated_at=$8 WHERE submission_id=$9`, table)
		args = []any{in.ProjectName, in.Category, in.Description, in.GithubURL, in.DemoVideoURL,
			in.ProblemSolved, in.FavoritePart, now, id}
	} else {
		sql = fmt.Sprintf(`UPDATE %s SET project_name=$1, discord_handle=$2, category=$3, description=$4,
			twitter_handle=$5, github_url=$6, demo_video_url=$7, problem_solved=$8, favorite_part=$9,
			solana_address=$10, updated_at=$11 WHERE submission_id=$12`, table)
		args = []any{in.ProjectName, in.DiscordHandle, in.Category, in.Description, in.TwitterHandle,
			in.GithubURL, in.DemoVideoURL, in.ProblemSolved, in.FavoritePart, in.SolanaAddress, now,
			idParam(version, id)}
	}
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("store: failed to update submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetProjectImage records the uploaded blob reference for a submission
// (project_image is UI-only in the schema manifest, set only via the
// upload handler, never the create/edit form).
func (s *Store) SetProjectImage(ctx context.Context, version models.SchemaVersion, id, imageRef string) error {
	table, err := tableFor(version)
	if err != nil {
		return err
	}
	sql := fmt.Sprintf(`UPDATE %s SET project_image=$1, updated_at=$2 WHERE submission_id=$3`, table)
	_, err = s.pool.Exec(ctx, sql, imageRef, time.Now().UTC(), idParam(version, id))
	return err
}

// AdvanceStatus moves a submission forward from `from` to `to`, holding
// a row lock for the duration so concurrent attempts to advance the same
// submission from the same source status yield exactly one winner (§5).
// A caller that loses the race, or whose submission is not currently at
// `from`, gets a no-op (ok=false, no error) rather than a failure.
func (s *Store) AdvanceStatus(ctx context.Context, version models.SchemaVersion, id string, from, to models.Status) (ok bool, err error) {
	if !models.IsForwardTransition(from, to) {
		return false, ErrForwardOnlyViolation
	}
	table, terr := tableFor(version)
	if terr != nil {
		return false, terr
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	lockSQL := fmt.Sprintf(`SELECT status FROM %s WHERE submission_id=$1 FOR UPDATE`, table)
	if err := tx.QueryRow(ctx, lockSQL, idParam(version, id)).Scan(&current); err != nil {
		if err == pgx.ErrNoRows {
			return false, ErrNotFound
		}
		return false, err
	}
	if models.Status(current) != from {
		// Someone else already advanced it (or it was never at `from`):
		// this is the "exactly one winner, one no-op" guarantee.
		return false, nil
	}

	updSQL := fmt.Sprintf(`UPDATE %s SET status=$1, updated_at=$2 WHERE submission_id=$3`, table)
	if _, err := tx.Exec(ctx, updSQL, string(to), time.Now().UTC(), idParam(version, id)); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ListOptions filters the submission listing.
type ListOptions struct {
	Statuses []models.Status // empty = all
}

// ListSubmissions returns every submission across both schema versions
// matching the filter, newest first.
func (s *Store) ListSubmissions(ctx context.Context, opts ListOptions) ([]models.Submission, error) {
	var out []models.Submission
	for _, version := range []models.SchemaVersion{models.SchemaV1, models.SchemaV2} {
		rows, err := s.listOneVersion(ctx, version, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) listOneVersion(ctx context.Context, version models.SchemaVersion, opts ListOptions) ([]models.Submission, error) {
	table, err := tableFor(version)
	if err != nil {
		return nil, err
	}
	var sql string
	var args []any
	if version == models.SchemaV1 {
		sql = fmt.Sprintf(`SELECT submission_id, project_name, category, description, github_url, demo_video_url,
			problem_solved, favorite_part, project_image, owner_discord_id, status, created_at, updated_at
			FROM %s`, table)
	} else {
		sql = fmt.Sprintf(`SELECT submission_id, project_name, discord_handle, category, description, twitter_handle,
			github_url, demo_video_url, project_image, problem_solved, favorite_part, solana_address,
			owner_discord_id, status, created_at, updated_at
			FROM %s`, table)
	}
	if len(opts.Statuses) > 0 {
		placeholders := make([]string, len(opts.Statuses))
		for i, st := range opts.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args = append(args, string(st))
		}
		sql += fmt.Sprintf(" WHERE status IN (%s)", strings.Join(placeholders, ","))
	}
	sql += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows, version)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}
