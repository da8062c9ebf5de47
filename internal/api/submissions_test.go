package api

import (
	"testing"

	"github.com/clanktank/judge-engine/pkg/models"
)

func TestParseVersionDefaultsToV2(t *testing.T) {
	cases := map[string]models.SchemaVersion{
		"v1":      models.SchemaV1,
		"v2":      models.SchemaV2,
		"":        models.SchemaV2,
		"garbage": models.SchemaV2,
	}
	for in, want := range cases {
		if got := parseVersion(in); got != want {
			t.Errorf("parseVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsAllowedImageTypeExcludesWebp(t *testing.T) {
	allowed := []string{"image/jpeg", "image/png", "image/gif"}
	for _, m := range allowed {
		if !isAllowedImageType(m) {
			t.Errorf("isAllowedImageType(%q) = false, want true", m)
		}
	}
	disallowed := []string{"image/webp", "image/bmp", "application/pdf"}
	for _, m := range disallowed {
		if isAllowedImageType(m) {
			t.Errorf("isAllowedImageType(%q) = true, want false", m)
		}
	}
}

func TestRandomFilenameProducesDistinctHexNames(t *testing.T) {
	a, err := randomFilename(".jpg")
	if err != nil {
		t.Fatalf("randomFilename: %v", err)
	}
	b, err := randomFilename(".jpg")
	if err != nil {
		t.Fatalf("randomFilename: %v", err)
	}
	if a == b {
		t.Errorf("expected two random filenames to differ, both = %q", a)
	}
	if len(a) != len(".jpg")+32 {
		t.Errorf("randomFilename length = %d, want %d", len(a), len(".jpg")+32)
	}
}

func TestSubmissionInputToValuesCarriesAllFields(t *testing.T) {
	in := models.SubmissionInput{
		ProjectName:   "Widget",
		Category:      "DeFi",
		Description:   "does things",
		GithubURL:     "https://github.com/a/b",
		DemoVideoURL:  "https://youtu.be/x",
		ProblemSolved: "problem",
		FavoritePart:  "part",
		TwitterHandle: "@widget",
		SolanaAddress: "abc123",
		DiscordHandle: "widget#0001",
	}
	got := submissionInputToValues(in)
	want := map[string]string{
		"project_name":   "Widget",
		"category":       "DeFi",
		"description":    "does things",
		"github_url":     "https://github.com/a/b",
		"demo_video_url": "https://youtu.be/x",
		"problem_solved": "problem",
		"favorite_part":  "part",
		"twitter_handle": "@widget",
		"solana_address": "abc123",
		"discord_handle": "widget#0001",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("submissionInputToValues()[%q] = %q, want %q", k, got[k], v)
		}
	}
}
