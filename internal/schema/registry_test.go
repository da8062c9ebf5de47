package schema

import (
	"testing"

	"github.com/clanktank/judge-engine/pkg/models"
)

func TestValidateGithubURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://github.com/a/b?x=1", true},
		{"https://github.com/acme/zephyr", true},
		{"https://github.com/acme/zephyr/tree/main", true},
		{"https://gitlab.com/a/b", false},
		{"http://github.com/a/b", false},
		{"https://github.com/a", false},
	}
	for _, c := range cases {
		if got := ValidateGithubURL(c.url); got != c.want {
			t.Errorf("ValidateGithubURL(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}

func TestDatabaseFieldsExcludesUIOnly(t *testing.T) {
	fields, err := DatabaseFields(models.SchemaV2)
	if err != nil {
		t.Fatalf("DatabaseFields: %v", err)
	}
	for _, f := range fields {
		if f.Name == "project_image" {
			t.Errorf("project_image is UI-only and must be excluded from DatabaseFields")
		}
	}
}

func TestValidateRequiredField(t *testing.T) {
	values := map[string]string{
		"category":       "DeFi",
		"description":    "desc",
		"github_url":     "https://github.com/a/b",
		"demo_video_url": "https://youtu.be/x",
	}
	if err := Validate(models.SchemaV1, values); err == nil {
		t.Fatal("expected error for missing required project_name")
	}
	values["project_name"] = "Zephyr"
	if err := Validate(models.SchemaV1, values); err != nil {
		t.Fatalf("expected valid submission, got %v", err)
	}
}

func TestValidateCategoryEnum(t *testing.T) {
	values := map[string]string{
		"project_name":   "Zephyr",
		"category":       "NotACategory",
		"description":    "desc",
		"github_url":     "https://github.com/a/b",
		"demo_video_url": "https://youtu.be/x",
	}
	if err := Validate(models.SchemaV1, values); err == nil {
		t.Fatal("expected error for invalid category enum value")
	}
}

func TestUnknownVersion(t *testing.T) {
	if _, err := Fields(models.SchemaVersion("v99")); err == nil {
		t.Fatal("expected error for unknown schema version")
	}
}
