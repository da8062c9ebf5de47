// Package schema implements the Schema Registry (C2): a static,
// compile-time enumeration of supported submission field manifests. It
// replaces the source's runtime model-factory/reflection pattern
// with one struct literal per version and a dispatch-by-tag function —
// adding a version means adding a manifest entry, not a code-generation
// step.
package schema

import (
	"fmt"
	"regexp"

	"github.com/clanktank/judge-engine/pkg/models"
)

// FieldType enumerates the UI/validation type of a field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldURL      FieldType = "url"
	FieldSelect   FieldType = "select"
)

// Field describes one submission field for a given schema version.
type Field struct {
	Name      string
	Label     string
	Type      FieldType
	Required  bool
	MaxLength int
	Options   []string
	Regex     *regexp.Regexp
	UIOnly    bool // excluded from DatabaseFields
}

var githubURLPattern = regexp.MustCompile(`^https://github\.com/[^/]+/[^/]+(/.*)?$`)

var categoryOptions = []string{"DeFi", "AI/Agents", "Gaming", "Infrastructure", "Social", "Other"}

// v1Manifest is the original, smaller field set.
var v1Manifest = []Field{
	{Name: "project_name", Label: "Project Name", Type: FieldText, Required: true, MaxLength: 200},
	{Name: "category", Label: "Category", Type: FieldSelect, Required: true, Options: categoryOptions},
	{Name: "description", Label: "Description", Type: FieldTextarea, Required: true, MaxLength: 2000},
	{Name: "github_url", Label: "GitHub URL", Type: FieldURL, Required: true, MaxLength: 500, Regex: githubURLPattern},
	{Name: "demo_video_url", Label: "Demo Video URL", Type: FieldURL, Required: true, MaxLength: 500},
	{Name: "problem_solved", Label: "Problem Solved", Type: FieldTextarea, Required: false, MaxLength: 1000},
	{Name: "favorite_part", Label: "Favorite Part", Type: FieldTextarea, Required: false, MaxLength: 1000},
}

// v2Manifest adds discord_handle (ownership display), twitter_handle,
// project_image and solana_address, matching the original source's
// SubmissionCreateV2 field set.
var v2Manifest = []Field{
	{Name: "project_name", Label: "Project Name", Type: FieldText, Required: true, MaxLength: 200},
	{Name: "discord_handle", Label: "Discord Handle", Type: FieldText, Required: false, MaxLength: 100},
	{Name: "category", Label: "Category", Type: FieldSelect, Required: true, Options: categoryOptions},
	{Name: "description", Label: "Description", Type: FieldTextarea, Required: true, MaxLength: 2000},
	{Name: "twitter_handle", Label: "Twitter Handle", Type: FieldText, Required: false, MaxLength: 100},
	{Name: "github_url", Label: "GitHub URL", Type: FieldURL, Required: true, MaxLength: 500, Regex: githubURLPattern},
	{Name: "demo_video_url", Label: "Demo Video URL", Type: FieldURL, Required: true, MaxLength: 500},
	{Name: "project_image", Label: "Project Image", Type: FieldText, Required: false, MaxLength: 500, UIOnly: true},
	{Name: "problem_solved", Label: "Problem Solved", Type: FieldTextarea, Required: false, MaxLength: 1000},
	{Name: "favorite_part", Label: "Favorite Part", Type: FieldTextarea, Required: false, MaxLength: 1000},
	{Name: "solana_address", Label: "Solana Address", Type: FieldText, Required: false, MaxLength: 64},
}

var manifests = map[models.SchemaVersion][]Field{
	models.SchemaV1: v1Manifest,
	models.SchemaV2: v2Manifest,
}

// Fields returns every field descriptor for a version, UI-only included.
func Fields(version models.SchemaVersion) ([]Field, error) {
	m, ok := manifests[version]
	if !ok {
		return nil, fmt.Errorf("schema: unknown version %q", version)
	}
	return m, nil
}

// DatabaseFields returns only the fields that back a database column —
// UI-only fields (e.g. project_image, which stores a blob reference set
// by the upload handler, not the creation form) are excluded. The Store
// does not call it: its DDL (schema.sql) and its insert/update column
// lists are written out by hand.
func DatabaseFields(version models.SchemaVersion) ([]Field, error) {
	all, err := Fields(version)
	if err != nil {
		return nil, err
	}
	out := make([]Field, 0, len(all))
	for _, f := range all {
		if !f.UIOnly {
			out = append(out, f)
		}
	}
	return out, nil
}

// Validate checks a raw field value map against the manifest for
// `version`, returning the first violation found (required-but-empty,
// max-length, enum membership, or regex mismatch).
func Validate(version models.SchemaVersion, values map[string]string) error {
	fields, err := Fields(version)
	if err != nil {
		return err
	}
	for _, f := range fields {
		v, present := values[f.Name]
		if f.Required && (!present || v == "") {
			return fmt.Errorf("schema: field %q is required", f.Name)
		}
		if !present || v == "" {
			continue
		}
		if f.MaxLength > 0 && len(v) > f.MaxLength {
			return fmt.Errorf("schema: field %q exceeds max length %d", f.Name, f.MaxLength)
		}
		if len(f.Options) > 0 && !contains(f.Options, v) {
			return fmt.Errorf("schema: field %q value %q is not one of %v", f.Name, v, f.Options)
		}
		if f.Regex != nil && !f.Regex.MatchString(v) {
			return fmt.Errorf("schema: field %q value %q does not match required pattern", f.Name, v)
		}
	}
	return nil
}

// ValidateGithubURL applies the manifest's github_url pattern on its
// own, outside full-submission validation.
func ValidateGithubURL(url string) bool {
	return githubURLPattern.MatchString(url)
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
