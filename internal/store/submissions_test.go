package store

import (
	"testing"

	"github.com/clanktank/judge-engine/pkg/models"
)

func TestSanitizeSlugNeverEmpty(t *testing.T) {
	cases := []string{"", "   ", "!!!", "Zephyr Protocol", "日本語"}
	for _, c := range cases {
		slug := sanitizeSlug(c)
		if slug == "" {
			t.Errorf("sanitizeSlug(%q) returned empty string", c)
		}
	}
}

func TestTableForUnknownVersion(t *testing.T) {
	if _, err := tableFor(models.SchemaVersion("v99")); err == nil {
		t.Fatal("expected error for unknown schema version")
	}
}

func TestIdParamV2NonNumeric(t *testing.T) {
	got := idParam(models.SchemaV2, "not-a-number")
	if got != int64(-1) {
		t.Errorf("idParam for non-numeric v2 id = %v, want -1 sentinel", got)
	}
}

func TestIdParamV1PassesThroughString(t *testing.T) {
	got := idParam(models.SchemaV1, "my-slug-123")
	if got != "my-slug-123" {
		t.Errorf("idParam for v1 id = %v, want unchanged string", got)
	}
}
