package store

import (
	"testing"

	"github.com/clanktank/judge-engine/pkg/models"
)

func TestIsUniqueViolationNilError(t *testing.T) {
	if isUniqueViolation(nil) {
		t.Error("isUniqueViolation(nil) should be false")
	}
}

func TestIsUniqueViolationUnrelatedError(t *testing.T) {
	if isUniqueViolation(ErrNotFound) {
		t.Error("isUniqueViolation(ErrNotFound) should be false; not a pg wire error")
	}
}

func TestIsStaleRespectsTTL(t *testing.T) {
	now := models.TokenMetadata{}.LastUpdated // zero time
	m := models.TokenMetadata{LastUpdated: now}
	fresh := m.LastUpdated.Add(1)
	if IsStale(m, fresh) {
		t.Error("entry updated an instant ago should not be stale")
	}
	stale := m.LastUpdated.Add(models.TokenMetadataTTL + 1)
	if !IsStale(m, stale) {
		t.Error("entry older than the TTL should be stale")
	}
}
