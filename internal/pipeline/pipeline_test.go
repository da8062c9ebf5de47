package pipeline

import "testing"

func TestStatsRecordTracksSuccessAndFailure(t *testing.T) {
	stats := newStats()
	stats.record("research", "sub-1", nil)
	stats.record("research", "sub-2", errTest{"boom"})
	stats.record("research", "sub-3", nil)

	if stats.Processed != 3 {
		t.Errorf("Processed = %d, want 3", stats.Processed)
	}
	if stats.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", stats.Succeeded)
	}
	if stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", stats.Failed)
	}
	if msg, ok := stats.Failures["sub-2"]; !ok || msg != "boom" {
		t.Errorf("Failures[sub-2] = %q, ok=%v, want %q, true", msg, ok, "boom")
	}
	if _, ok := stats.Failures["sub-1"]; ok {
		t.Errorf("Failures should not contain a successful submission id")
	}
}

type errTest struct{ msg string }

func (e errTest) Error() string { return e.msg }
