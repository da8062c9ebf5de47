package votes

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEmptyPathReturnsNil(t *testing.T) {
	reg, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg != nil {
		t.Error("expected nil registry for empty path")
	}
}

func TestLoadRegistryParsesCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "holders.csv")
	if err := os.WriteFile(path, []byte("owner,amount\naddr1,100\naddr2,25\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reg.IsHolder("addr1") {
		t.Error("expected addr1 to be a holder")
	}
	if reg.IsHolder("addr-unknown") {
		t.Error("addr-unknown should not be a holder")
	}
	if reg.Balance("addr1") != 100 {
		t.Errorf("Balance(addr1) = %v, want 100", reg.Balance("addr1"))
	}
	if got := reg.QuadraticWeight("addr2"); got != 5 {
		t.Errorf("QuadraticWeight(addr2) = %v, want 5 (sqrt(25))", got)
	}
}

func TestNilRegistryIsSafeToQuery(t *testing.T) {
	var reg *Registry
	if reg.IsHolder("anything") {
		t.Error("nil registry should report no holders")
	}
	if reg.Balance("anything") != 0 {
		t.Error("nil registry balance should be 0")
	}
	if reg.QuadraticWeight("anything") != 0 {
		t.Error("nil registry weight should be 0")
	}
}
