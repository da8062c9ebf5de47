package analyzer

import "testing"

func TestParseOwnerRepo(t *testing.T) {
	cases := []struct {
		url       string
		wantOwner string
		wantRepo  string
		wantOK    bool
	}{
		{"https://github.com/acme/zephyr", "acme", "zephyr", true},
		{"https://github.com/acme/zephyr.git", "acme", "zephyr", true},
		{"https://github.com/acme/zephyr/tree/main", "acme", "zephyr", true},
		{"https://gitlab.com/acme/zephyr", "", "", false},
	}
	for _, c := range cases {
		owner, repo, ok := parseOwnerRepo(c.url)
		if ok != c.wantOK || owner != c.wantOwner || repo != c.wantRepo {
			t.Errorf("parseOwnerRepo(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.url, owner, repo, ok, c.wantOwner, c.wantRepo, c.wantOK)
		}
	}
}

func TestClassifyCoreDirIsHigh(t *testing.T) {
	rel, _ := classify("src/main.go", ".go")
	if rel != RelevanceHigh {
		t.Errorf("classify(src/main.go) = %v, want high", rel)
	}
}

func TestClassifySourceOutsideCoreDirIsMediumHigh(t *testing.T) {
	rel, _ := classify("scripts/build.py", ".py")
	if rel != RelevanceMediumHigh {
		t.Errorf("classify(scripts/build.py) = %v, want medium-high", rel)
	}
}

func TestClassifyDependencyManifestIsMedium(t *testing.T) {
	rel, _ := classify("package.json", ".json")
	if rel != RelevanceMedium {
		t.Errorf("classify(package.json) = %v, want medium", rel)
	}
}

func TestClassifyDocIsMedium(t *testing.T) {
	rel, _ := classify("README.md", ".md")
	if rel != RelevanceMedium {
		t.Errorf("classify(README.md) = %v, want medium", rel)
	}
}

func TestClassifyGeneratedIsLow(t *testing.T) {
	rel, _ := classify("node_modules/lib/index.js", ".js")
	if rel != RelevanceLow {
		t.Errorf("classify(node_modules/...) = %v, want low", rel)
	}
}

func TestClassifyHiddenIsLow(t *testing.T) {
	rel, _ := classify(".gitignore", "")
	if rel != RelevanceLow {
		t.Errorf("classify(.gitignore) = %v, want low", rel)
	}
}

func TestBucketForBoundaries(t *testing.T) {
	cases := []struct {
		size int64
		want string
	}{
		{0, "<1KB"},
		{1023, "<1KB"},
		{1024, "1-10KB"},
		{10*1024 - 1, "1-10KB"},
		{200 * 1024, ">200KB"},
		{10 * 1024 * 1024, ">200KB"},
	}
	for _, c := range cases {
		if got := bucketFor(c.size); got != c.want {
			t.Errorf("bucketFor(%d) = %q, want %q", c.size, got, c.want)
		}
	}
}

func TestTokenBudgetFormula(t *testing.T) {
	// 50_000 - total_bytes/4, negative signals oversize.
	totalBytes := int64(10_000_000)
	budget := 50_000 - int(totalBytes/4)
	if budget >= 0 {
		t.Fatalf("expected a huge repo to yield a negative token budget, got %d", budget)
	}
}
