// Package analyzer implements the Repo Analyzer (C4): given a repository
// URL, it calls the host code platform's metadata API and produces a file
// manifest with per-file relevance labels, dependency excerpts, and a
// size histogram. It follows the teacher's internal/bitcoin/client.go
// shape — a Config, a Client wrapping the transport, and typed wrapper
// methods that return wrapped errors — adapted from an RPC client to a
// REST client.
package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Config configures the Client's transport.
type Config struct {
	// BaseURL defaults to https://api.github.com; overridable for tests.
	BaseURL string
	// Token authenticates requests against the host platform; empty
	// means unauthenticated (lower rate limits).
	Token string
	// HTTPClient defaults to a client with a 15s timeout.
	HTTPClient *http.Client
}

// Client fetches repository metadata over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.github.com"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: base, token: cfg.Token, http: hc}
}

// ErrNotFound and ErrRateLimited are the structured failure modes §4.4
// requires: downstream components treat either as "no code context"
// rather than failing the whole research run.
var (
	ErrNotFound    = fmt.Errorf("analyzer: repository not found")
	ErrRateLimited = fmt.Errorf("analyzer: rate limited by host platform")
)

// Relevance labels a file's importance to a reviewer, per §4.4.
type Relevance string

const (
	RelevanceHigh       Relevance = "high"
	RelevanceMediumHigh Relevance = "medium-high"
	RelevanceMedium     Relevance = "medium"
	RelevanceLow        Relevance = "low"
)

// FileEntry is one blob in the repository tree.
type FileEntry struct {
	Path      string
	Bytes     int64
	Extension string
	Relevance Relevance
	Rationale string
}

// RepoFacts are the repo-level metadata fields §4.4 lists.
type RepoFacts struct {
	Description      string
	License           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CommitsLast72h   int
	TopContributors  []string
	Topics           []string
}

// DependencyExcerpt holds the first 40 lines of one dependency manifest.
type DependencyExcerpt struct {
	Path  string
	Lines []string
}

// SizeHistogram buckets file counts by size.
type SizeHistogram map[string]int

var histogramBuckets = []struct {
	label string
	max   int64 // exclusive upper bound; last bucket has no bound
}{
	{"<1KB", 1024},
	{"1-10KB", 10 * 1024},
	{"10-50KB", 50 * 1024},
	{"50-200KB", 200 * 1024},
	{">200KB", -1},
}

func bucketFor(size int64) string {
	for _, b := range histogramBuckets {
		if b.max < 0 || size < b.max {
			return b.label
		}
	}
	return ">200KB"
}

// Result is the Analyzer's full output, before the Curator reduces it.
type Result struct {
	Facts              RepoFacts
	Files              []FileEntry
	DependencyExcerpts []DependencyExcerpt
	Histogram          SizeHistogram
	TokenBudget        int
	TotalBytes         int64
}

var repoURLPattern = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+?)(?:\.git)?(?:/.*)?$`)

func parseOwnerRepo(repoURL string) (owner, repo string, ok bool) {
	m := repoURLPattern.FindStringSubmatch(repoURL)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// Analyze fetches repo metadata, the file tree, and dependency excerpts,
// and assembles the full Result. Every entry the recursive-tree API
// returns is used as-is; its truncated flag is not checked, so a tree
// the API cut short yields a partial manifest rather than an error.
func (c *Client) Analyze(ctx context.Context, repoURL string) (*Result, error) {
	owner, repo, ok := parseOwnerRepo(repoURL)
	if !ok {
		return nil, fmt.Errorf("analyzer: %q is not a github.com repository URL", repoURL)
	}

	meta, err := c.fetchRepoMeta(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	facts := RepoFacts{
		Description: meta.Description,
		License:     meta.License.SPDXID,
		CreatedAt:   meta.CreatedAt,
		UpdatedAt:   meta.UpdatedAt,
		Topics:      meta.Topics,
	}

	facts.CommitsLast72h, err = c.countRecentCommits(ctx, owner, repo)
	if err != nil {
		// Commit history is enrichment, not core to the manifest — a
		// rate-limited secondary call shouldn't fail the whole analysis.
		facts.CommitsLast72h = 0
	}
	facts.TopContributors, err = c.topContributors(ctx, owner, repo)
	if err != nil {
		facts.TopContributors = nil
	}

	tree, err := c.fetchTree(ctx, owner, repo, meta.DefaultBranch)
	if err != nil {
		return nil, err
	}

	var files []FileEntry
	var totalBytes int64
	histogram := make(SizeHistogram)
	var depCandidates []string
	for _, entry := range tree {
		if entry.Type != "blob" {
			continue
		}
		ext := extensionOf(entry.Path)
		relevance, rationale := classify(entry.Path, ext)
		files = append(files, FileEntry{
			Path:      entry.Path,
			Bytes:     entry.Size,
			Extension: ext,
			Relevance: relevance,
			Rationale: rationale,
		})
		totalBytes += entry.Size
		histogram[bucketFor(entry.Size)]++
		if isDependencyManifest(entry.Path) {
			depCandidates = append(depCandidates, entry.Path)
		}
	}

	var excerpts []DependencyExcerpt
	for i, path := range depCandidates {
		if i >= 3 {
			break
		}
		lines, err := c.fetchFirstLines(ctx, owner, repo, path, 40)
		if err != nil {
			continue
		}
		excerpts = append(excerpts, DependencyExcerpt{Path: path, Lines: lines})
	}

	return &Result{
		Facts:              facts,
		Files:              files,
		DependencyExcerpts: excerpts,
		Histogram:          histogram,
		TokenBudget:        50_000 - int(totalBytes/4),
		TotalBytes:         totalBytes,
	}, nil
}

func extensionOf(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 || idx == len(path)-1 {
		return ""
	}
	return path[idx:]
}

var coreDirs = []string{"src/", "lib/", "contracts/", "cmd/", "app/"}

var sourceExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".rs": true,
	".go": true, ".sol": true, ".java": true, ".c": true, ".h": true, ".cpp": true,
	".hpp": true, ".rb": true, ".php": true, ".swift": true, ".kt": true, ".scala": true,
	".cs": true, ".m": true,
}

var docExtensions = map[string]bool{".md": true, ".rst": true}

var dependencyManifestNames = map[string]bool{
	"package.json": true, "requirements.txt": true, "go.mod": true, "cargo.toml": true,
	"gemfile": true, "pom.xml": true, "build.gradle": true, "composer.json": true,
	"pyproject.toml": true, "poetry.lock": true, "yarn.lock": true, "package-lock.json": true,
}

var generatedMarkers = []string{
	"node_modules/", "dist/", "build/", "vendor/", "__pycache__/", ".min.js", ".min.css",
}

var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true, ".woff": true,
	".woff2": true, ".ttf": true, ".exe": true, ".dll": true, ".so": true, ".bin": true,
	".zip": true, ".tar": true, ".gz": true, ".pdf": true,
}

func isDependencyManifest(path string) bool {
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	return dependencyManifestNames[strings.ToLower(base)]
}

func isUnderCoreDir(path string) bool {
	lower := strings.ToLower(path)
	for _, dir := range coreDirs {
		if strings.HasPrefix(lower, dir) || strings.Contains(lower, "/"+dir) {
			return true
		}
	}
	return false
}

func isTestPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "test") || strings.Contains(lower, "spec") || strings.Contains(lower, "__tests__")
}

// classify implements the §4.4 relevance-label decision table.
func classify(path, ext string) (Relevance, string) {
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	lowerBase := strings.ToLower(base)

	if strings.HasPrefix(lowerBase, ".") {
		return RelevanceLow, "hidden file"
	}
	for _, marker := range generatedMarkers {
		if strings.Contains(strings.ToLower(path), marker) {
			return RelevanceLow, "generated or vendored path"
		}
	}
	if binaryExtensions[ext] {
		return RelevanceLow, "binary asset"
	}
	if strings.HasSuffix(lowerBase, ".tmp") || strings.HasSuffix(lowerBase, ".log") || strings.HasSuffix(lowerBase, ".cache") {
		return RelevanceLow, "temp or log file"
	}

	if isUnderCoreDir(path) {
		return RelevanceHigh, "under a core source directory"
	}
	if sourceExtensions[ext] {
		return RelevanceMediumHigh, "source file outside core directories"
	}
	if isDependencyManifest(path) {
		return RelevanceMedium, "dependency manifest"
	}
	if docExtensions[ext] {
		return RelevanceMedium, "documentation"
	}
	if isTestPath(path) {
		return RelevanceMedium, "test file"
	}
	return RelevanceLow, "unclassified"
}

// --- GitHub REST wire types and HTTP plumbing ---

type repoMeta struct {
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	DefaultBranch string    `json:"default_branch"`
	Topics        []string  `json:"topics"`
	License       struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type treeResponse struct {
	Tree      []treeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer: request to %s failed: %w", path, err)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	case http.StatusForbidden, http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, ErrRateLimited
	}
	return resp, nil
}

func (c *Client) fetchRepoMeta(ctx context.Context, owner, repo string) (*repoMeta, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s", owner, repo))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var meta repoMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("analyzer: failed to decode repo metadata: %w", err)
	}
	return &meta, nil
}

func (c *Client) fetchTree(ctx context.Context, owner, repo, branch string) ([]treeEntry, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/git/trees/%s?recursive=1", owner, repo, branch))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var tree treeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tree); err != nil {
		return nil, fmt.Errorf("analyzer: failed to decode repo tree: %w", err)
	}
	return tree.Tree, nil
}

func (c *Client) countRecentCommits(ctx context.Context, owner, repo string) (int, error) {
	since := time.Now().Add(-72 * time.Hour).UTC().Format(time.RFC3339)
	resp, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/commits?since=%s&per_page=100", owner, repo, since))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var commits []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&commits); err != nil {
		return 0, fmt.Errorf("analyzer: failed to decode commit list: %w", err)
	}
	return len(commits), nil
}

func (c *Client) topContributors(ctx context.Context, owner, repo string) ([]string, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/contributors?per_page=5", owner, repo))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var contributors []struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&contributors); err != nil {
		return nil, fmt.Errorf("analyzer: failed to decode contributors: %w", err)
	}
	logins := make([]string, 0, len(contributors))
	for _, c := range contributors {
		logins = append(logins, c.Login)
	}
	return logins, nil
}

func (c *Client) fetchFirstLines(ctx context.Context, owner, repo, path string, n int) ([]string, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var body contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("analyzer: failed to decode file contents for %s: %w", path, err)
	}
	var raw []byte
	if body.Encoding == "base64" {
		raw, err = base64.StdEncoding.DecodeString(strings.ReplaceAll(body.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("analyzer: failed to decode base64 contents for %s: %w", path, err)
		}
	} else {
		raw = []byte(body.Content)
	}
	lines := strings.Split(string(raw), "\n")
	if n > 0 && len(lines) > n {
		lines = lines[:n]
	}
	return lines, nil
}

// FetchFile returns the full decoded text content of one file in a
// repository — used by the repo-packager to assemble the Curator's
// selected files into one concatenated snapshot.
func (c *Client) FetchFile(ctx context.Context, repoURL, path string) (string, error) {
	owner, repo, ok := parseOwnerRepo(repoURL)
	if !ok {
		return "", fmt.Errorf("analyzer: %q is not a github.com repository URL", repoURL)
	}
	lines, err := c.fetchFirstLines(ctx, owner, repo, path, 0)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}
