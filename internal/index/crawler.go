package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Default crawl filters. Include patterns match base names; exclude
// patterns match base names and any path segment.
var (
	DefaultIncludePatterns = []string{
		"*.py", "*.md", "*.txt", "*.json", "*.yaml", "*.yml", "*.go", "*.js", "*.ts",
	}
	DefaultExcludePatterns = []string{
		".git", "__pycache__", "venv", "node_modules", "vendor", "*.log",
	}
)

// DefaultMaxFileSize skips files larger than 1 MiB
const DefaultMaxFileSize = 1 << 20

// chunkUnit is the character span one retrieval chunk is assumed to cover
// when estimating chunk counts for the catalog.
const chunkUnit = 512

// languageByExtension maps file extensions to declared languages
var languageByExtension = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".ts":    "typescript",
	".jsx":   "javascript",
	".tsx":   "typescript",
	".java":  "java",
	".cpp":   "cpp",
	".c":     "c",
	".h":     "c",
	".hpp":   "cpp",
	".rs":    "rust",
	".go":    "go",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".sh":    "shell",
	".bash":  "shell",
	".md":    "markdown",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".xml":   "xml",
	".html":  "html",
	".css":   "css",
	".scss":  "scss",
	".sql":   "sql",
}

// DetectLanguage maps a file extension (with leading dot) to its language.
// Unknown extensions return the empty string.
func DetectLanguage(ext string) string {
	return languageByExtension[strings.ToLower(ext)]
}

// Crawler clones repositories and discovers indexable files
type Crawler struct {
	storageDir  string
	maxFileSize int64
	githubToken string
}

// NewCrawler creates a crawler that clones under storageDir/repositories.
// A non-positive maxFileSize selects DefaultMaxFileSize.
func NewCrawler(storageDir string, maxFileSize int64, githubToken string) *Crawler {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Crawler{
		storageDir:  storageDir,
		maxFileSize: maxFileSize,
		githubToken: githubToken,
	}
}

// ReposDir is the directory clones live under
func (c *Crawler) ReposDir() string {
	return filepath.Join(c.storageDir, "repositories")
}

// Clone shallow-clones repoURL at branch (default branch when empty) into
// the crawler's storage directory, replacing any previous clone of the same
// repository. Returns the clone path and the repository name.
func (c *Crawler) Clone(ctx context.Context, repoURL, branch string) (string, string, error) {
	name := RepositoryName(repoURL)
	dest := filepath.Join(c.ReposDir(), name)

	if err := os.RemoveAll(dest); err != nil {
		return "", "", fmt.Errorf("failed to remove previous clone: %w", err)
	}
	if err := os.MkdirAll(c.ReposDir(), 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create repositories dir: %w", err)
	}

	args := []string{"clone", "--depth", "1"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, c.cloneURL(repoURL), dest)

	cmd := exec.CommandContext(ctx, "git", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", "", fmt.Errorf("git clone failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return dest, name, nil
}

// cloneURL injects the configured token into https GitHub URLs so private
// repositories clone without interactive credentials.
func (c *Crawler) cloneURL(repoURL string) string {
	if c.githubToken == "" {
		return repoURL
	}
	u, err := url.Parse(repoURL)
	if err != nil || u.Scheme != "https" || u.User != nil {
		return repoURL
	}
	u.User = url.User(c.githubToken)
	return u.String()
}

// RepositoryName derives a directory-safe name from a repository URL
func RepositoryName(repoURL string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(repoURL, "/"), ".git")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if trimmed == "" {
		return "repository"
	}
	return trimmed
}

// Discover walks root and returns the relative paths of files passing the
// include and exclude patterns, in walk order. Hidden directories and
// excluded path segments are pruned without descending.
func (c *Crawler) Discover(root string, include, exclude []string) ([]string, error) {
	if len(include) == 0 {
		include = DefaultIncludePatterns
	}
	if len(exclude) == 0 {
		exclude = DefaultExcludePatterns
	}

	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(info.Name(), ".") || matchesAny(info.Name(), exclude) {
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAny(info.Name(), exclude) {
			return nil
		}
		if !matchesAny(info.Name(), include) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	return paths, err
}

// matchesAny reports whether name matches any glob pattern. Patterns
// without glob metacharacters match exactly.
func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// ProcessFile reads one discovered file and builds its catalog record.
// Files over the size limit and files that are not valid UTF-8 are skipped
// with a nil record and nil error.
func (c *Crawler) ProcessFile(root, relPath string) (*File, error) {
	full := filepath.Join(root, relPath)

	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", relPath, err)
	}
	if info.Size() > c.maxFileSize {
		return nil, nil
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", relPath, err)
	}
	if !utf8.Valid(content) {
		return nil, nil
	}

	sum := sha256.Sum256(content)
	return &File{
		Path:        filepath.ToSlash(relPath),
		Language:    DetectLanguage(filepath.Ext(relPath)),
		SizeBytes:   info.Size(),
		ContentHash: hex.EncodeToString(sum[:]),
		ChunkCount:  len(content)/chunkUnit + 1,
	}, nil
}
