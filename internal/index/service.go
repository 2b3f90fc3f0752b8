package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/repoqa/repoqa/pkg/types"
)

// Task states, in lifecycle order
const (
	TaskPending    = "pending"
	TaskCloning    = "cloning"
	TaskProcessing = "processing"
	TaskCompleted  = "completed"
	TaskFailed     = "failed"
)

// contentCacheSize bounds the content-prefix cache used by candidate
// accessors. Entries are small (at most one ranking prefix each), so the
// cache covers a typical repository's hot files comfortably.
const contentCacheSize = 512

// vectorsPerFile is the reported estimate of index vectors per cataloged
// file. The external vector index owns the real count.
const vectorsPerFile = 10

// Request describes one indexing run
type Request struct {
	RepositoryURL   string   `json:"repository_url"`
	Branch          string   `json:"branch,omitempty"`
	IncludePatterns []string `json:"include_patterns,omitempty"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`
}

// TaskStatus is a point-in-time snapshot of one indexing task
type TaskStatus struct {
	TaskID             string  `json:"task_id"`
	Status             string  `json:"status"`
	Message            string  `json:"message,omitempty"`
	Progress           float64 `json:"progress"`
	CurrentFile        string  `json:"current_file,omitempty"`
	FilesProcessed     int     `json:"files_processed"`
	TotalFiles         int     `json:"total_files"`
	ElapsedSeconds     float64 `json:"elapsed_seconds"`
	EstimatedRemaining float64 `json:"estimated_remaining_seconds"`
	Error              string  `json:"error,omitempty"`
}

// Stats reports the state of the current index
type Stats struct {
	IsIndexed      bool       `json:"is_indexed"`
	RepositoryName string     `json:"repository_name,omitempty"`
	FileCount      int        `json:"file_count"`
	TotalSizeBytes int64      `json:"total_size"`
	VectorCount    int        `json:"vector_count"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// ClearStats reports what clearing the index removed
type ClearStats struct {
	FilesRemoved int     `json:"files_removed"`
	SpaceFreedMB float64 `json:"space_freed_mb"`
	Message      string  `json:"message"`
}

// Notifier receives a task snapshot on every progress change. The HTTP
// layer's websocket hub implements it; a nil notifier disables pushes.
type Notifier interface {
	NotifyProgress(status TaskStatus)
}

// ServiceConfig assembles a Service. Catalog is required.
type ServiceConfig struct {
	Catalog     *Catalog
	StorageDir  string
	MaxFileSize int64
	GithubToken string

	// Workers bounds concurrent file processing. Non-positive selects
	// runtime.NumCPU().
	Workers int

	// Notifier receives progress pushes; may be nil.
	Notifier Notifier

	// CacheReset is invoked after Clear so stale cached answers cannot
	// outlive the evidence they cite; may be nil.
	CacheReset func()
}

// Service runs task-tracked background indexing over the catalog and
// exposes the current file set as ranking candidates.
type Service struct {
	catalog  *Catalog
	crawler  *Crawler
	workers  int
	notifier Notifier
	reset    func()

	mu    sync.Mutex
	tasks map[string]*TaskStatus

	// contentCache memoizes ranking prefixes keyed by path, content hash,
	// and read limit. Re-indexing changes the hash, which naturally
	// invalidates the entry.
	contentCache *lru.Cache[string, string]
}

// NewService wires an indexing service from cfg
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("index: catalog is required")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	cache, err := lru.New[string, string](contentCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create content cache: %w", err)
	}

	return &Service{
		catalog:      cfg.Catalog,
		crawler:      NewCrawler(cfg.StorageDir, cfg.MaxFileSize, cfg.GithubToken),
		workers:      workers,
		notifier:     cfg.Notifier,
		reset:        cfg.CacheReset,
		tasks:        make(map[string]*TaskStatus),
		contentCache: cache,
	}, nil
}

// StartIndexing launches a background indexing task for req and returns its
// id immediately. Progress is observable through Status and the notifier.
func (s *Service) StartIndexing(ctx context.Context, req Request) (string, error) {
	if req.RepositoryURL == "" {
		return "", errors.New("repository_url is required")
	}

	taskID := uuid.NewString()
	s.mu.Lock()
	s.tasks[taskID] = &TaskStatus{
		TaskID:  taskID,
		Status:  TaskPending,
		Message: "Indexing queued",
	}
	s.mu.Unlock()

	// The task outlives the request that started it.
	go s.run(context.Background(), taskID, req)

	return taskID, nil
}

// Status returns a snapshot of the named task
func (s *Service) Status(taskID string) (TaskStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return TaskStatus{}, fmt.Errorf("task %q: %w", taskID, ErrTaskNotFound)
	}
	return *task, nil
}

// run executes one indexing task to completion or failure
func (s *Service) run(ctx context.Context, taskID string, req Request) {
	started := time.Now()

	s.update(taskID, func(t *TaskStatus) {
		t.Status = TaskCloning
		t.Message = "Cloning repository..."
	})

	clonePath, name, err := s.crawler.Clone(ctx, req.RepositoryURL, req.Branch)
	if err != nil {
		s.fail(taskID, fmt.Errorf("clone: %w", err))
		return
	}

	paths, err := s.crawler.Discover(clonePath, req.IncludePatterns, req.ExcludePatterns)
	if err != nil {
		s.fail(taskID, fmt.Errorf("discover files: %w", err))
		return
	}

	s.update(taskID, func(t *TaskStatus) {
		t.Status = TaskProcessing
		t.Message = fmt.Sprintf("Found %d files to process", len(paths))
		t.TotalFiles = len(paths)
		t.Progress = 10
	})

	files, err := s.processFiles(ctx, taskID, clonePath, paths, started)
	if err != nil {
		s.fail(taskID, fmt.Errorf("process files: %w", err))
		return
	}

	repo := &Repository{
		URL:       req.RepositoryURL,
		Name:      name,
		Branch:    req.Branch,
		LocalPath: clonePath,
		FileCount: len(files),
	}
	if err := s.catalog.UpsertRepository(ctx, repo); err != nil {
		s.fail(taskID, err)
		return
	}
	if err := s.catalog.ReplaceFiles(ctx, repo.ID, files); err != nil {
		s.fail(taskID, err)
		return
	}

	s.update(taskID, func(t *TaskStatus) {
		t.Status = TaskCompleted
		t.Message = fmt.Sprintf("Indexed %d files from %s", len(files), name)
		t.Progress = 100
		t.CurrentFile = ""
		t.ElapsedSeconds = time.Since(started).Seconds()
		t.EstimatedRemaining = 0
	})
	log.Printf("indexing task %s completed: %d files from %s", taskID, len(files), req.RepositoryURL)
}

// processFiles hashes and classifies the discovered files with bounded
// concurrency, keeping crawl order in the result. Skipped files (too large,
// not UTF-8) leave nil holes that are compacted out.
func (s *Service) processFiles(ctx context.Context, taskID, root string, paths []string, started time.Time) ([]*File, error) {
	results := make([]*File, len(paths))
	var processed int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, relPath := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			file, err := s.crawler.ProcessFile(root, relPath)
			if err != nil {
				// A file that vanished mid-crawl is not fatal.
				log.Printf("indexing task %s: skipping %s: %v", taskID, relPath, err)
			}
			results[i] = file

			done := int(atomic.AddInt32(&processed, 1))
			s.reportProgress(taskID, relPath, done, len(paths), started)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := make([]*File, 0, len(results))
	for _, f := range results {
		if f != nil {
			files = append(files, f)
		}
	}
	return files, nil
}

// reportProgress advances the task snapshot through the 10-90% file
// processing band and pushes it to the notifier.
func (s *Service) reportProgress(taskID, current string, done, total int, started time.Time) {
	elapsed := time.Since(started).Seconds()
	var remaining float64
	if done > 0 {
		remaining = elapsed*float64(total)/float64(done) - elapsed
		if remaining < 0 {
			remaining = 0
		}
	}

	s.update(taskID, func(t *TaskStatus) {
		t.Message = fmt.Sprintf("Processing %s", current)
		t.CurrentFile = current
		t.FilesProcessed = done
		t.Progress = 10 + float64(done)/float64(total)*80
		t.ElapsedSeconds = elapsed
		t.EstimatedRemaining = remaining
	})
}

// update mutates the task under the service lock and notifies afterward
func (s *Service) update(taskID string, mutate func(*TaskStatus)) {
	s.mu.Lock()
	task, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return
	}
	mutate(task)
	snapshot := *task
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.NotifyProgress(snapshot)
	}
}

func (s *Service) fail(taskID string, err error) {
	log.Printf("indexing task %s failed: %v", taskID, err)
	s.update(taskID, func(t *TaskStatus) {
		t.Status = TaskFailed
		t.Message = "Indexing failed"
		t.Error = err.Error()
	})
}

// Candidates returns the current repository's files in crawl order as
// ranking candidates. Content accessors read lazily from the clone, with a
// bounded-prefix cache keyed by content hash so repeated queries do not
// re-read unchanged files.
func (s *Service) Candidates(ctx context.Context, query string) ([]types.FileCandidate, error) {
	repo, err := s.catalog.CurrentRepository(ctx)
	if errors.Is(err, ErrNoRepository) {
		return nil, types.ErrNotIndexed
	}
	if err != nil {
		return nil, err
	}

	files, err := s.catalog.ListFiles(ctx, repo.ID)
	if err != nil {
		return nil, err
	}

	candidates := make([]types.FileCandidate, 0, len(files))
	for _, f := range files {
		candidates = append(candidates, types.FileCandidate{
			Path:     f.Path,
			Language: f.Language,
			Size:     f.SizeBytes,
			Content:  s.contentAccessor(repo.LocalPath, f),
		})
	}
	return candidates, nil
}

// contentAccessor builds the lazy reader for one cataloged file
func (s *Service) contentAccessor(root string, f *File) types.ContentFunc {
	full := filepath.Join(root, filepath.FromSlash(f.Path))
	return func(maxBytes int) (string, error) {
		key := f.Path + ":" + f.ContentHash + ":" + strconv.Itoa(maxBytes)
		if maxBytes > 0 {
			if cached, ok := s.contentCache.Get(key); ok {
				return cached, nil
			}
		}

		content, err := os.ReadFile(full)
		if err != nil {
			return "", err
		}
		if maxBytes > 0 && len(content) > maxBytes {
			content = content[:maxBytes]
		}

		text := string(content)
		if maxBytes > 0 {
			s.contentCache.Add(key, text)
		}
		return text, nil
	}
}

// Stats reports the current index state. An empty catalog is not an error;
// it reports is_indexed false.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	cs, err := s.catalog.Stats(ctx)
	if errors.Is(err, ErrNoRepository) {
		return &Stats{}, nil
	}
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		IsIndexed:      true,
		RepositoryName: cs.RepositoryName,
		FileCount:      cs.FileCount,
		TotalSizeBytes: cs.TotalSizeBytes,
		VectorCount:    cs.FileCount * vectorsPerFile,
	}
	if !cs.IndexedAt.IsZero() {
		t := cs.IndexedAt
		stats.LastUpdated = &t
	}
	if !cs.CreatedAt.IsZero() {
		t := cs.CreatedAt
		stats.CreatedAt = &t
	}
	return stats, nil
}

// Clear drops the catalog, removes cloned trees, purges the content cache,
// and invokes the cache-reset hook.
func (s *Service) Clear(ctx context.Context) (*ClearStats, error) {
	removed, bytesFreed, err := s.catalog.Clear(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.RemoveAll(s.crawler.ReposDir()); err != nil {
		return nil, fmt.Errorf("failed to remove clones: %w", err)
	}

	s.contentCache.Purge()
	if s.reset != nil {
		s.reset()
	}

	return &ClearStats{
		FilesRemoved: removed,
		SpaceFreedMB: float64(bytesFreed) / (1024 * 1024),
		Message:      "Index cleared successfully",
	}, nil
}

// Close closes the underlying catalog
func (s *Service) Close() error {
	return s.catalog.Close()
}
