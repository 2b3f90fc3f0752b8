package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoRepository is returned when no repository row exists yet
	ErrNoRepository = errors.New("no repository indexed")
	// ErrTaskNotFound is returned for unknown indexing task ids
	ErrTaskNotFound = errors.New("indexing task not found")
)

// Repository is one indexed repository
type Repository struct {
	ID        int64
	URL       string
	Name      string
	Branch    string
	LocalPath string
	FileCount int
	IndexedAt time.Time
	CreatedAt time.Time
}

// File is one cataloged file of a repository. ID doubles as crawl order.
type File struct {
	ID           int64
	RepositoryID int64
	Path         string
	Language     string
	SizeBytes    int64
	ContentHash  string
	ChunkCount   int
	IndexedAt    time.Time
}

// CatalogStats aggregates the catalog for the stats surface
type CatalogStats struct {
	RepositoryName string
	FileCount      int
	TotalSizeBytes int64
	IndexedAt      time.Time
	CreatedAt      time.Time
}

// Catalog is the SQLite-backed record of the indexed repository and its
// files. All methods are safe for concurrent use; SQLite runs with a single
// writer connection.
type Catalog struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewCatalog opens (creating if needed) the catalog at dbPath and applies
// pending migrations.
func NewCatalog(dbPath string) (*Catalog, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the database connection
func (c *Catalog) Close() error {
	return c.db.Close()
}

// UpsertRepository inserts the repository or updates the existing row for
// the same URL. The row's id is written back to repo.
func (c *Catalog) UpsertRepository(ctx context.Context, repo *Repository) error {
	query := `
		INSERT INTO repositories (url, name, branch, local_path, file_count, indexed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			name = excluded.name,
			branch = excluded.branch,
			local_path = excluded.local_path,
			file_count = excluded.file_count,
			indexed_at = excluded.indexed_at
	`
	now := time.Now().UTC()
	if repo.IndexedAt.IsZero() {
		repo.IndexedAt = now
	}
	if repo.CreatedAt.IsZero() {
		repo.CreatedAt = now
	}

	if _, err := c.db.ExecContext(ctx, query,
		repo.URL, repo.Name, repo.Branch, repo.LocalPath,
		repo.FileCount, repo.IndexedAt, repo.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert repository: %w", err)
	}

	row := c.db.QueryRowContext(ctx, "SELECT id, created_at FROM repositories WHERE url = ?", repo.URL)
	if err := row.Scan(&repo.ID, &repo.CreatedAt); err != nil {
		return fmt.Errorf("failed to read repository id: %w", err)
	}
	return nil
}

// ReplaceFiles atomically swaps the repository's file set for files. The
// new rows are inserted in slice order, so their ids preserve crawl order.
func (c *Catalog) ReplaceFiles(ctx context.Context, repositoryID int64, files []*File) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE repository_id = ?", repositoryID); err != nil {
		return fmt.Errorf("failed to drop previous file set: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO files (repository_id, path, language, size_bytes, content_hash, chunk_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare file insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, f := range files {
		if f.IndexedAt.IsZero() {
			f.IndexedAt = now
		}
		res, err := stmt.ExecContext(ctx, repositoryID, f.Path, f.Language,
			f.SizeBytes, f.ContentHash, f.ChunkCount, f.IndexedAt)
		if err != nil {
			return fmt.Errorf("failed to insert file %s: %w", f.Path, err)
		}
		if f.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read file id for %s: %w", f.Path, err)
		}
		f.RepositoryID = repositoryID
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE repositories SET file_count = ?, indexed_at = ? WHERE id = ?",
		len(files), now, repositoryID); err != nil {
		return fmt.Errorf("failed to update repository counts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit file set: %w", err)
	}
	return nil
}

// CurrentRepository returns the most recently indexed repository
func (c *Catalog) CurrentRepository(ctx context.Context) (*Repository, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, url, name, branch, local_path, file_count, indexed_at, created_at
		FROM repositories
		ORDER BY indexed_at DESC
		LIMIT 1
	`)

	repo := &Repository{}
	var indexedAt, createdAt sql.NullTime
	err := row.Scan(&repo.ID, &repo.URL, &repo.Name, &repo.Branch,
		&repo.LocalPath, &repo.FileCount, &indexedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRepository
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read current repository: %w", err)
	}
	if indexedAt.Valid {
		repo.IndexedAt = indexedAt.Time
	}
	if createdAt.Valid {
		repo.CreatedAt = createdAt.Time
	}
	return repo, nil
}

// ListFiles returns the repository's files in crawl order
func (c *Catalog) ListFiles(ctx context.Context, repositoryID int64) ([]*File, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, repository_id, path, language, size_bytes, content_hash, chunk_count, indexed_at
		FROM files
		WHERE repository_id = ?
		ORDER BY id
	`, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []*File
	for rows.Next() {
		f := &File{}
		var indexedAt sql.NullTime
		if err := rows.Scan(&f.ID, &f.RepositoryID, &f.Path, &f.Language,
			&f.SizeBytes, &f.ContentHash, &f.ChunkCount, &indexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		if indexedAt.Valid {
			f.IndexedAt = indexedAt.Time
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Stats aggregates the current repository and its file sizes
func (c *Catalog) Stats(ctx context.Context) (*CatalogStats, error) {
	repo, err := c.CurrentRepository(ctx)
	if err != nil {
		return nil, err
	}

	stats := &CatalogStats{
		RepositoryName: repo.Name,
		FileCount:      repo.FileCount,
		IndexedAt:      repo.IndexedAt,
		CreatedAt:      repo.CreatedAt,
	}

	row := c.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(size_bytes), 0) FROM files WHERE repository_id = ?", repo.ID)
	if err := row.Scan(&stats.TotalSizeBytes); err != nil {
		return nil, fmt.Errorf("failed to sum file sizes: %w", err)
	}
	return stats, nil
}

// Clear drops every repository and file row. Returns the number of file
// rows removed and the bytes of indexed content they described.
func (c *Catalog) Clear(ctx context.Context) (filesRemoved int, bytesFreed int64, err error) {
	row := c.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM files")
	if err := row.Scan(&filesRemoved, &bytesFreed); err != nil {
		return 0, 0, fmt.Errorf("failed to count files: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, "DELETE FROM files"); err != nil {
		return 0, 0, fmt.Errorf("failed to clear files: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, "DELETE FROM repositories"); err != nil {
		return 0, 0, fmt.Errorf("failed to clear repositories: %w", err)
	}
	return filesRemoved, bytesFreed, nil
}
