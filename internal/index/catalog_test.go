package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.Close() })
	return catalog
}

func TestCatalog_CurrentRepository_Empty(t *testing.T) {
	catalog := newTestCatalog(t)

	_, err := catalog.CurrentRepository(context.Background())
	assert.ErrorIs(t, err, ErrNoRepository)
}

func TestCatalog_UpsertRepository(t *testing.T) {
	catalog := newTestCatalog(t)
	ctx := context.Background()

	repo := &Repository{
		URL:       "https://github.com/example/webapp",
		Name:      "webapp",
		Branch:    "main",
		LocalPath: "/tmp/storage/repositories/webapp",
		FileCount: 3,
	}
	require.NoError(t, catalog.UpsertRepository(ctx, repo))
	assert.NotZero(t, repo.ID)

	// Upserting the same URL updates in place, keeping the id.
	firstID := repo.ID
	repo.Branch = "develop"
	require.NoError(t, catalog.UpsertRepository(ctx, repo))
	assert.Equal(t, firstID, repo.ID)

	current, err := catalog.CurrentRepository(ctx)
	require.NoError(t, err)
	assert.Equal(t, "webapp", current.Name)
	assert.Equal(t, "develop", current.Branch)
}

func TestCatalog_ReplaceFiles_PreservesCrawlOrder(t *testing.T) {
	catalog := newTestCatalog(t)
	ctx := context.Background()

	repo := &Repository{URL: "https://github.com/example/webapp", Name: "webapp", LocalPath: "/tmp/webapp"}
	require.NoError(t, catalog.UpsertRepository(ctx, repo))

	first := []*File{
		{Path: "README.md", Language: "markdown", SizeBytes: 120, ContentHash: "aa", ChunkCount: 1},
		{Path: "src/config.py", Language: "python", SizeBytes: 300, ContentHash: "bb", ChunkCount: 1},
	}
	require.NoError(t, catalog.ReplaceFiles(ctx, repo.ID, first))

	second := []*File{
		{Path: "src/chunker.py", Language: "python", SizeBytes: 900, ContentHash: "cc", ChunkCount: 2},
		{Path: "src/config.py", Language: "python", SizeBytes: 310, ContentHash: "dd", ChunkCount: 1},
		{Path: "README.md", Language: "markdown", SizeBytes: 120, ContentHash: "aa", ChunkCount: 1},
	}
	require.NoError(t, catalog.ReplaceFiles(ctx, repo.ID, second))

	files, err := catalog.ListFiles(ctx, repo.ID)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "src/chunker.py", files[0].Path)
	assert.Equal(t, "src/config.py", files[1].Path)
	assert.Equal(t, "README.md", files[2].Path)

	current, err := catalog.CurrentRepository(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, current.FileCount)
}

func TestCatalog_Stats(t *testing.T) {
	catalog := newTestCatalog(t)
	ctx := context.Background()

	repo := &Repository{URL: "https://github.com/example/webapp", Name: "webapp", LocalPath: "/tmp/webapp"}
	require.NoError(t, catalog.UpsertRepository(ctx, repo))
	require.NoError(t, catalog.ReplaceFiles(ctx, repo.ID, []*File{
		{Path: "a.py", SizeBytes: 100, ContentHash: "aa"},
		{Path: "b.py", SizeBytes: 250, ContentHash: "bb"},
	}))

	stats, err := catalog.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "webapp", stats.RepositoryName)
	assert.Equal(t, 2, stats.FileCount)
	assert.Equal(t, int64(350), stats.TotalSizeBytes)
}

func TestCatalog_Clear(t *testing.T) {
	catalog := newTestCatalog(t)
	ctx := context.Background()

	repo := &Repository{URL: "https://github.com/example/webapp", Name: "webapp", LocalPath: "/tmp/webapp"}
	require.NoError(t, catalog.UpsertRepository(ctx, repo))
	require.NoError(t, catalog.ReplaceFiles(ctx, repo.ID, []*File{
		{Path: "a.py", SizeBytes: 100, ContentHash: "aa"},
		{Path: "b.py", SizeBytes: 200, ContentHash: "bb"},
	}))

	removed, freed, err := catalog.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, int64(300), freed)

	_, err = catalog.CurrentRepository(ctx)
	assert.ErrorIs(t, err, ErrNoRepository)
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	catalog, err := NewCatalog(dbPath)
	require.NoError(t, err)
	require.NoError(t, catalog.Close())

	// Reopening reapplies nothing and succeeds.
	catalog, err = NewCatalog(dbPath)
	require.NoError(t, err)
	require.NoError(t, catalog.Close())
}
