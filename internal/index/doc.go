// Package index implements the repository crawler and file catalog that
// supply query candidates to the ranking core.
//
// # Architecture
//
// The package has three layers:
//
//   - Catalog: a SQLite-backed record of the indexed repository and its
//     files. The schema is versioned and migrated on open. Two drivers are
//     supported through build tags: modernc.org/sqlite (pure Go, default)
//     and mattn/go-sqlite3 (cgo, build with -tags sqlite_cgo).
//
//   - Crawler: clones a repository shallowly and walks the tree, applying
//     include/exclude glob patterns, a file-size ceiling, and a UTF-8
//     check. Each kept file is hashed and its language detected from the
//     extension.
//
//   - Service: ties the two together behind task-tracked background
//     indexing. StartIndexing returns immediately with a task id; progress
//     is observable through Status and pushed to an optional notifier.
//     Candidates exposes the current file set, in crawl order, with lazy
//     content accessors for the ranker.
//
// # Usage
//
//	catalog, err := index.NewCatalog(filepath.Join(dir, "catalog.db"))
//	if err != nil { ... }
//	svc := index.NewService(index.ServiceConfig{
//	    Catalog:    catalog,
//	    StorageDir: dir,
//	})
//	taskID, err := svc.StartIndexing(ctx, index.Request{
//	    RepositoryURL: "https://github.com/example/repo",
//	})
//
// Indexing replaces the previous file set for the same repository URL.
// Clear drops the catalog rows, removes the cloned tree, and invokes the
// configured cache-reset hook so stale cached answers cannot outlive the
// evidence they cite.
package index
