package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"autoapply/internal/config"
	"autoapply/internal/logging"
)

// Open acquires the single-instance lock, opens the sqlite database and
// prepares the schema. A second concurrent run fails fast instead of racing
// the browser session and the writer connection.
func Open(cfg *config.Config) (*Store, error) {
	lockPath := cfg.Store.LockPath
	if lockPath == "" {
		lockPath = cfg.Store.Path + ".lock"
	}
	if dir := filepath.Dir(cfg.Store.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire store lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another instance is already running (lock held at %s)", lockPath)
	}

	db, err := openDatabase(cfg.Store.Path)
	if err != nil {
		_ = fileLock.Unlock()
		return nil, err
	}

	store := &Store{
		db:      db,
		lock:    fileLock,
		applied: make(map[string]struct{}),
	}

	if err := store.migrate(); err != nil {
		_ = db.Close()
		_ = fileLock.Unlock()
		return nil, fmt.Errorf("failed to migrate store schema: %w", err)
	}
	if err := store.loadAppliedJobs(); err != nil {
		// Warm-up failure is recoverable: IsApplied still hits the database
		logging.GetGlobalLogger().Warn("Failed to preload applied jobs", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logging.GetGlobalLogger().Info("Application store opened", map[string]interface{}{
		"path":    cfg.Store.Path,
		"applied": len(store.applied),
	})

	return store, nil
}

func openDatabase(path string) (*sql.DB, error) {
	// modernc sqlite DSN: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// sqlite wants a single writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
