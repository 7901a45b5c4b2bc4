package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/statement-flow/internal/config"
	"github.com/Veraticus/statement-flow/internal/ingest"
	"github.com/Veraticus/statement-flow/internal/storage"
)

// envKeyReplacer maps nested keys to FLOW_INGEST_USER_ID style variables.
var envKeyReplacer = strings.NewReplacer(".", "_")

// app bundles what most commands need.
type app struct {
	cfg   *config.Config
	store *storage.SQLiteStorage
	svc   *ingest.Service
}

// openApp loads configuration, opens and migrates the database and builds
// the pipeline. Callers must Close the result.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, store: store, svc: ingest.NewService(store, cfg.IngestOptions())}, nil
}

func (a *app) userID() string {
	return a.cfg.Ingest.UserID
}

func (a *app) Close() error {
	return a.store.Close()
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}

// shortID trims a UUID for table output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
