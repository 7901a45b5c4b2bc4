package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Checkpoint errors.
var (
	ErrCheckpointExists     = errors.New("checkpoint already exists")
	ErrInvalidCheckpointTag = errors.New("invalid checkpoint tag")
	ErrInMemoryCheckpoint   = errors.New("in-memory databases cannot be checkpointed")
)

// maxAutoCheckpoints bounds how many automatic checkpoints are kept.
const maxAutoCheckpoints = 5

var checkpointTables = []string{"ingestion_batches", "ingestion_items", "transactions", "rules", "taxonomy_leaf"}

// CheckpointInfo describes a database snapshot taken before a risky operation.
type CheckpointInfo struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion uint           `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

// CheckpointManager snapshots the database file next to it.
type CheckpointManager struct {
	storage        *SQLiteStorage
	checkpointsDir string
}

// NewCheckpointManager creates a new checkpoint manager for this storage instance.
func (s *SQLiteStorage) NewCheckpointManager() (*CheckpointManager, error) {
	if s.dbPath == ":memory:" {
		return nil, ErrInMemoryCheckpoint
	}
	dir := filepath.Join(filepath.Dir(s.dbPath), "checkpoints")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	return &CheckpointManager{storage: s, checkpointsDir: dir}, nil
}

// Create snapshots the database under tag. An empty tag is derived from
// the current time.
func (cm *CheckpointManager) Create(ctx context.Context, tag, description string) (*CheckpointInfo, error) {
	return cm.create(ctx, tag, description, false)
}

// AutoCheckpoint snapshots the database before an operation and prunes old
// automatic snapshots.
func (cm *CheckpointManager) AutoCheckpoint(ctx context.Context, prefix string) (*CheckpointInfo, error) {
	tag := fmt.Sprintf("auto-%s-%s-%s", prefix, time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
	info, err := cm.create(ctx, tag, "automatic checkpoint before "+prefix, true)
	if err != nil {
		return nil, err
	}
	if err := cm.pruneAuto(); err != nil {
		slog.Warn("Failed to prune automatic checkpoints", "error", err)
	}
	return info, nil
}

func (cm *CheckpointManager) create(ctx context.Context, tag, description string, auto bool) (*CheckpointInfo, error) {
	if tag == "" {
		tag = "checkpoint-" + time.Now().UTC().Format("2006-01-02-1504")
	}
	if strings.ContainsAny(tag, `/\`) || strings.Contains(tag, "..") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCheckpointTag, tag)
	}

	dbPath := filepath.Join(cm.checkpointsDir, tag+".db")
	if _, err := os.Stat(dbPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointExists, tag)
	}

	counts, err := cm.rowCounts(ctx)
	if err != nil {
		return nil, err
	}
	version, _, err := cm.storage.SchemaVersion()
	if err != nil {
		return nil, err
	}

	if _, err := cm.storage.db.ExecContext(ctx, `VACUUM INTO ?`, dbPath); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", mapError(err))
	}
	stat, err := os.Stat(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}

	info := &CheckpointInfo{
		ID:            tag,
		CreatedAt:     time.Now().UTC(),
		Description:   description,
		FileSize:      stat.Size(),
		RowCounts:     counts,
		SchemaVersion: version,
		IsAuto:        auto,
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkpoint metadata: %w", err)
	}
	if err := os.WriteFile(cm.metaPath(tag), data, 0600); err != nil {
		if rmErr := os.Remove(dbPath); rmErr != nil {
			slog.Error("failed to remove checkpoint file after metadata save failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save checkpoint metadata: %w", err)
	}

	slog.Info("Created checkpoint", "id", tag, "size", info.FileSize)
	return info, nil
}

// List returns all checkpoints, newest first.
func (cm *CheckpointManager) List() ([]CheckpointInfo, error) {
	entries, err := os.ReadDir(cm.checkpointsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	var out []CheckpointInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(cm.checkpointsDir, entry.Name()))
		if err != nil {
			continue
		}
		var info CheckpointInfo
		if err := json.Unmarshal(data, &info); err != nil {
			// Skip corrupted metadata files
			continue
		}
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (cm *CheckpointManager) pruneAuto() error {
	all, err := cm.List()
	if err != nil {
		return err
	}
	kept := 0
	for _, info := range all {
		if !info.IsAuto {
			continue
		}
		kept++
		if kept <= maxAutoCheckpoints {
			continue
		}
		if err := os.Remove(filepath.Join(cm.checkpointsDir, info.ID+".db")); err != nil && !os.IsNotExist(err) {
			return err
		}
		if err := os.Remove(cm.metaPath(info.ID)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (cm *CheckpointManager) rowCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(checkpointTables))
	for _, table := range checkpointTables {
		var n int
		// Table names come from a fixed list.
		if err := cm.storage.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, mapError(err))
		}
		counts[table] = n
	}
	return counts, nil
}

func (cm *CheckpointManager) metaPath(tag string) string {
	return filepath.Join(cm.checkpointsDir, tag+".meta.json")
}
