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
)

// ErrBackupUnavailable is returned when the database has no file to back up.
var ErrBackupUnavailable = errors.New("in-memory database cannot be backed up")

// BackupInfo describes a database snapshot taken before a risky operation.
type BackupInfo struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Path          string         `json:"path"`
	Reason        string         `json:"reason"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
}

// backupTables are the tables counted into each snapshot's metadata.
var backupTables = []string{
	"transactions",
	"categories",
	"merchant_mappings",
	"recurring_rules",
	"pattern_suggestions",
}

// BackupDir returns the directory snapshots are written to, next to the database file.
func (s *SQLiteStorage) BackupDir() string {
	return filepath.Join(filepath.Dir(s.dbPath), "backups")
}

// Backup writes a consistent copy of the database with VACUUM INTO and records its metadata
// alongside it.
func (s *SQLiteStorage) Backup(ctx context.Context, reason string) (*BackupInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if s.dbPath == "" || s.dbPath == ":memory:" {
		return nil, ErrBackupUnavailable
	}

	dir, err := filepath.Abs(s.BackupDir())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backup directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	now := time.Now()
	id := "backup-" + now.Format("20060102-150405.000")
	dest := filepath.Join(dir, id+".db")
	if strings.ContainsAny(dest, `'";`) {
		return nil, fmt.Errorf("invalid backup path %q", dest)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	// #nosec G201 - dest is built from a timestamp and checked above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	stat, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}
	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}

	info := &BackupInfo{
		ID:            id,
		Path:          dest,
		Reason:        reason,
		CreatedAt:     now,
		FileSize:      stat.Size(),
		SchemaVersion: version,
		RowCounts:     s.rowCounts(ctx),
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backup metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, id+".meta.json"), data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write backup metadata: %w", err)
	}

	slog.Info("Database backed up", "id", id, "reason", reason, "size", stat.Size())
	return info, nil
}

// ListBackups returns the recorded snapshots, newest first. Unreadable metadata is skipped.
func (s *SQLiteStorage) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.BackupDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.BackupDir(), entry.Name())) // #nosec G304 - listed from our own directory
		if err != nil {
			continue
		}
		var info BackupInfo
		if err := json.Unmarshal(data, &info); err != nil {
			slog.Warn("Skipping unreadable backup metadata", "file", entry.Name(), "error", err)
			continue
		}
		backups = append(backups, info)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

func (s *SQLiteStorage) rowCounts(ctx context.Context) map[string]int {
	counts := make(map[string]int, len(backupTables))
	for _, table := range backupTables {
		var count int
		// #nosec G202 - table names come from a fixed list
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			// Older schemas may not have every table yet.
			counts[table] = 0
			continue
		}
		counts[table] = count
	}
	return counts
}
