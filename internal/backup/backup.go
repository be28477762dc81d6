package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/habitbell/internal/constants"
	"github.com/julianstephens/habitbell/internal/logger"
)

const timestampLayout = "20060102-150405"

// Info describes one snapshot file
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Manager takes, rotates and restores snapshots of a SQLite habit database.
// Snapshots live in a "backups" directory next to the database.
type Manager struct {
	dbPath    string
	backupDir string
	keep      int
	clock     clockwork.Clock
}

type Option func(*Manager)

func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithRetention sets how many snapshots survive rotation.
func WithRetention(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.keep = n
		}
	}
}

func NewManager(dbPath string, opts ...Option) *Manager {
	m := &Manager{
		dbPath:    dbPath,
		backupDir: filepath.Join(filepath.Dir(dbPath), constants.BackupDirName),
		keep:      constants.MaxBackups,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Dir() string {
	return m.backupDir
}

// Create snapshots the database and rotates old snapshots.
func (m *Manager) Create(ctx context.Context) (Info, error) {
	info, err := m.snapshot(ctx)
	if err != nil {
		return Info{}, err
	}
	if err := m.rotate(); err != nil {
		logger.Warn("Failed to rotate old backups", "error", err)
	}
	return info, nil
}

// BeforeClear snapshots the database ahead of a history wipe.
func (m *Manager) BeforeClear(ctx context.Context, userID int64) error {
	info, err := m.Create(ctx)
	if err != nil {
		return fmt.Errorf("backup before clearing history: %w", err)
	}
	logger.Info("Backup taken before clearing history", "user", userID, "path", info.Path)
	return nil
}

func (m *Manager) snapshot(ctx context.Context) (Info, error) {
	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return Info{}, fmt.Errorf("failed to create backup directory: %w", err)
	}
	if _, err := os.Stat(m.dbPath); err != nil {
		return Info{}, fmt.Errorf("database does not exist: %s", m.dbPath)
	}

	dest, ts, err := m.nextPath()
	if err != nil {
		return Info{}, err
	}

	db, err := sql.Open("sqlite", m.dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return Info{}, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := verify(ctx, db); err != nil {
		return Info{}, fmt.Errorf("database appears to be corrupted: %w", err)
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return Info{}, fmt.Errorf("failed to backup database: %w", err)
	}

	stat, err := os.Stat(dest)
	if err != nil {
		return Info{}, err
	}
	return Info{Path: dest, Timestamp: ts, Size: stat.Size()}, nil
}

// nextPath picks an unused snapshot name for the current second.
func (m *Manager) nextPath() (string, time.Time, error) {
	now := m.clock.Now()
	stamp := now.Format(timestampLayout)
	for n := 0; n < 100; n++ {
		name := constants.BackupFilePrefix + stamp
		if n > 0 {
			name += "-" + strconv.Itoa(n)
		}
		path := filepath.Join(m.backupDir, name+constants.BackupFileSuffix)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, now, nil
		}
	}
	return "", time.Time{}, fmt.Errorf("failed to generate unique backup filename")
}

// List returns snapshots newest first. Files that do not look like snapshots are skipped.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []Info{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, seq, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			continue
		}
		// Keep same-second snapshots ordered by their counter
		backups = append(backups, Info{
			Path:      filepath.Join(m.backupDir, entry.Name()),
			Timestamp: ts.Add(time.Duration(seq)),
			Size:      stat.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

func parseName(name string) (time.Time, int, bool) {
	if !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, constants.BackupFileSuffix) {
		return time.Time{}, 0, false
	}
	stem := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), constants.BackupFileSuffix)

	seq := 0
	if len(stem) > len(timestampLayout) {
		n, err := strconv.Atoi(strings.TrimPrefix(stem[len(timestampLayout):], "-"))
		if err != nil {
			return time.Time{}, 0, false
		}
		seq = n
		stem = stem[:len(timestampLayout)]
	}

	ts, err := time.ParseInLocation(timestampLayout, stem, time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	return ts, seq, true
}

func (m *Manager) rotate() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for i := m.keep; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// Restore replaces the database with the snapshot at path. The current
// database is snapshotted first. The store must be closed by the caller.
func (m *Manager) Restore(ctx context.Context, path string) (Info, error) {
	if _, err := os.Stat(path); err != nil {
		return Info{}, fmt.Errorf("backup file does not exist: %s", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Info{}, err
	}
	err = verifyHabitSchema(ctx, db)
	db.Close()
	if err != nil {
		return Info{}, fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var previous Info
	if _, err := os.Stat(m.dbPath); err == nil {
		previous, err = m.snapshot(ctx)
		if err != nil {
			return Info{}, fmt.Errorf("failed to backup current database before restore: %w", err)
		}
		logger.Info("Backed up current database before restore", "path", previous.Path)
	}

	tempPath := m.dbPath + ".restore.tmp"
	if err := copyFile(path, tempPath); err != nil {
		return Info{}, fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(tempPath, m.dbPath); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			logger.Warn("Failed to remove temporary file", "path", tempPath, "error", removeErr)
		}
		return Info{}, fmt.Errorf("failed to restore database: %w", err)
	}
	// Stale WAL files belong to the replaced database
	for _, ext := range []string{"-wal", "-shm"} {
		_ = os.Remove(m.dbPath + ext)
	}

	return previous, nil
}

func verify(ctx context.Context, db *sql.DB) error {
	var count int
	return db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&count)
}

func verifyHabitSchema(ctx context.Context, db *sql.DB) error {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN ('habits', 'habits_logs')`).Scan(&count)
	if err != nil {
		return err
	}
	if count != 2 {
		return fmt.Errorf("not a habitbell database")
	}
	return nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := destFile.ReadFrom(sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}
