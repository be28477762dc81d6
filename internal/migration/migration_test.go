package migration

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/habitbell/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func migrationFS(files map[string]string) fstest.MapFS {
	m := fstest.MapFS{}
	for name, content := range files {
		m[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return m
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return count == 1
}

func TestCurrentVersion(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	runner := NewRunner(db, migrationFS(map[string]string{
		"001_test.sql": "CREATE TABLE test (id INTEGER);",
	}), SQLite)

	version, err := runner.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0, got %d", version)
	}

	if err := runner.SetVersion(ctx, 5); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}

	version, err = runner.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if version != 5 {
		t.Errorf("expected version 5, got %d", version)
	}
}

func TestLoad(t *testing.T) {
	runner := NewRunner(setupTestDB(t), migrationFS(map[string]string{
		"001_init.sql":    "CREATE TABLE test1 (id INTEGER);",
		"002_update.sql":  "ALTER TABLE test1 ADD COLUMN name TEXT;",
		"003_another.sql": "CREATE TABLE test2 (id INTEGER);",
		"README.md":       "ignored",
	}), SQLite)

	migrations, err := runner.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}

	wantNames := []string{"init", "update", "another"}
	for i, m := range migrations {
		if m.Version != i+1 || m.Name != wantNames[i] {
			t.Errorf("migration %d: expected version %d and name %q, got version %d and name %q", i, i+1, wantNames[i], m.Version, m.Name)
		}
	}
}

func TestApplyFromScratch(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	runner := NewRunner(db, migrationFS(map[string]string{
		"001_init.sql":  `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);`,
		"002_posts.sql": `CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER, content TEXT);`,
	}), SQLite)

	applied, err := runner.Apply(ctx)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(applied) != 2 || applied[0].Name != "init" || applied[1].Name != "posts" {
		t.Errorf("expected init and posts applied in order, got %+v", applied)
	}

	version, err := runner.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}

	if !tableExists(t, db, "users") {
		t.Error("users table was not created")
	}
	if !tableExists(t, db, "posts") {
		t.Error("posts table was not created")
	}
}

func TestApplyIncremental(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	files := migrationFS(map[string]string{
		"001_init.sql": `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);`,
	})
	runner := NewRunner(db, files, SQLite)

	applied, err := runner.Apply(ctx)
	if err != nil {
		t.Fatalf("Apply (1st) failed: %v", err)
	}
	if len(applied) != 1 {
		t.Errorf("expected 1 migration applied, got %d", len(applied))
	}

	files["002_posts.sql"] = &fstest.MapFile{Data: []byte(`CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER);`)}

	applied, err = runner.Apply(ctx)
	if err != nil {
		t.Fatalf("Apply (2nd) failed: %v", err)
	}
	if len(applied) != 1 || applied[0].Version != 2 {
		t.Errorf("expected only migration 2 applied, got %+v", applied)
	}

	applied, err = runner.Apply(ctx)
	if err != nil {
		t.Fatalf("Apply (3rd) failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected 0 migrations applied on third run, got %d", len(applied))
	}
}

func TestMigrationRollbackOnError(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	runner := NewRunner(db, migrationFS(map[string]string{
		"001_init.sql": `
			CREATE TABLE users (id INTEGER PRIMARY KEY);
			THIS IS INVALID SQL;
		`,
	}), SQLite)

	if _, err := runner.Apply(ctx); err == nil {
		t.Fatal("Apply should have failed with invalid SQL")
	}

	version, err := runner.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 after failed migration, got %d", version)
	}
	if tableExists(t, db, "users") {
		t.Error("table should not exist after failed migration")
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("newer database", func(t *testing.T) {
		runner := NewRunner(setupTestDB(t), migrationFS(map[string]string{
			"001_init.sql": `CREATE TABLE users (id INTEGER PRIMARY KEY);`,
		}), SQLite)

		if err := runner.SetVersion(ctx, 10); err != nil {
			t.Fatalf("SetVersion failed: %v", err)
		}
		if err := runner.Validate(ctx); !errors.Is(err, ErrSchemaAhead) {
			t.Fatalf("Validate() = %v, want ErrSchemaAhead", err)
		}
		if _, err := runner.Apply(ctx); !errors.Is(err, ErrSchemaAhead) {
			t.Fatalf("Apply() = %v, want ErrSchemaAhead", err)
		}
	})

	t.Run("outdated database", func(t *testing.T) {
		runner := NewRunner(setupTestDB(t), migrationFS(map[string]string{
			"001_init.sql": `CREATE TABLE users (id INTEGER PRIMARY KEY);`,
		}), SQLite)

		err := runner.Validate(ctx)
		if !errors.Is(err, ErrSchemaBehind) || !strings.Contains(err.Error(), "habitbell migrate") {
			t.Fatalf("Validate() = %v, want ErrSchemaBehind with a migrate hint", err)
		}
	})

	t.Run("current database", func(t *testing.T) {
		runner := NewRunner(setupTestDB(t), migrationFS(map[string]string{
			"001_init.sql": `CREATE TABLE users (id INTEGER PRIMARY KEY);`,
		}), SQLite)

		if _, err := runner.Apply(ctx); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if err := runner.Validate(ctx); err != nil {
			t.Errorf("Validate unexpected error: %v", err)
		}
	})
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(setupTestDB(t), migrationFS(map[string]string{
		"001_init.sql":   `CREATE TABLE users (id INTEGER);`,
		"003_posts.sql":  `CREATE TABLE posts (id INTEGER);`,
		"002_update.sql": `ALTER TABLE users ADD COLUMN name TEXT;`,
	}), SQLite)

	if err := runner.SetVersion(ctx, 1); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}
	st, err := runner.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Current != 1 || st.Latest != 3 {
		t.Errorf("Status = current %d latest %d, want 1 and 3", st.Current, st.Latest)
	}
	if len(st.Pending) != 2 || st.Pending[0].Version != 2 || st.Pending[1].Version != 3 {
		t.Errorf("pending = %+v, want versions 2 and 3", st.Pending)
	}
	if st.UpToDate() {
		t.Error("UpToDate() = true with pending migrations")
	}
}

func TestMigrationFilenameErrors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "no underscore",
			files:   map[string]string{"001init.sql": `CREATE TABLE users (id INTEGER);`},
			wantErr: "invalid migration filename format",
		},
		{
			name:    "zero version",
			files:   map[string]string{"000_init.sql": `CREATE TABLE users (id INTEGER);`},
			wantErr: "version must be at least 1",
		},
		{
			name: "duplicate version",
			files: map[string]string{
				"001_init.sql":  `CREATE TABLE users (id INTEGER);`,
				"001_other.sql": `CREATE TABLE posts (id INTEGER);`,
			},
			wantErr: "duplicate migration version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewRunner(setupTestDB(t), migrationFS(tt.files), SQLite)
			_, err := runner.Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEmbeddedSQLiteMigrations(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		t.Fatalf("fs.Sub failed: %v", err)
	}

	runner := NewRunner(db, subFS, SQLite)
	if _, err := runner.Apply(ctx); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	for _, table := range []string{"habits", "habits_logs"} {
		if !tableExists(t, db, table) {
			t.Errorf("%s table was not created", table)
		}
	}

	if _, err := db.Exec(`INSERT INTO habits_logs (user_id, habit_title, date, status) VALUES (1, 'Read', '2026-01-01', 'skipped')`); err == nil {
		t.Error("expected status CHECK constraint to reject unknown status")
	}
}
