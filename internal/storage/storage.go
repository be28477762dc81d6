package storage

import (
	"errors"
	"strings"

	"github.com/julianstephens/habitbell/internal/storage/postgres"
	"github.com/julianstephens/habitbell/internal/storage/sqlite"
)

// IsPostgres reports whether dsn names a PostgreSQL database rather than a SQLite file
func IsPostgres(dsn string) bool {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return true
	}
	// key=value form, e.g. "host=localhost dbname=habitbell"
	for _, part := range strings.Fields(dsn) {
		if strings.HasPrefix(part, "host=") || strings.HasPrefix(part, "dbname=") {
			return true
		}
	}
	return false
}

// Open returns the provider for dsn without connecting.
// Callers must Init or Load before use.
func Open(dsn string) Provider {
	if IsPostgres(dsn) {
		return postgres.New(dsn)
	}
	return sqlite.NewStore(dsn)
}

// HasEmbeddedCredentials reports whether a PostgreSQL connection string carries a password
func HasEmbeddedCredentials(dsn string) bool {
	if !IsPostgres(dsn) {
		return false
	}
	ok, err := postgres.ValidateConnString(dsn)
	return !ok && errors.Is(err, postgres.ErrEmbeddedCredentials)
}
