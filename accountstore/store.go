package accountstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/proxynode/installer/interfaces"
)

// Compile-time interface satisfaction check.
var _ interfaces.AccountStore = (*Store)(nil)

// Store is the SQLite implementation of interfaces.AccountStore.
// The writer connection is limited to a single connection to avoid
// "database is locked" errors under concurrent installer runs.
type Store struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// Open creates the store file (and its parent directory) if needed, opens
// it with WAL mode and a busy timeout, and applies schema migrations.
func Open(path string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create store directory: %w", interfaces.ErrStoreCreation, err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", interfaces.ErrStoreCreation, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %w", interfaces.ErrStoreCreation, err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", interfaces.ErrStoreCreation, err)
	}

	log.Debug("Credential store ready", "path", path)
	return &Store{db: db, path: path, log: log}, nil
}

// EnsureAccount inserts the account unless a row for username already
// exists. The users table's primary key is the mechanism: the insert
// carries an ON CONFLICT DO NOTHING clause, so a concurrent bootstrapper
// racing on the same username observes "already exists" rather than a
// constraint failure.
func (s *Store) EnsureAccount(ctx context.Context, username, password string) (bool, error) {
	if username == "" {
		return false, errors.New("username must not be empty")
	}

	const query = `INSERT INTO users (username, password) VALUES (?, ?) ON CONFLICT(username) DO NOTHING`
	res, err := s.db.ExecContext(ctx, query, username, password)
	if err != nil {
		return false, fmt.Errorf("ensure account %q: %w", username, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure account %q: %w", username, err)
	}

	if n == 0 {
		s.log.Info("Account already exists, leaving it untouched", "username", username)
		return false, nil
	}

	s.log.Info("Created account", "username", username)
	return true, nil
}

// Password returns the stored password for username.
// Returns sql.ErrNoRows if the account does not exist.
func (s *Store) Password(ctx context.Context, username string) (string, error) {
	const query = `SELECT password FROM users WHERE username = ?`
	var password string
	if err := s.db.QueryRowContext(ctx, query, username).Scan(&password); err != nil {
		return "", fmt.Errorf("lookup account %q: %w", username, err)
	}
	return password, nil
}

// CountAccounts returns the number of rows stored for username.
func (s *Store) CountAccounts(ctx context.Context, username string) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE username = ?`
	var n int
	if err := s.db.QueryRowContext(ctx, query, username).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the backing database.
func (s *Store) Close() error {
	return s.db.Close()
}
