// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Caches capacity credits and owned identities with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS capacity_credits (
			signer TEXT PRIMARY KEY,
			credit_id TEXT NOT NULL,
			requests_per_kilosecond INTEGER NOT NULL,
			minted_at DATETIME NOT NULL,
			days_until_expiration INTEGER NOT NULL,
			expires_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS owned_identities (
			identity_id TEXT PRIMARY KEY,
			added_at DATETIME NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// GetCredit returns the cached credit for a signer, or ErrNotFound.
func (s *SQLiteStore) GetCredit(ctx context.Context, signer string) (*Credit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT credit_id, requests_per_kilosecond, minted_at, days_until_expiration, expires_at
		FROM capacity_credits WHERE signer = ?`, signer)

	credit := &Credit{Signer: signer}
	var mintedAt, expiresAt string
	err := row.Scan(&credit.ID, &credit.RequestsPerKilosecond, &mintedAt,
		&credit.DaysUntilExpiration, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning credit: %w", err)
	}

	if credit.MintedAt, err = parseStoredTime(mintedAt); err != nil {
		return nil, fmt.Errorf("parsing minted_at: %w", err)
	}
	if credit.ExpiresAt, err = parseStoredTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	return credit, nil
}

// PutCredit stores the credit for its signer, replacing any previous entry.
func (s *SQLiteStore) PutCredit(ctx context.Context, credit *Credit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO capacity_credits
			(signer, credit_id, requests_per_kilosecond, minted_at, days_until_expiration, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(signer) DO UPDATE SET
			credit_id = excluded.credit_id,
			requests_per_kilosecond = excluded.requests_per_kilosecond,
			minted_at = excluded.minted_at,
			days_until_expiration = excluded.days_until_expiration,
			expires_at = excluded.expires_at`,
		credit.Signer, credit.ID, credit.RequestsPerKilosecond,
		credit.MintedAt.UTC().Format(time.RFC3339Nano),
		credit.DaysUntilExpiration,
		credit.ExpiresAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("storing credit: %w", err)
	}
	return nil
}

// DeleteCredit removes the cached credit for a signer, if any.
func (s *SQLiteStore) DeleteCredit(ctx context.Context, signer string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM capacity_credits WHERE signer = ?`, signer); err != nil {
		return fmt.Errorf("deleting credit: %w", err)
	}
	return nil
}

// AddOwnedIdentity records an identity as locally controlled.
func (s *SQLiteStore) AddOwnedIdentity(ctx context.Context, identityID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO owned_identities (identity_id, added_at)
		VALUES (?, ?)
		ON CONFLICT(identity_id) DO NOTHING`,
		identityID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("adding owned identity: %w", err)
	}
	return nil
}

// RemoveOwnedIdentity drops the local record of a controlled identity.
func (s *SQLiteStore) RemoveOwnedIdentity(ctx context.Context, identityID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM owned_identities WHERE identity_id = ?`, identityID)
	if err != nil {
		return fmt.Errorf("removing owned identity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOwnedIdentities returns all locally-controlled identities, oldest first.
func (s *SQLiteStore) ListOwnedIdentities(ctx context.Context) ([]OwnedIdentity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity_id, added_at FROM owned_identities ORDER BY added_at, identity_id`)
	if err != nil {
		return nil, fmt.Errorf("listing owned identities: %w", err)
	}
	defer rows.Close()

	var out []OwnedIdentity
	for rows.Next() {
		var oi OwnedIdentity
		var addedAt string
		if err := rows.Scan(&oi.IdentityID, &addedAt); err != nil {
			return nil, fmt.Errorf("scanning owned identity: %w", err)
		}
		if oi.AddedAt, err = parseStoredTime(addedAt); err != nil {
			return nil, fmt.Errorf("parsing added_at: %w", err)
		}
		out = append(out, oi)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// parseStoredTime reads the RFC3339Nano timestamps this store writes.
func parseStoredTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
