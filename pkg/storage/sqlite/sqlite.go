package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rexliu/jamctl/pkg/control"
)

// Setting keys persisted in the settings table.
const (
	SettingServerName     = "server.name"
	SettingWelcomeMessage = "server.welcomeMessage"
	settingFirewallMode   = "firewall.mode"
)

// Store owns the SQLite database for a profile.
type Store struct {
	db   *sql.DB
	path string
}

// AccessControl is the persisted access-control state.
type AccessControl struct {
	Mode      control.FirewallMode
	Addresses []string
}

// Path returns the underlying SQLite file path.
func (s *Store) Path() string {
	return s.path
}

// Open initializes a SQLite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer keeps PRAGMAs applied to the connection that runs statements.
	db.SetMaxOpenConns(1)
	return &Store{db: db, path: path}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Init ensures pragmas and schema are configured.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("nil store")
	}
	pragmas := []string{
		"PRAGMA journal_mode = DELETE;",
		"PRAGMA synchronous = FULL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return s.applySchema(ctx)
}

func (s *Store) applySchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES ('schemaVersion','1');`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS acl_addresses (
			address TEXT PRIMARY KEY,
			ord INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_acl_ord ON acl_addresses(ord);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Setting returns a stored value and whether it exists.
func (s *Store) Setting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?;`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting upserts a value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return setSetting(ctx, s.db, key, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setSetting(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings(key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;
	`, key, value, time.Now().UnixMilli())
	return err
}

// LoadAccessControl returns the stored list in insertion order. An empty
// database yields open mode with no addresses.
func (s *Store) LoadAccessControl(ctx context.Context) (AccessControl, error) {
	ac := AccessControl{Mode: control.FirewallOpen, Addresses: []string{}}
	raw, ok, err := s.Setting(ctx, settingFirewallMode)
	if err != nil {
		return ac, err
	}
	if ok {
		mode, err := strconv.Atoi(raw)
		if err != nil {
			return ac, fmt.Errorf("decode %s: %w", settingFirewallMode, err)
		}
		ac.Mode = control.FirewallMode(mode)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT address FROM acl_addresses ORDER BY ord;`)
	if err != nil {
		return ac, err
	}
	defer rows.Close()
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return ac, err
		}
		ac.Addresses = append(ac.Addresses, addr)
	}
	return ac, rows.Err()
}

// SaveAccessControl replaces the stored state atomically.
func (s *Store) SaveAccessControl(ctx context.Context, ac AccessControl) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := setSetting(ctx, tx, settingFirewallMode, strconv.Itoa(int(ac.Mode))); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM acl_addresses;`); err != nil {
		tx.Rollback()
		return err
	}
	now := time.Now().UnixMilli()
	for i, addr := range ac.Addresses {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO acl_addresses(address, ord, created_at) VALUES (?, ?, ?);
		`, addr, i, now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
