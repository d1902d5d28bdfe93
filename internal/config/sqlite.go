package config

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`,

	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS credentials (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		service TEXT NOT NULL,
		name    TEXT NOT NULL,
		key     TEXT NOT NULL,
		value   TEXT NOT NULL,
		UNIQUE(service, name, key)
	)`,
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Dir returns the directory holding the database and preferences file.
func Dir() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "graphium")
}

// DBPath returns the default database path.
func DBPath() string {
	return filepath.Join(Dir(), "graphium.db")
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema is up to date. File permissions are set to 0600.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating config dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("checking schema version: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting schema version: %w", err)
		}
	}

	if dbPath != ":memory:" {
		_ = os.Chmod(dbPath, 0o600)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Settings ---

// GetSetting returns the stored value, or "" when the key is unset.
func (s *SQLiteStore) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) ListSettings() ([]Setting, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Key, &st.Value); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

func (s *SQLiteStore) DeleteSetting(key string) error {
	if _, err := s.db.Exec("DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting setting %s: %w", key, err)
	}
	return nil
}

// --- Credentials ---

func (s *SQLiteStore) GetCredential(service, name, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM credentials WHERE service = ? AND name = ? AND key = ?",
		service, name, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("credential not found: %s/%s/%s", service, name, key)
	}
	if err != nil {
		return "", fmt.Errorf("querying credential: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) SetCredential(service, name, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO credentials (service, name, key, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT(service, name, key) DO UPDATE SET value = excluded.value`,
		service, name, key, value,
	)
	if err != nil {
		return fmt.Errorf("setting credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListCredentials(service string) ([]Credential, error) {
	rows, err := s.db.Query(
		"SELECT service, name, key, value FROM credentials WHERE service = ? ORDER BY name, key",
		service,
	)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.Service, &c.Name, &c.Key, &c.Value); err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

func (s *SQLiteStore) DeleteCredential(service, name string) error {
	_, err := s.db.Exec(
		"DELETE FROM credentials WHERE service = ? AND name = ?",
		service, name,
	)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}
