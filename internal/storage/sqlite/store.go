package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound is returned when a row targeted by id does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps access to the SQLite database and exposes high level helpers.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open initializes a new SQLite store, runs migrations and seeds the
// initial user accounts when they are missing.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.seedUsers(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT UNIQUE NOT NULL,
            password TEXT NOT NULL,
            display_name TEXT NOT NULL,
            last_login TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS projects (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            description TEXT,
            owner TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'todo',
            priority TEXT NOT NULL DEFAULT 'medium',
            due_date TEXT,
            tags TEXT,
            created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS comments (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            author TEXT NOT NULL,
            text TEXT NOT NULL,
            created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS history (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            user TEXT NOT NULL,
            action TEXT NOT NULL,
            details TEXT,
            created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS activity_log (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user TEXT NOT NULL,
            message TEXT NOT NULL,
            created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS subtasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            description TEXT,
            status TEXT NOT NULL DEFAULT 'todo',
            assignee TEXT,
            due_date TEXT,
            created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
            completed_at TEXT,
            FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS research (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            summary TEXT,
            description TEXT,
            category TEXT NOT NULL DEFAULT 'other',
            status TEXT NOT NULL DEFAULT 'idea',
            loom_url TEXT,
            demo_url TEXT,
            github_url TEXT,
            tags TEXT,
            author TEXT NOT NULL DEFAULT 'Collin',
            created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_subtasks_project ON subtasks(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_comments_project ON comments(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_history_project ON history(project_id);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// seedUsers inserts the fixed cast of board members when absent. Passwords
// are bcrypt-hashed before they touch the database.
func (s *Store) seedUsers() error {
	seed := []struct {
		username, password, display string
	}{
		{"carl", "carl2024!", "Carl"},
		{"ann", "ann2024!", "Ann"},
		{"tom", "tom2024!", "Tom"},
		{"collin", "collin2024!", "Collin"},
	}

	for _, u := range seed {
		var count int
		if err := s.db.Get(&count, `SELECT COUNT(*) FROM users WHERE username = ?`, u.username); err != nil {
			return fmt.Errorf("checking user %s: %w", u.username, err)
		}
		if count > 0 {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password for %s: %w", u.username, err)
		}
		if _, err := s.db.Exec(
			`INSERT INTO users (username, password, display_name) VALUES (?, ?, ?)`,
			u.username, string(hash), u.display,
		); err != nil {
			return fmt.Errorf("seeding user %s: %w", u.username, err)
		}
		s.logger.Info("seeded user", slog.String("username", u.username))
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// now returns the current time as the ISO-8601 string stored in TEXT columns.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func addHistory(tx *sqlx.Tx, projectID int64, user, action, details string) error {
	if _, err := tx.Exec(
		`INSERT INTO history (project_id, user, action, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		projectID, user, action, details, now(),
	); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func addActivity(tx *sqlx.Tx, user, message string) error {
	if _, err := tx.Exec(
		`INSERT INTO activity_log (user, message, created_at) VALUES (?, ?, ?)`,
		user, message, now(),
	); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
