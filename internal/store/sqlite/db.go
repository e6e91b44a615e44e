package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate creates the schema. All statements are idempotent so it is safe to
// run on every startup.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username VARCHAR(50) UNIQUE NOT NULL,
			display_name TEXT,
			bio TEXT,
			pronouns TEXT,
			custom_color TEXT,
			avatar_url TEXT,
			banner_url TEXT,
			status TEXT NOT NULL DEFAULT 'offline',
			status_text TEXT,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			dark_mode BOOLEAN NOT NULL DEFAULT 0,
			email VARCHAR(100) UNIQUE,
			password_hash VARCHAR(255),
			is_suspended BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_login DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			author_id INTEGER NOT NULL,
			text TEXT NOT NULL,
			has_markdown BOOLEAN NOT NULL DEFAULT 0,
			attachment_kind TEXT,
			attachment_ref TEXT,
			attachment_expires_at DATETIME,
			gif_url TEXT,
			mentions TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (author_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_users_last_seen ON users(last_seen DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_author ON messages(author_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_expires ON messages(attachment_expires_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
