package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/billmal071/mangadl/internal/config"
)

var database *sql.DB

const schema = `
CREATE TABLE IF NOT EXISTS chapters (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    url             TEXT UNIQUE NOT NULL,
    site            TEXT,
    manga           TEXT NOT NULL,
    label           TEXT NOT NULL,
    path            TEXT,
    archive         INTEGER DEFAULT 0,
    pages           INTEGER DEFAULT 0,
    status          TEXT NOT NULL,
    error_message   TEXT,
    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME DEFAULT CURRENT_TIMESTAMP,
    completed_at    DATETIME
);

CREATE INDEX IF NOT EXISTS idx_chapters_status ON chapters(status);
CREATE INDEX IF NOT EXISTS idx_chapters_updated ON chapters(updated_at);

CREATE TABLE IF NOT EXISTS chapter_cache (
    cache_key       TEXT PRIMARY KEY,
    url             TEXT NOT NULL,
    site            TEXT,
    manga           TEXT NOT NULL,
    label           TEXT NOT NULL,
    pages           INTEGER DEFAULT 0,
    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP,
    expires_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chapter_cache_expires ON chapter_cache(expires_at);
`

// Init opens the database at the configured path and creates the schema
func Init() error {
	return InitAt(config.GetDBPath())
}

// InitAt opens the database at dbPath and creates the schema
func InitAt(dbPath string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return err
	}

	database = db
	return nil
}

// DB returns the database connection
func DB() *sql.DB {
	return database
}

// Close closes the database connection
func Close() error {
	if database != nil {
		err := database.Close()
		database = nil
		return err
	}
	return nil
}
