/*
This file implements the profile store: persistent per-user memory content
the agent reads and edits through the memory tool. Profiles live in SQLite
so the service needs no external database; the schema is migrated
idempotently at startup.
*/
package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"oddsbot/tools"
)

// OpenDatabase opens (creating if needed) the SQLite database holding
// profiles and tool audit records, and applies the schema.
func OpenDatabase(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id    TEXT PRIMARY KEY,
		content    TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS tool_audit (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     TEXT NOT NULL,
		session_id  TEXT NOT NULL,
		tool_name   TEXT NOT NULL,
		tool_input  TEXT NOT NULL,
		duration_ms INTEGER,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_tool_audit_user ON tool_audit(user_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}

// ProfileStore persists one memory document per user.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore wraps an opened database.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// View returns the stored content for a user, with found=false when no
// profile exists.
func (s *ProfileStore) View(ctx context.Context, userID string) (string, bool, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM profiles WHERE user_id = ?`, userID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("profile view: %w", err)
	}
	return content, true, nil
}

// Create stores or overwrites the user's profile content.
func (s *ProfileStore) Create(ctx context.Context, userID, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		userID, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("profile create: %w", err)
	}
	return nil
}

// Replace substitutes the first verbatim occurrence of oldStr. The stored
// content is left untouched unless the substring appears exactly.
func (s *ProfileStore) Replace(ctx context.Context, userID, oldStr, newStr string) (tools.ReplaceOutcome, error) {
	content, found, err := s.View(ctx, userID)
	if err != nil {
		return tools.ReplaceProfileMissing, err
	}
	if !found {
		return tools.ReplaceProfileMissing, nil
	}
	if !strings.Contains(content, oldStr) {
		return tools.ReplaceNoMatch, nil
	}

	updated := strings.Replace(content, oldStr, newStr, 1)
	_, err = s.db.ExecContext(ctx, `UPDATE profiles SET content = ?, updated_at = ? WHERE user_id = ?`,
		updated, time.Now().UTC(), userID)
	if err != nil {
		return tools.ReplaceProfileMissing, fmt.Errorf("profile replace: %w", err)
	}
	return tools.ReplaceApplied, nil
}

// Delete removes the user's profile. Deleting a missing profile is not an
// error.
func (s *ProfileStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("profile delete: %w", err)
	}
	return nil
}

// Exists reports whether the user has a stored profile. This is the
// predicate behind mode selection.
func (s *ProfileStore) Exists(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM profiles WHERE user_id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("profile exists: %w", err)
	}
	return true, nil
}

var _ tools.ProfileStore = (*ProfileStore)(nil)
