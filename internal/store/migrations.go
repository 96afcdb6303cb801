package store

import (
	"fmt"
	"strings"
)

// migrate applies the schema. Statements are idempotent so they run on
// every start; the DDL sticks to the subset all three backends accept.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS admins (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS passphrases (
			id VARCHAR(36) PRIMARY KEY,
			phrase VARCHAR(255) NOT NULL,
			month INTEGER NOT NULL,
			year INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (month, year)
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id VARCHAR(36) PRIMARY KEY,
			token TEXT NOT NULL,
			valid_until TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(255) UNIQUE NOT NULL,
			sort_order INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS contents (
			id VARCHAR(36) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			type VARCHAR(16) NOT NULL,
			youtube_url VARCHAR(512) NOT NULL,
			article_content TEXT NOT NULL,
			thumbnail VARCHAR(512) NOT NULL,
			category_id VARCHAR(36) NOT NULL,
			is_pinned BOOLEAN NOT NULL,
			view_count INTEGER NOT NULL,
			published_at TIMESTAMP NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_contents_category ON contents(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_contents_published ON contents(published_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_valid_until ON sessions(valid_until)`,
	}

	for _, m := range migrations {
		// MySQL has no CREATE INDEX IF NOT EXISTS; run the bare form and
		// treat an existing index as a no-op so reruns stay idempotent.
		if s.driver == "mysql" {
			m = strings.Replace(m, "CREATE INDEX IF NOT EXISTS", "CREATE INDEX", 1)
		}
		if _, err := s.db.Exec(m); err != nil {
			if strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
