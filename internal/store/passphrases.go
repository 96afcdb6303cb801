package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/membergate/membergate/internal/model"
)

// CreatePassPhrase inserts a monthly passphrase. Returns ErrDuplicate if a
// phrase is already registered for the same (month, year).
func (s *Store) CreatePassPhrase(ctx context.Context, pp *model.PassPhrase) error {
	if _, err := s.GetPassPhraseForMonth(ctx, pp.Month, pp.Year); err == nil {
		return ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	pp.ID = uuid.NewString()
	pp.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO passphrases (id, phrase, month, year, created_at)
		VALUES (:id, :phrase, :month, :year, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, pp); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert passphrase: %w", err)
	}
	return nil
}

// GetPassPhraseForMonth returns the passphrase registered for (month, year).
func (s *Store) GetPassPhraseForMonth(ctx context.Context, month, year int) (*model.PassPhrase, error) {
	var pp model.PassPhrase
	err := s.db.GetContext(ctx, &pp,
		s.rebind("SELECT * FROM passphrases WHERE month = ? AND year = ?"), month, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get passphrase for month: %w", err)
	}
	return &pp, nil
}

// FindPassPhrase returns the record matching (phrase, month, year) exactly:
// case-sensitive, no trimming.
func (s *Store) FindPassPhrase(ctx context.Context, phrase string, month, year int) (*model.PassPhrase, error) {
	var pp model.PassPhrase
	err := s.db.GetContext(ctx, &pp,
		s.rebind("SELECT * FROM passphrases WHERE phrase = ? AND month = ? AND year = ?"),
		phrase, month, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find passphrase: %w", err)
	}
	return &pp, nil
}

// ListPassPhrases returns all passphrases, newest month first.
func (s *Store) ListPassPhrases(ctx context.Context) ([]model.PassPhrase, error) {
	var pps []model.PassPhrase
	if err := s.db.SelectContext(ctx, &pps,
		"SELECT * FROM passphrases ORDER BY year DESC, month DESC"); err != nil {
		return nil, fmt.Errorf("list passphrases: %w", err)
	}
	return pps, nil
}

// DeletePassPhrase removes a passphrase by ID.
func (s *Store) DeletePassPhrase(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM passphrases WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete passphrase: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete passphrase rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSession records an issued member token for audit. The ID and
// CreatedAt fields on sess are populated after a successful insert.
func (s *Store) CreateSession(ctx context.Context, sess *model.Session) error {
	sess.ID = uuid.NewString()
	sess.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO sessions (id, token, valid_until, created_at)
		VALUES (:id, :token, :valid_until, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, sess); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions prunes session rows whose validity has elapsed.
// Called opportunistically when a passphrase is deleted.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		s.rebind("DELETE FROM sessions WHERE valid_until < ?"), now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions rows affected: %w", err)
	}
	return n, nil
}

// CountSessions returns the number of session audit rows.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM sessions"); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}
