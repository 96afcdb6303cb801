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

// CreateAdmin inserts a new admin account. The ID and CreatedAt fields on
// admin are populated after a successful insert. Returns ErrDuplicate if an
// admin with the same email already exists.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	if _, err := s.GetAdminByEmail(ctx, admin.Email); err == nil {
		return ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	admin.ID = uuid.NewString()
	admin.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO admins (id, email, password_hash, name, created_at)
		VALUES (:id, :email, :password_hash, :name, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, admin); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// GetAdminByEmail returns an admin by email address. The lookup is exact.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	err := s.db.GetContext(ctx, &admin, s.rebind("SELECT * FROM admins WHERE email = ?"), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &admin, nil
}

// GetAdmin returns an admin by ID.
func (s *Store) GetAdmin(ctx context.Context, id string) (*model.Admin, error) {
	var admin model.Admin
	err := s.db.GetContext(ctx, &admin, s.rebind("SELECT * FROM admins WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &admin, nil
}

// ListAdmins returns all admin accounts, newest first.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var admins []model.Admin
	if err := s.db.SelectContext(ctx, &admins, "SELECT * FROM admins ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// CountAdmins returns the number of admin accounts. The caller uses this to
// enforce the at-least-one-admin invariant before a delete.
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM admins"); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}

// DeleteAdmin removes an admin account by ID.
func (s *Store) DeleteAdmin(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM admins WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete admin rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
