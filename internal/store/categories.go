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

// CreateCategory inserts a new category. Returns ErrDuplicate if the slug
// is taken.
func (s *Store) CreateCategory(ctx context.Context, cat *model.Category) error {
	if existing, err := s.GetCategoryBySlug(ctx, cat.Slug); err == nil && existing != nil {
		return ErrDuplicate
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	cat.ID = uuid.NewString()
	cat.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO categories (id, name, slug, sort_order, created_at)
		VALUES (:id, :name, :slug, :sort_order, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, cat); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// GetCategory returns a category by ID.
func (s *Store) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	var cat model.Category
	err := s.db.GetContext(ctx, &cat, s.rebind("SELECT * FROM categories WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &cat, nil
}

// GetCategoryBySlug returns a category by its unique slug.
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var cat model.Category
	err := s.db.GetContext(ctx, &cat, s.rebind("SELECT * FROM categories WHERE slug = ?"), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get category by slug: %w", err)
	}
	return &cat, nil
}

// ListCategories returns all categories in display order.
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if err := s.db.SelectContext(ctx, &cats,
		"SELECT * FROM categories ORDER BY sort_order ASC"); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// UpdateCategory updates a category's name, slug, and sort order. Returns
// ErrDuplicate if the new slug belongs to a different category.
func (s *Store) UpdateCategory(ctx context.Context, cat *model.Category) error {
	if existing, err := s.GetCategoryBySlug(ctx, cat.Slug); err == nil {
		if existing.ID != cat.ID {
			return ErrDuplicate
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	const q = `UPDATE categories SET name = :name, slug = :slug, sort_order = :sort_order
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, cat)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update category: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update category rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category by ID. Callers must check
// CountContentsInCategory first; the store does not enforce the guard.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM categories WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountContentsInCategory returns the number of contents attached to a
// category.
func (s *Store) CountContentsInCategory(ctx context.Context, categoryID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		s.rebind("SELECT COUNT(*) FROM contents WHERE category_id = ?"), categoryID)
	if err != nil {
		return 0, fmt.Errorf("count contents in category: %w", err)
	}
	return count, nil
}
