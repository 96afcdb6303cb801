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

// Feed tabs.
const (
	TabLatest  = "latest"
	TabPopular = "popular"
	TabPinned  = "pinned"
)

// ContentFilter narrows a member feed query. Zero values mean "no filter".
type ContentFilter struct {
	Tab          string // latest (default), popular, pinned
	CategorySlug string // "" or "all" matches every category
	Search       string // case-insensitive title substring
}

// CreateContent inserts a new content item. The ID, CreatedAt, and
// UpdatedAt fields on c are populated after a successful insert.
func (s *Store) CreateContent(ctx context.Context, c *model.Content) error {
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now

	const q = `INSERT INTO contents
		(id, title, type, youtube_url, article_content, thumbnail, category_id,
		 is_pinned, view_count, published_at, created_at, updated_at)
		VALUES
		(:id, :title, :type, :youtube_url, :article_content, :thumbnail, :category_id,
		 :is_pinned, :view_count, :published_at, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, c); err != nil {
		return fmt.Errorf("insert content: %w", err)
	}
	return nil
}

// GetContent returns a content item by ID with its category attached.
func (s *Store) GetContent(ctx context.Context, id string) (*model.Content, error) {
	var c model.Content
	err := s.db.GetContext(ctx, &c, s.rebind("SELECT * FROM contents WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get content: %w", err)
	}
	if err := s.attachCategories(ctx, []*model.Content{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContents returns the member feed: published contents only, filtered
// and ordered per f. Latest and pinned tabs sort by publish date, popular
// by view count.
func (s *Store) ListContents(ctx context.Context, f ContentFilter, now time.Time) ([]model.Content, error) {
	// Stored timestamps are UTC; on SQLite they compare as text, so a
	// zoned now would misfilter.
	q := "SELECT * FROM contents WHERE published_at IS NOT NULL AND published_at <= ?"
	args := []interface{}{now.UTC()}

	if f.CategorySlug != "" && f.CategorySlug != "all" {
		cat, err := s.GetCategoryBySlug(ctx, f.CategorySlug)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return []model.Content{}, nil
			}
			return nil, err
		}
		q += " AND category_id = ?"
		args = append(args, cat.ID)
	}
	if f.Search != "" {
		q += " AND LOWER(title) LIKE LOWER(?)"
		args = append(args, "%"+f.Search+"%")
	}

	if f.Tab == TabPinned {
		q += " AND is_pinned = ?"
		args = append(args, true)
	}
	if f.Tab == TabPopular {
		q += " ORDER BY view_count DESC"
	} else {
		q += " ORDER BY published_at DESC"
	}

	var contents []model.Content
	if err := s.db.SelectContext(ctx, &contents, s.rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	if err := s.attachCategoriesSlice(ctx, contents); err != nil {
		return nil, err
	}
	return contents, nil
}

// ListAllContents returns every content item for the admin screen, newest
// created first, unpublished included.
func (s *Store) ListAllContents(ctx context.Context) ([]model.Content, error) {
	var contents []model.Content
	if err := s.db.SelectContext(ctx, &contents,
		"SELECT * FROM contents ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("list all contents: %w", err)
	}
	if err := s.attachCategoriesSlice(ctx, contents); err != nil {
		return nil, err
	}
	return contents, nil
}

// ListRelatedContents returns up to limit published contents from the same
// category, excluding excludeID, most viewed first.
func (s *Store) ListRelatedContents(ctx context.Context, categoryID, excludeID string, limit int, now time.Time) ([]model.Content, error) {
	q := `SELECT * FROM contents
		WHERE category_id = ? AND id <> ?
		  AND published_at IS NOT NULL AND published_at <= ?
		ORDER BY view_count DESC LIMIT ?`

	var contents []model.Content
	if err := s.db.SelectContext(ctx, &contents, s.rebind(q),
		categoryID, excludeID, now.UTC(), limit); err != nil {
		return nil, fmt.Errorf("list related contents: %w", err)
	}
	if err := s.attachCategoriesSlice(ctx, contents); err != nil {
		return nil, err
	}
	return contents, nil
}

// UpdateContent updates a content item. The UpdatedAt field is refreshed.
func (s *Store) UpdateContent(ctx context.Context, c *model.Content) error {
	c.UpdatedAt = time.Now().UTC()

	const q = `UPDATE contents SET
		title = :title, type = :type, youtube_url = :youtube_url,
		article_content = :article_content, thumbnail = :thumbnail,
		category_id = :category_id, is_pinned = :is_pinned,
		published_at = :published_at, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, c)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update content rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteContent removes a content item by ID.
func (s *Store) DeleteContent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM contents WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete content rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViewCount bumps a content's view counter and returns the new
// value.
func (s *Store) IncrementViewCount(ctx context.Context, id string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE contents SET view_count = view_count + 1 WHERE id = ?"), id)
	if err != nil {
		return 0, fmt.Errorf("increment view count: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("increment view count rows affected: %w", err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}

	var count int64
	if err := s.db.GetContext(ctx, &count,
		s.rebind("SELECT view_count FROM contents WHERE id = ?"), id); err != nil {
		return 0, fmt.Errorf("read view count: %w", err)
	}
	return count, nil
}

func (s *Store) attachCategoriesSlice(ctx context.Context, contents []model.Content) error {
	ptrs := make([]*model.Content, len(contents))
	for i := range contents {
		ptrs[i] = &contents[i]
	}
	return s.attachCategories(ctx, ptrs)
}

// attachCategories fills in the Category field from one categories query.
func (s *Store) attachCategories(ctx context.Context, contents []*model.Content) error {
	if len(contents) == 0 {
		return nil
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]*model.Category, len(cats))
	for i := range cats {
		byID[cats[i].ID] = &cats[i]
	}
	for _, c := range contents {
		c.Category = byID[c.CategoryID]
	}
	return nil
}
