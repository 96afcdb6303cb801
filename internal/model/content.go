package model

import "time"

// Category groups contents in the member feed. Slug is unique and used as
// the filter key in feed queries.
type Category struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	SortOrder int       `json:"order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Content types.
const (
	ContentTypeVideo   = "VIDEO"
	ContentTypeArticle = "ARTICLE"
)

// Content is a single feed item: either an embedded YouTube video or an
// article body. Unpublished contents (nil PublishedAt, or a PublishedAt in
// the future) are hidden from the member feed but visible to admins.
type Content struct {
	ID             string     `json:"id" db:"id"`
	Title          string     `json:"title" db:"title"`
	Type           string     `json:"type" db:"type"`
	YouTubeURL     string     `json:"youtube_url,omitempty" db:"youtube_url"`
	ArticleContent string     `json:"article_content,omitempty" db:"article_content"`
	Thumbnail      string     `json:"thumbnail" db:"thumbnail"`
	CategoryID     string     `json:"category_id" db:"category_id"`
	IsPinned       bool       `json:"is_pinned" db:"is_pinned"`
	ViewCount      int64      `json:"view_count" db:"view_count"`
	PublishedAt    *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`

	// Category is attached on reads for feed rendering; not a column.
	Category *Category `json:"category,omitempty" db:"-"`
}
