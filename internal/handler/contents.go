package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/membergate/membergate/internal/apperr"
	"github.com/membergate/membergate/internal/cache"
	"github.com/membergate/membergate/internal/model"
	"github.com/membergate/membergate/internal/store"
	"github.com/membergate/membergate/internal/youtube"
)

// ContentsHandler serves the member feed and the admin content CRUD.
type ContentsHandler struct {
	store *store.Store
	cache cache.Cache
	clock func() time.Time
}

// NewContentsHandler creates a ContentsHandler. The feed clock runs in
// UTC because publish timestamps are stored in UTC and compare as text
// on the SQLite backend.
func NewContentsHandler(st *store.Store, c cache.Cache) *ContentsHandler {
	return &ContentsHandler{store: st, cache: c, clock: func() time.Time { return time.Now().UTC() }}
}

// List returns the member feed, filtered by tab, category slug, and title
// search.
// GET /api/contents?tab=latest|popular|pinned&category=<slug|all>&search=
func (h *ContentsHandler) List(w http.ResponseWriter, r *http.Request) {
	f := store.ContentFilter{
		Tab:          queryString(r, "tab", store.TabLatest),
		CategorySlug: queryString(r, "category", "all"),
		Search:       queryString(r, "search", ""),
	}

	key := fmt.Sprintf("contents:list:%s:%s:%s", f.Tab, f.CategorySlug, f.Search)
	if body, ok := h.cache.Get(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
		return
	}

	contents, err := h.store.ListContents(r.Context(), f, h.clock())
	if err != nil {
		writeAppError(w, err)
		return
	}
	if contents == nil {
		contents = []model.Content{}
	}

	body, err := json.Marshal(map[string]interface{}{"contents": contents})
	if err != nil {
		writeAppError(w, err)
		return
	}
	h.cache.Set(r.Context(), key, body, cache.ListTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// Get returns one content item with up to four related items from the same
// category. Video contents carry the derived embed URL. The detail and the
// related list cache independently; related items churn slower.
// GET /api/contents/{contentID}
func (h *ContentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contentID")

	content, err := h.getCachedContent(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	related, err := h.getCachedRelated(r.Context(), content)
	if err != nil {
		writeAppError(w, err)
		return
	}

	resp := map[string]interface{}{
		"content": content,
		"related": related,
	}
	if content.Type == model.ContentTypeVideo {
		resp["embed_url"] = youtube.EmbedURL(content.YouTubeURL)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ContentsHandler) getCachedContent(ctx context.Context, id string) (*model.Content, error) {
	key := "contents:item:" + id
	if body, ok := h.cache.Get(ctx, key); ok {
		var c model.Content
		if err := json.Unmarshal(body, &c); err == nil {
			return &c, nil
		}
	}

	content, err := h.store.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	if body, err := json.Marshal(content); err == nil {
		h.cache.Set(ctx, key, body, cache.DetailTTL)
	}
	return content, nil
}

func (h *ContentsHandler) getCachedRelated(ctx context.Context, content *model.Content) ([]model.Content, error) {
	key := "contents:related:" + content.ID
	if body, ok := h.cache.Get(ctx, key); ok {
		var related []model.Content
		if err := json.Unmarshal(body, &related); err == nil {
			return related, nil
		}
	}

	related, err := h.store.ListRelatedContents(ctx, content.CategoryID, content.ID, 4, h.clock())
	if err != nil {
		return nil, err
	}
	if related == nil {
		related = []model.Content{}
	}
	if body, err := json.Marshal(related); err == nil {
		h.cache.Set(ctx, key, body, cache.RelatedTTL)
	}
	return related, nil
}

// IncrementView bumps a content's view counter.
// POST /api/contents/{contentID}/view
func (h *ContentsHandler) IncrementView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contentID")

	count, err := h.store.IncrementViewCount(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	// View counts feed the popular tab ordering; drop stale lists.
	h.cache.DeleteByPrefix(r.Context(), "contents:")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"view_count": count,
	})
}

// AdminList returns all contents for the admin screen, unpublished
// included, newest created first.
// GET /api/admin/contents
func (h *ContentsHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	contents, err := h.store.ListAllContents(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	if contents == nil {
		contents = []model.Content{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"contents": contents})
}

// AdminGet returns one content item for editing.
// GET /api/admin/contents/{contentID}
func (h *ContentsHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	content, err := h.store.GetContent(r.Context(), chi.URLParam(r, "contentID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"content": content})
}

type contentRequest struct {
	Title          string     `json:"title"`
	Type           string     `json:"type"`
	YouTubeURL     string     `json:"youtube_url"`
	ArticleContent string     `json:"article_content"`
	Thumbnail      string     `json:"thumbnail"`
	CategoryID     string     `json:"category_id"`
	IsPinned       bool       `json:"is_pinned"`
	PublishedAt    *time.Time `json:"published_at"`
}

// validate checks the payload invariants shared by create and update.
func (req *contentRequest) validate(ctx context.Context, st *store.Store) error {
	if req.Title == "" || req.CategoryID == "" {
		return apperr.Validation("Title and category are required")
	}
	switch req.Type {
	case model.ContentTypeVideo:
		if !youtube.IsValidURL(req.YouTubeURL) {
			return apperr.Validation("A valid YouTube URL is required for video contents")
		}
	case model.ContentTypeArticle:
		if req.ArticleContent == "" {
			return apperr.Validation("Article content is required for article contents")
		}
	default:
		return apperr.Validation("Type must be VIDEO or ARTICLE")
	}
	if _, err := st.GetCategory(ctx, req.CategoryID); err != nil {
		return apperr.Validation("Unknown category")
	}
	return nil
}

// AdminCreate adds a new content item.
// POST /api/admin/contents
func (h *ContentsHandler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(r.Context(), h.store); err != nil {
		writeAppError(w, err)
		return
	}

	thumbnail := req.Thumbnail
	if thumbnail == "" && req.Type == model.ContentTypeVideo {
		thumbnail = youtube.ThumbnailURL(req.YouTubeURL, youtube.QualityHigh)
	}

	content := &model.Content{
		Title:          req.Title,
		Type:           req.Type,
		YouTubeURL:     req.YouTubeURL,
		ArticleContent: req.ArticleContent,
		Thumbnail:      thumbnail,
		CategoryID:     req.CategoryID,
		IsPinned:       req.IsPinned,
		PublishedAt:    req.PublishedAt,
	}
	if err := h.store.CreateContent(r.Context(), content); err != nil {
		writeAppError(w, err)
		return
	}

	h.cache.DeleteByPrefix(r.Context(), "contents:")
	writeJSON(w, http.StatusOK, map[string]interface{}{"content": content})
}

// AdminUpdate replaces a content item's editable fields.
// PUT /api/admin/contents/{contentID}
func (h *ContentsHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contentID")

	var req contentRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(r.Context(), h.store); err != nil {
		writeAppError(w, err)
		return
	}

	content, err := h.store.GetContent(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	content.Title = req.Title
	content.Type = req.Type
	content.YouTubeURL = req.YouTubeURL
	content.ArticleContent = req.ArticleContent
	content.Thumbnail = req.Thumbnail
	content.CategoryID = req.CategoryID
	content.IsPinned = req.IsPinned
	content.PublishedAt = req.PublishedAt
	content.Category = nil

	if err := h.store.UpdateContent(r.Context(), content); err != nil {
		writeAppError(w, err)
		return
	}

	h.cache.DeleteByPrefix(r.Context(), "contents:")
	writeJSON(w, http.StatusOK, map[string]interface{}{"content": content})
}

// AdminDelete removes a content item.
// DELETE /api/admin/contents/{contentID}
func (h *ContentsHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteContent(r.Context(), chi.URLParam(r, "contentID")); err != nil {
		writeAppError(w, err)
		return
	}
	h.cache.DeleteByPrefix(r.Context(), "contents:")
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
