package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kalhel/postkeep/core"
	"github.com/kalhel/postkeep/core/render"
	"github.com/kalhel/postkeep/core/store"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Store is the read side of the archive.
type Store interface {
	ListPosts(ctx context.Context, limit, offset int) ([]store.Post, error)
	GetPost(ctx context.Context, id int64) (*store.Post, error)
	Search(ctx context.Context, q string, limit int) ([]store.SearchHit, error)
	MediaByURL(ctx context.Context, url string) (*store.Media, error)
}

// Handler serves the archive API.
type Handler struct {
	store    Store
	markdown *render.MarkdownRenderer
}

// NewHandler creates a new API handler.
func NewHandler(s Store) *Handler {
	return &Handler{store: s, markdown: render.NewMarkdownRenderer()}
}

// postDetail is a post with its decoded block list.
type postDetail struct {
	*store.Post
	Blocks json.RawMessage `json:"blocks"`
}

// HealthCheck reports that the server is up.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListPosts returns a page of archived posts without their blocks.
func (h *Handler) ListPosts(c *gin.Context) {
	limit := pageLimit(c)
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	posts, err := h.store.ListPosts(c.Request.Context(), limit, offset)
	if err != nil {
		slog.Error("Listing posts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if posts == nil {
		posts = []store.Post{}
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "limit": limit, "offset": offset})
}

// GetPost returns one post with its blocks.
func (h *Handler) GetPost(c *gin.Context) {
	post, ok := h.lookup(c, c.Param("id"))
	if !ok {
		return
	}

	blocks, err := core.MarshalBlocks(post.Blocks)
	if err != nil {
		slog.Error("Encoding blocks failed", "id", post.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encoding error"})
		return
	}
	c.JSON(http.StatusOK, postDetail{Post: post, Blocks: blocks})
}

// GetMarkdown renders one post as Markdown. The route parameter carries the
// ".md" suffix.
func (h *Handler) GetMarkdown(c *gin.Context) {
	file := c.Param("file")
	if !strings.HasSuffix(file, ".md") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	post, ok := h.lookup(c, strings.TrimSuffix(file, ".md"))
	if !ok {
		return
	}

	data, err := h.markdown.Render(post.Result(), post.URL)
	if err != nil {
		slog.Error("Rendering markdown failed", "id", post.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render error"})
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", data)
}

// Search runs a full-text query over titles and bodies.
func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'q' parameter"})
		return
	}

	hits, err := h.store.Search(c.Request.Context(), q, pageLimit(c))
	if err != nil {
		slog.Error("Search failed", "query", q, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if hits == nil {
		hits = []store.SearchHit{}
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "hits": hits})
}

// GetMedia returns the local file stored for the remote media URL given in
// the url parameter.
func (h *Handler) GetMedia(c *gin.Context) {
	u := strings.TrimSpace(c.Query("url"))
	if u == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'url' parameter"})
		return
	}

	m, err := h.store.MediaByURL(c.Request.Context(), u)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}
	if err != nil {
		slog.Error("Loading media failed", "url", u, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, m)
}

// lookup loads the post named by rawID, writing the error response itself
// when it cannot.
func (h *Handler) lookup(c *gin.Context, rawID string) (*store.Post, bool) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return nil, false
	}

	post, err := h.store.GetPost(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return nil, false
	}
	if err != nil {
		slog.Error("Loading post failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return nil, false
	}
	return post, true
}

// pageLimit reads the limit parameter, falling back to defaultLimit when it
// is missing or outside 1..maxLimit.
func pageLimit(c *gin.Context) int {
	limit := queryInt(c, "limit", defaultLimit)
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
