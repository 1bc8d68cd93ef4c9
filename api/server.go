// Package api serves stored category reports over HTTP.
package api

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/newsharvest/newsfeed"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// APIServer exposes a newsfeed.Store read-only.
type APIServer struct {
	store newsfeed.Store
}

// NewAPIServer creates a new API server over store.
func NewAPIServer(store newsfeed.Store) *APIServer {
	return &APIServer{
		store: store,
	}
}

// SetupRouter configures the Gin router with all report routes
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(corsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.GET("/categories", s.HandleListCategories)
	api.GET("/categories/:slug", s.HandleGetCategory)
	api.GET("/articles", s.HandleListArticles)

	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// CategorySummary describes one stored report without its articles.
type CategorySummary struct {
	Category      string    `json:"category"`
	Slug          string    `json:"slug"`
	ScrapedAt     time.Time `json:"scraped_at"`
	TotalArticles int       `json:"total_articles"`
}

// ListCategoriesResponse is the response for GET /api/v1/categories.
type ListCategoriesResponse struct {
	Categories []CategorySummary `json:"categories"`
	// Reports that exist but could not be read.
	Errors []string `json:"errors,omitempty"`
}

// ListArticlesResponse is the response for GET /api/v1/articles.
type ListArticlesResponse struct {
	Articles []newsfeed.Article `json:"articles"`
	Total    int                `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// HandleListCategories handles GET /api/v1/categories.
func (s *APIServer) HandleListCategories(c *gin.Context) {
	result, err := s.store.List()
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "internal_error", "Failed to list reports: "+err.Error())
		return
	}

	resp := ListCategoriesResponse{Categories: []CategorySummary{}}
	for _, r := range result.Reports {
		resp.Categories = append(resp.Categories, CategorySummary{
			Category:      r.Category,
			Slug:          newsfeed.SafeName(r.Category),
			ScrapedAt:     r.ScrapedAt,
			TotalArticles: r.TotalArticles,
		})
	}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}

	c.JSON(http.StatusOK, resp)
}

// HandleGetCategory handles GET /api/v1/categories/{slug}. The slug is the
// category name as returned in the listing, or the plain name when it has
// no slash.
func (s *APIServer) HandleGetCategory(c *gin.Context) {
	report, err := s.findReport(c.Param("slug"))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "internal_error", "Failed to get report: "+err.Error())
		return
	}
	if report == nil {
		errorResponse(c, http.StatusNotFound, "not_found", "Category not found")
		return
	}

	c.JSON(http.StatusOK, report)
}

// HandleListArticles handles GET /api/v1/articles. Articles can be narrowed
// by category, source, author and a published_date lower bound, and are
// returned in report order unless sort is given.
func (s *APIServer) HandleListArticles(c *gin.Context) {
	var articles []newsfeed.Article

	if slug := c.Query("category"); slug != "" {
		report, err := s.findReport(slug)
		if err != nil {
			errorResponse(c, http.StatusInternalServerError, "internal_error", "Failed to get report: "+err.Error())
			return
		}
		if report == nil {
			errorResponse(c, http.StatusNotFound, "not_found", "Category not found")
			return
		}
		articles = report.Articles
	} else {
		result, err := s.store.List()
		if err != nil {
			errorResponse(c, http.StatusInternalServerError, "internal_error", "Failed to list reports: "+err.Error())
			return
		}
		for _, r := range result.Reports {
			articles = append(articles, r.Articles...)
		}
	}

	if source := c.Query("source"); source != "" {
		articles = filterArticles(articles, func(a newsfeed.Article) bool { return a.Source == source })
	}
	if author := c.Query("author"); author != "" {
		articles = filterArticles(articles, func(a newsfeed.Article) bool { return a.Author != nil && *a.Author == author })
	}
	if since := c.Query("since"); since != "" {
		sinceTime, err := time.Parse(time.RFC3339, since)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid_parameter", "Invalid since parameter: must be ISO 8601 format")
			return
		}
		articles = filterArticles(articles, func(a newsfeed.Article) bool {
			t, ok := publishedAt(a)
			return ok && !t.Before(sinceTime)
		})
	}

	switch sortParam := c.Query("sort"); sortParam {
	case "":
	case "published_desc", "published_asc":
		sortByPublished(articles, sortParam == "published_desc")
	default:
		errorResponse(c, http.StatusBadRequest, "invalid_parameter", "Invalid sort parameter")
		return
	}

	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ListArticlesResponse{
		Articles: paginate(articles, offset, limit),
		Total:    len(articles),
		Limit:    limit,
		Offset:   offset,
	})
}

// findReport resolves a slug or category name to its stored report.
func (s *APIServer) findReport(slug string) (*newsfeed.CategoryReport, error) {
	report, err := s.store.Get(slug)
	if err != nil || report != nil {
		return report, err
	}

	result, err := s.store.List()
	if err != nil {
		return nil, err
	}
	for i := range result.Reports {
		if newsfeed.SafeName(result.Reports[i].Category) == newsfeed.SafeName(slug) {
			return &result.Reports[i], nil
		}
	}
	return nil, nil
}

func filterArticles(articles []newsfeed.Article, keep func(newsfeed.Article) bool) []newsfeed.Article {
	var filtered []newsfeed.Article
	for _, a := range articles {
		if keep(a) {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// publishedAt parses an article's published_date, which may lack a zone.
func publishedAt(a newsfeed.Article) (time.Time, bool) {
	if a.PublishedDate == nil {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, *a.PublishedDate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// sortByPublished orders articles by date. Undated articles go last either
// way.
func sortByPublished(articles []newsfeed.Article, desc bool) {
	sort.SliceStable(articles, func(i, j int) bool {
		ti, okI := publishedAt(articles[i])
		tj, okJ := publishedAt(articles[j])
		if !okI || !okJ {
			return okI && !okJ
		}
		if desc {
			return ti.After(tj)
		}
		return ti.Before(tj)
	})
}

// pagination reads limit and offset, writing a 400 when either is invalid.
func pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit = defaultLimit
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			errorResponse(c, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
			return 0, 0, false
		}
		limit = min(parsed, maxLimit)
	}

	if offsetParam := c.Query("offset"); offsetParam != "" {
		parsed, err := strconv.Atoi(offsetParam)
		if err != nil || parsed < 0 {
			errorResponse(c, http.StatusBadRequest, "invalid_parameter", "Invalid offset parameter")
			return 0, 0, false
		}
		offset = parsed
	}

	return limit, offset, true
}

// paginate returns a slice of articles for the given offset and limit.
func paginate(articles []newsfeed.Article, offset, limit int) []newsfeed.Article {
	if offset >= len(articles) {
		return []newsfeed.Article{}
	}

	end := min(offset+limit, len(articles))

	return articles[offset:end]
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
