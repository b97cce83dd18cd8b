package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/courseshelf/internal/entities"
	"github.com/mrlokans/courseshelf/internal/library"
)

const maxHistoryLimit = 100

// CoursesController serves the browse, search and stats endpoints.
type CoursesController struct {
	library Library
	log     logrus.FieldLogger
}

func NewCoursesController(lib Library, log logrus.FieldLogger) *CoursesController {
	return &CoursesController{library: lib, log: log}
}

// List handles GET /api/courses
// Query: category, level, downloaded, bundled, sort (code|title|level|recent)
func (cc *CoursesController) List(c *gin.Context) {
	var opts library.BrowseOptions

	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		opts.Category = entities.ParseCategory(raw)
	}
	if raw := strings.TrimSpace(c.Query("level")); raw != "" {
		level, err := entities.ParseLevel(raw)
		if err != nil {
			respondBadRequest(c, "invalid level")
			return
		}
		opts.Level = level
	}

	var ok bool
	if opts.DownloadedOnly, ok = parseBoolQuery(c, "downloaded"); !ok {
		return
	}
	if opts.BundledOnly, ok = parseBoolQuery(c, "bundled"); !ok {
		return
	}
	if raw := c.Query("sort"); raw != "" {
		order, err := library.ParseSortOrder(raw)
		if err != nil {
			respondBadRequest(c, err.Error())
			return
		}
		opts.Sort = order
	}

	list, err := cc.library.Browse(c.Request.Context(), opts)
	if err != nil {
		respondInternalError(c, cc.log, err, "browse courses")
		return
	}
	respondList(c, nonNil(list), len(list))
}

// Get handles GET /api/courses/:code and records the access.
func (cc *CoursesController) Get(c *gin.Context) {
	course, err := cc.library.Course(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondInternalError(c, cc.log, err, "get course")
		return
	}
	if course == nil {
		respondNotFound(c, "course")
		return
	}
	c.JSON(http.StatusOK, course)
}

// Search handles GET /api/search?q=
func (cc *CoursesController) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondBadRequest(c, "q is required")
		return
	}

	results, err := cc.library.Search(c.Request.Context(), query)
	if err != nil {
		respondInternalError(c, cc.log, err, "search courses")
		return
	}
	respondList(c, nonNil(results), len(results))
}

// Categories handles GET /api/categories
func (cc *CoursesController) Categories(c *gin.Context) {
	categories, err := cc.library.Categories(c.Request.Context())
	if err != nil {
		respondInternalError(c, cc.log, err, "list categories")
		return
	}
	respondList(c, nonNil(categories), len(categories))
}

// Stats handles GET /api/stats
func (cc *CoursesController) Stats(c *gin.Context) {
	stats, err := cc.library.Stats(c.Request.Context())
	if err != nil {
		respondInternalError(c, cc.log, err, "storage stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// History handles GET /api/history?limit=
func (cc *CoursesController) History(c *gin.Context) {
	limit, ok := parseLimitQuery(c, "limit", maxHistoryLimit)
	if !ok {
		return
	}
	searches, err := cc.library.RecentSearches(c.Request.Context(), limit)
	if err != nil {
		respondInternalError(c, cc.log, err, "recent searches")
		return
	}
	respondList(c, nonNil(searches), len(searches))
}

// ClearHistory handles DELETE /api/history
func (cc *CoursesController) ClearHistory(c *gin.Context) {
	if err := cc.library.ClearSearchHistory(c.Request.Context()); err != nil {
		respondInternalError(c, cc.log, err, "clear search history")
		return
	}
	respondSuccess(c, "search history cleared")
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
