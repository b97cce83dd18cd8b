package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/courseshelf/internal/downloads"
	"github.com/mrlokans/courseshelf/internal/entities"
)

type DownloadsController struct {
	engine  DownloadManager
	courses CourseLookup
	log     logrus.FieldLogger
}

func NewDownloadsController(engine DownloadManager, courses CourseLookup, log logrus.FieldLogger) *DownloadsController {
	return &DownloadsController{engine: engine, courses: courses, log: log}
}

type DownloadsOverview struct {
	Active        int                         `json:"active"`
	Queued        int                         `json:"queued"`
	MaxConcurrent int                         `json:"max_concurrent"`
	Downloads     []entities.DownloadProgress `json:"downloads"`
}

// DownloadStartResponse reports the engine's decision for one request.
type DownloadStartResponse struct {
	CourseCode string `json:"course_code"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// List handles GET /api/downloads
func (dc *DownloadsController) List(c *gin.Context) {
	c.JSON(http.StatusOK, DownloadsOverview{
		Active:        dc.engine.ActiveCount(),
		Queued:        dc.engine.QueuedCount(),
		MaxConcurrent: dc.engine.MaxConcurrent(),
		Downloads:     nonNil(dc.engine.AllProgress()),
	})
}

// Get handles GET /api/downloads/:code
// Falls back to the persisted row for transfers that ended in an earlier run.
func (dc *DownloadsController) Get(c *gin.Context) {
	course, ok := dc.lookup(c)
	if !ok {
		return
	}
	if progress, found := dc.engine.Progress(course.ID); found {
		c.JSON(http.StatusOK, progress)
		return
	}

	row, err := dc.courses.GetDownloadProgress(course.ID)
	if err != nil {
		respondInternalError(c, dc.log, err, "get download progress")
		return
	}
	if row == nil {
		respondNotFound(c, "download")
		return
	}
	c.JSON(http.StatusOK, row)
}

// Start handles POST /api/downloads/:code
func (dc *DownloadsController) Start(c *gin.Context) {
	course, ok := dc.lookup(c)
	if !ok {
		return
	}

	result := dc.engine.DownloadCourse(c.Request.Context(), course)
	body := DownloadStartResponse{
		CourseCode: course.CourseCode,
		Status:     result.Status.String(),
		Message:    result.Message,
	}

	switch {
	case result.Accepted():
		c.JSON(http.StatusAccepted, body)
	case result.Status == downloads.RejectedMetered:
		c.JSON(http.StatusForbidden, body)
	case result.Status == downloads.RejectedClosed:
		c.JSON(http.StatusServiceUnavailable, body)
	case result.Status == downloads.RejectedNoLocator:
		c.JSON(http.StatusUnprocessableEntity, body)
	default:
		c.JSON(http.StatusConflict, body)
	}
}

// Cancel handles DELETE /api/downloads/:code
func (dc *DownloadsController) Cancel(c *gin.Context) {
	course, ok := dc.lookup(c)
	if !ok {
		return
	}

	result := dc.engine.CancelDownload(course.ID)
	if result == downloads.CancelNotFound {
		respondNotFound(c, "download")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"course_code": course.CourseCode,
		"result":      result.String(),
	})
}

// DeleteFile handles DELETE /api/downloads/:code/file
func (dc *DownloadsController) DeleteFile(c *gin.Context) {
	course, ok := dc.lookup(c)
	if !ok {
		return
	}
	if course.IsBundled {
		respondError(c, http.StatusConflict, "bundled", "bundled courses cannot be deleted")
		return
	}
	if !course.IsDownloaded {
		respondError(c, http.StatusConflict, "not_downloaded", "course is not downloaded")
		return
	}

	if err := dc.engine.DeleteDownload(c.Request.Context(), course); err != nil {
		respondInternalError(c, dc.log, err, "delete download")
		return
	}
	respondSuccess(c, "download deleted")
}

// Clear handles DELETE /api/downloads
// Cancels everything in flight and removes every downloaded file.
func (dc *DownloadsController) Clear(c *gin.Context) {
	if err := dc.engine.ClearAllDownloads(c.Request.Context()); err != nil {
		respondInternalError(c, dc.log, err, "clear downloads")
		return
	}
	respondSuccess(c, "all downloads cleared")
}

func (dc *DownloadsController) lookup(c *gin.Context) (*entities.Course, bool) {
	course, err := dc.courses.GetCourseByCode(c.Param("code"))
	if err != nil {
		respondInternalError(c, dc.log, err, "lookup course")
		return nil, false
	}
	if course == nil {
		respondNotFound(c, "course")
		return nil, false
	}
	return course, true
}
