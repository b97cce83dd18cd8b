package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const catalogCheckTimeout = 3 * time.Second

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db      DBPinger
	catalog ReachabilityChecker
	version string
}

// NewHealthController builds the health endpoint. The catalog checker is
// optional; an unreachable catalog only degrades the status since the
// library works offline.
func NewHealthController(db DBPinger, catalog ReachabilityChecker, version string) *HealthController {
	return &HealthController{
		db:      db,
		catalog: catalog,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
		status = "unhealthy"
	}

	if h.catalog != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), catalogCheckTimeout)
		err := h.catalog.CheckReachable(ctx)
		cancel()
		if err != nil {
			checks["catalog"] = "unreachable: " + err.Error()
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["catalog"] = "ok"
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
