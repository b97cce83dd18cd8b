package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRecordSync(t *testing.T) {
	runs := testutil.ToFloat64(SyncRunsTotal.WithLabelValues("category", "success"))
	added := testutil.ToFloat64(SyncRecordsTotal.WithLabelValues("added"))
	failed := testutil.ToFloat64(SyncRecordsTotal.WithLabelValues("failed"))

	RecordSync("category", "success", 4, 1, 2, time.Second)

	assert.Equal(t, runs+1, testutil.ToFloat64(SyncRunsTotal.WithLabelValues("category", "success")))
	assert.Equal(t, added+4, testutil.ToFloat64(SyncRecordsTotal.WithLabelValues("added")))
	assert.Equal(t, failed+2, testutil.ToFloat64(SyncRecordsTotal.WithLabelValues("failed")))
}

func TestGinMiddleware_LabelsByRoute(t *testing.T) {
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/courses/:code", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	matched := HTTPRequestsTotal.WithLabelValues("GET /api/courses/:code", "404")
	unmatched := HTTPRequestsTotal.WithLabelValues("GET unmatched", "404")
	beforeMatched := testutil.ToFloat64(matched)
	beforeUnmatched := testutil.ToFloat64(unmatched)

	for _, path := range []string{"/api/courses/CIT101", "/api/courses/MTH201", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, beforeMatched+2, testutil.ToFloat64(matched))
	assert.Equal(t, beforeUnmatched+1, testutil.ToFloat64(unmatched))
}
