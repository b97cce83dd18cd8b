package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseBoolQuery(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantVal  bool
		wantOK   bool
		wantCode int
	}{
		{"absent", "/", false, true, http.StatusOK},
		{"true", "/?downloaded=true", true, true, http.StatusOK},
		{"one", "/?downloaded=1", true, true, http.StatusOK},
		{"false", "/?downloaded=false", false, true, http.StatusOK},
		{"garbage", "/?downloaded=maybe", false, false, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", tt.url, nil)

			v, ok := parseBoolQuery(c, "downloaded")

			assert.Equal(t, tt.wantVal, v)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestParseLimitQuery(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/?limit=500", nil)

	n, ok := parseLimitQuery(c, "limit", 100)
	assert.True(t, ok)
	assert.Equal(t, 100, n)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/?limit=0", nil)

	_, ok = parseLimitQuery(c, "limit", 100)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid limit")
}

func TestRespondNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondNotFound(c, "course")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"course not found"}`, w.Body.String())
}
