package downloads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type progressEvent struct {
	downloaded, total int64
}

func TestHTTPFetcher_WritesFileAndReportsProgress(t *testing.T) {
	body := strings.Repeat("x", 4096)
	url := newFileServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CourseShelf-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write([]byte(body))
	})

	dest := filepath.Join(t.TempDir(), "courses", "CIT101.pdf")
	var events []progressEvent
	written, err := NewHTTPFetcher(nil, "CourseShelf-test").Fetch(context.Background(), url+"/CIT101.pdf", dest,
		func(downloaded, total int64) { events = append(events, progressEvent{downloaded, total}) })
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), written)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
	assert.Equal(t, []string{"CIT101.pdf"}, dirEntries(t, filepath.Dir(dest)))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, int64(len(body)), last.downloaded)
	assert.Equal(t, int64(len(body)), last.total)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].downloaded, events[i-1].downloaded)
	}
}

func TestHTTPFetcher_DefaultUserAgent(t *testing.T) {
	url := newFileServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CourseShelf/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte("pdf"))
	})

	dest := filepath.Join(t.TempDir(), "a.pdf")
	_, err := NewHTTPFetcher(nil, "").Fetch(context.Background(), url, dest, nil)
	require.NoError(t, err)
	assert.FileExists(t, dest)
}

func TestHTTPFetcher_NonOKStatus(t *testing.T) {
	url := newFileServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	dir := t.TempDir()
	dest := filepath.Join(dir, "MTH101.pdf")
	_, err := NewHTTPFetcher(nil, "").Fetch(context.Background(), url, dest, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.NoFileExists(t, dest)
	assert.Empty(t, dirEntries(t, dir))
}

func TestHTTPFetcher_ShortBodyLeavesNothing(t *testing.T) {
	url := newFileServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.Write([]byte(strings.Repeat("x", 40)))
	})

	dir := t.TempDir()
	dest := filepath.Join(dir, "PHY101.pdf")
	written, err := NewHTTPFetcher(nil, "").Fetch(context.Background(), url, dest, nil)
	require.Error(t, err)
	assert.LessOrEqual(t, written, int64(40))
	assert.NoFileExists(t, dest)
	assert.Empty(t, dirEntries(t, dir))
}

func TestHTTPFetcher_UnknownLength(t *testing.T) {
	url := newFileServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("first-"))
		w.(http.Flusher).Flush()
		w.Write([]byte("second"))
	})

	dest := filepath.Join(t.TempDir(), "GST101.pdf")
	var events []progressEvent
	written, err := NewHTTPFetcher(nil, "").Fetch(context.Background(), url, dest,
		func(downloaded, total int64) { events = append(events, progressEvent{downloaded, total}) })
	require.NoError(t, err)
	assert.Equal(t, int64(len("first-second")), written)

	require.NotEmpty(t, events)
	for _, e := range events {
		assert.Equal(t, int64(-1), e.total)
	}
	assert.Equal(t, written, events[len(events)-1].downloaded)
}

func TestHTTPFetcher_CancelledContext(t *testing.T) {
	url := newFileServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pdf"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	dest := filepath.Join(dir, "CIT102.pdf")
	_, err := NewHTTPFetcher(nil, "").Fetch(ctx, url, dest, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dirEntries(t, dir))
}
