package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/courseshelf/internal/catalogsync"
	"github.com/mrlokans/courseshelf/internal/downloads"
	"github.com/mrlokans/courseshelf/internal/entities"
)

type recordingSyncer struct {
	result     catalogsync.Result
	forced     []bool
	categories []entities.CourseCategory
	levels     []entities.CourseLevel
}

func (r *recordingSyncer) SyncCatalog(_ context.Context, force bool) catalogsync.Result {
	r.forced = append(r.forced, force)
	return r.result
}

func (r *recordingSyncer) SyncCategory(_ context.Context, c entities.CourseCategory) catalogsync.Result {
	r.categories = append(r.categories, c)
	return r.result
}

func (r *recordingSyncer) SyncLevel(_ context.Context, l entities.CourseLevel) catalogsync.Result {
	r.levels = append(r.levels, l)
	return r.result
}

func TestSyncTaskConfigs(t *testing.T) {
	cfg := SyncCatalogTask{}.Config()
	assert.Equal(t, "sync_catalog", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 10*time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)

	assert.Equal(t, "sync_category", SyncCategoryTask{}.Config().Name)
	assert.Equal(t, "sync_level", SyncLevelTask{}.Config().Name)
	assert.Equal(t, "download_course", DownloadCourseTask{}.Config().Name)
}

func TestSyncCatalogProcessor(t *testing.T) {
	log, _ := test.NewNullLogger()

	t.Run("success", func(t *testing.T) {
		syncer := &recordingSyncer{result: catalogsync.Result{Success: true, CoursesAdded: 3}}
		err := SyncCatalogProcessor(syncer, log)(context.Background(), SyncCatalogTask{Force: true})
		assert.NoError(t, err)
		assert.Equal(t, []bool{true}, syncer.forced)
	})

	t.Run("in-progress is retried", func(t *testing.T) {
		syncer := &recordingSyncer{result: catalogsync.Result{Message: catalogsync.MessageInProgress}}
		err := SyncCatalogProcessor(syncer, log)(context.Background(), SyncCatalogTask{})
		assert.ErrorIs(t, err, catalogsync.ErrSyncFailed)
	})

	t.Run("nil syncer", func(t *testing.T) {
		err := SyncCatalogProcessor(nil, log)(context.Background(), SyncCatalogTask{})
		assert.Error(t, err)
	})
}

func TestSyncCategoryAndLevelProcessors(t *testing.T) {
	log, hook := test.NewNullLogger()
	syncer := &recordingSyncer{result: catalogsync.Result{Success: true}}

	require.NoError(t, SyncCategoryProcessor(syncer, log)(context.Background(), SyncCategoryTask{Category: "physics"}))
	require.NoError(t, SyncCategoryProcessor(syncer, log)(context.Background(), SyncCategoryTask{Category: "Alchemy"}))
	assert.Equal(t, []entities.CourseCategory{entities.CategoryPhysics, entities.CategoryOther}, syncer.categories)

	require.NoError(t, SyncLevelProcessor(syncer, log)(context.Background(), SyncLevelTask{Level: "300"}))
	assert.Equal(t, []entities.CourseLevel{entities.Level300}, syncer.levels)

	// An unparseable level is dropped rather than retried.
	require.NoError(t, SyncLevelProcessor(syncer, log)(context.Background(), SyncLevelTask{Level: "900"}))
	assert.Len(t, syncer.levels, 1)
	assert.Equal(t, "[TASK] sync_level: dropped", hook.LastEntry().Message)
}

type mapLookup map[string]*entities.Course

func (m mapLookup) GetCourseByCode(code string) (*entities.Course, error) {
	if code == "ERR000" {
		return nil, errors.New("disk I/O error")
	}
	return m[entities.NormalizeCourseCode(code)], nil
}

type stubDownloader struct {
	result downloads.StartResult
	got    []string
}

func (s *stubDownloader) DownloadCourse(_ context.Context, c *entities.Course) downloads.StartResult {
	s.got = append(s.got, c.CourseCode)
	return s.result
}

func TestDownloadCourseProcessor(t *testing.T) {
	log, _ := test.NewNullLogger()
	lookup := mapLookup{"CIT101": {ID: "c1", CourseCode: "CIT101", Title: "Computing"}}

	tests := []struct {
		name    string
		code    string
		status  downloads.StartStatus
		wantErr bool
		calls   int
	}{
		{"started", "cit 101", downloads.Started, false, 1},
		{"queued", "CIT101", downloads.Queued, false, 1},
		{"already downloading is done", "CIT101", downloads.RejectedActive, false, 1},
		{"metered network retries", "CIT101", downloads.RejectedMetered, true, 1},
		{"engine closed retries", "CIT101", downloads.RejectedClosed, true, 1},
		{"bundled is dropped", "CIT101", downloads.RejectedBundled, false, 1},
		{"unknown course is dropped", "XYZ999", downloads.Started, false, 0},
		{"lookup error retries", "ERR000", downloads.Started, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &stubDownloader{result: downloads.StartResult{Status: tt.status, Message: tt.status.String()}}
			err := DownloadCourseProcessor(lookup, engine, log)(context.Background(), DownloadCourseTask{CourseCode: tt.code})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, engine.got, tt.calls)
		})
	}
}
