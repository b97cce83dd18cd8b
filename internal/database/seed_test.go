package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/courseshelf/internal/database/courses"
	"github.com/mrlokans/courseshelf/internal/entities"
)

const seedYAML = `
- course_code: gst 101
  title: Use of English
  category: General Studies
  level: 100 Level
  file_size: 2048
  asset_path: pdfs/GST101.pdf
- course_code: CIT211
  title: Data Structures
  category: Witchcraft
  file_size: 4096
- course_code: BAD
  title: Broken record
`

func TestParseSeed_JSON(t *testing.T) {
	records, err := ParseSeed([]byte(`[{"course_code":"MTH101","title":"Calculus","category":"Mathematics","level":"100","file_size":10}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "MTH101", records[0].CourseCode)
	assert.Equal(t, int64(10), records[0].FileSize)
}

func TestSeedBundledCourses(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedYAML), 0o644))

	records, err := LoadSeedFile(seedPath)
	require.NoError(t, err)
	require.Len(t, records, 3)

	n, err := db.SeedBundledCourses(records, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	english, err := db.GetCourseByCode("GST101")
	require.NoError(t, err)
	require.NotNil(t, english)
	assert.True(t, english.IsBundled)
	assert.True(t, english.IsAvailable())
	assert.False(t, english.CanDownload())
	assert.NotEmpty(t, english.ID)
	require.NotNil(t, english.LocalPath)
	assert.Equal(t, filepath.Join(dir, "pdfs/GST101.pdf"), *english.LocalPath)
	assert.True(t, english.IsDownloaded)
	assert.NotNil(t, english.DownloadedAt)
	assert.False(t, english.CanDelete())

	ds, err := db.GetCourseByCode("CIT211")
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.Equal(t, entities.CategoryOther, ds.Category)
	assert.Equal(t, entities.Level200, ds.Level)

	bundled, err := db.ListCourses(courses.BundledOnly())
	require.NoError(t, err)
	assert.Len(t, bundled, 2)

	downloaded, err := db.ListCourses(courses.DownloadedOnly())
	require.NoError(t, err)
	assert.Len(t, downloaded, 2)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.DownloadedCourses)
	assert.Equal(t, int64(2), stats.BundledCourses)

	other, err := db.GetCategoryByName(string(entities.CategoryOther))
	require.NoError(t, err)
	assert.Equal(t, 1, other.CourseCount)

	// Second run is a no-op once the table has rows.
	n, err = db.SeedBundledCourses(records, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
