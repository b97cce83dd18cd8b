package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNormalizeCourseCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CIT101", "CIT101"},
		{"cit 101", "CIT101"},
		{"  Cit-101 ", "CIT101"},
		{"gst_105", "GST105"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCourseCode(tt.in))
		})
	}
}

func TestValidateCourseCode(t *testing.T) {
	assert.NoError(t, ValidateCourseCode("CSC201"))
	assert.ErrorIs(t, ValidateCourseCode("CS201"), ErrInvalidCourseCode)
	assert.ErrorIs(t, ValidateCourseCode("CSC2011"), ErrInvalidCourseCode)
	assert.ErrorIs(t, ValidateCourseCode("csc201"), ErrInvalidCourseCode)
	assert.ErrorIs(t, ValidateCourseCode(""), ErrInvalidCourseCode)
}

func TestLevelFromCode(t *testing.T) {
	tests := []struct {
		code string
		want CourseLevel
	}{
		{"CIT101", Level100},
		{"CSC201", Level200},
		{"MTH315", Level300},
		{"BIO411", Level400},
		{"EDU501", Level400},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			lvl, err := LevelFromCode(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, lvl)
		})
	}

	_, err := LevelFromCode("CIT001")
	assert.ErrorIs(t, err, ErrInvalidLevel)

	_, err = LevelFromCode("bad")
	assert.ErrorIs(t, err, ErrInvalidCourseCode)
}

func TestParseLevel(t *testing.T) {
	for _, in := range []string{"100 Level", "100", "100L", "100 level", "1"} {
		lvl, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, Level100, lvl)
	}

	_, err := ParseLevel("700 Level")
	assert.ErrorIs(t, err, ErrInvalidLevel)
	assert.Equal(t, 4, Level400.Ordinal())
	assert.Equal(t, 0, CourseLevel("nope").Ordinal())
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryComputerScience, ParseCategory("computer science"))
	assert.Equal(t, CategoryGeneralStudies, ParseCategory(" General Studies "))
	assert.Equal(t, CategoryOther, ParseCategory("Astrology"))
	assert.True(t, CategoryPhysics.IsValid())
	assert.False(t, CourseCategory("Astrology").IsValid())
}

func TestCourse_Availability(t *testing.T) {
	t.Run("bundled course is always available and never downloadable or deletable", func(t *testing.T) {
		for _, downloaded := range []bool{true, false} {
			c := Course{IsBundled: true, IsDownloaded: downloaded, FirebasePath: strPtr("courses/CIT101.pdf")}
			assert.True(t, c.IsAvailable())
			assert.False(t, c.CanDownload())
			assert.False(t, c.CanDelete())
		}
	})

	t.Run("remote course without locator cannot be downloaded", func(t *testing.T) {
		c := Course{}
		assert.False(t, c.IsAvailable())
		assert.False(t, c.CanDownload())

		c.FirebasePath = strPtr("   ")
		assert.False(t, c.CanDownload())
	})

	t.Run("downloaded course can be deleted but not downloaded", func(t *testing.T) {
		c := Course{IsDownloaded: true, FirebasePath: strPtr("courses/CSC201.pdf")}
		assert.True(t, c.IsAvailable())
		assert.False(t, c.CanDownload())
		assert.True(t, c.CanDelete())
	})
}

func TestCourse_Validate(t *testing.T) {
	c := Course{CourseCode: "CSC201", Title: "Computer Programming", Level: Level200}
	assert.NoError(t, c.Validate())

	c.FileSize = -1
	assert.Error(t, c.Validate())

	c.FileSize = 0
	c.Level = "9 Level"
	assert.ErrorIs(t, c.Validate(), ErrInvalidLevel)

	c.Level = Level200
	c.Title = " "
	assert.Error(t, c.Validate())
}

func TestDownloadProgress_SetBytes(t *testing.T) {
	var p DownloadProgress
	p.SetBytes(50, 0)
	assert.Equal(t, int64(50), p.DownloadedBytes)
	assert.Zero(t, p.Progress)

	p.SetBytes(25, 100)
	assert.InDelta(t, 0.25, p.Progress, 1e-9)
	assert.Equal(t, 25, p.Percent())

	p.SetBytes(150, 100)
	assert.Equal(t, 1.0, p.Progress)

	assert.True(t, DownloadStatusFailed.IsTerminal())
	assert.False(t, DownloadStatusDownloading.IsTerminal())
}
