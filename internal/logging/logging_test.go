package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/courseshelf/internal/config"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput(config.Logging{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("course_code", "CIT101").Debug("queued")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "queued", entry["msg"])
	assert.Equal(t, "CIT101", entry["course_code"])
}

func TestNewWithOutput_Defaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput(config.Logging{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestNewWithOutput_Invalid(t *testing.T) {
	_, err := NewWithOutput(config.Logging{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = NewWithOutput(config.Logging{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
