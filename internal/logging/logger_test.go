package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"storemirror/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForComponent(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	logger := ForComponent(&base, "engine")
	logger.Info().Msg("task claimed")

	assert.Contains(t, buf.String(), `"component":"engine"`)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	logger, closer, err := New(
		config.LoggingConfig{Output: "file", FilePath: path},
		config.AppConfig{Name: "storemirror", Environment: "test"},
	)
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Info().Msg("started")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"app":"storemirror"`)
	assert.Contains(t, string(data), `"env":"test"`)
}

func TestNew_FileRequiresPath(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Output: "file"}, config.AppConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file_path")
}

func TestNew_LevelParsing(t *testing.T) {
	logger, _, err := New(config.LoggingConfig{Level: "warn"}, config.AppConfig{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	// Garbage levels fall back to info rather than failing startup.
	logger, _, err = New(config.LoggingConfig{Level: "loud"}, config.AppConfig{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
