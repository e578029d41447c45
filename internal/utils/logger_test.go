package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := &Logger{level: level, enabled: true}
	l.SetOutput(&buf)
	return l, &buf
}

func TestLoggerLevelsAndFields(t *testing.T) {
	l, buf := newBufferLogger(INFO)

	l.Debug("hidden", nil)
	l.Info("outline generated", map[string]interface{}{"title": "Moon Fox", "acts": 3})
	l.Warnf("retry %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] ")
	assert.Contains(t, out, "outline generated | acts=3 title=Moon Fox")
	assert.Contains(t, out, "[WARNING] ")
	assert.Contains(t, out, "retry 2")
	assert.NotContains(t, out, "\033[")
}

func TestLoggerDisabled(t *testing.T) {
	l, buf := newBufferLogger(DEBUG)
	l.Enable(false)
	l.Infof("nothing %s", "here")
	l.Debugf("nothing")
	assert.Empty(t, buf.String())

	l.Enable(true)
	l.SetLogLevel(ERROR)
	l.Infof("still nothing")
	l.Errorf("boom: %v", "io")
	assert.Contains(t, buf.String(), "[ERROR] ")
	assert.NotContains(t, buf.String(), "still nothing")
}

func TestInitLoggerWritesFile(t *testing.T) {
	logger := GetLogger()
	logger.Enable(true)
	defer logger.Enable(false)
	logger.SetOutput(&bytes.Buffer{})
	defer logger.SetOutput(os.Stdout)

	path := filepath.Join(t.TempDir(), "logs", "animstudio.log")
	require.NoError(t, InitLogger(path))
	logger.Warn("archive copy failed", map[string]interface{}{"filename": "a.zip"})
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[WARNING] ")
	assert.Contains(t, string(data), "filename=a.zip")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLogLevel(" Debug "))
	assert.Equal(t, WARNING, ParseLogLevel("warn"))
	assert.Equal(t, ERROR, ParseLogLevel("error"))
	assert.Equal(t, INFO, ParseLogLevel("verbose"))
}
