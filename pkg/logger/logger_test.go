package logger

import (
	"bytes"
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, level LogLevel) (*Logger, *bytes.Buffer) {
	t.Helper()
	l, err := New(level, filepath.Join(t.TempDir(), "test.log"), false)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	var buf bytes.Buffer
	l.logger = log.New(&buf, "", 0)
	return l, &buf
}

func TestLoggerLevels(t *testing.T) {
	t.Run("should drop messages below the configured level", func(t *testing.T) {
		l, buf := newTestLogger(t, LevelWarn)

		l.Debug("debug message")
		l.Info("info message")
		l.Warn("warn message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "[WARN] warn message")
	})

	t.Run("should format arguments", func(t *testing.T) {
		l, buf := newTestLogger(t, LevelDebug)
		l.Info("solved %d steps for %s", 3, "thread-1")
		assert.Contains(t, buf.String(), "solved 3 steps for thread-1")
	})
}

func TestLoggerWithPrefix(t *testing.T) {
	l, buf := newTestLogger(t, LevelDebug)
	child := l.WithPrefix("controller")

	child.Info("run started")
	assert.Contains(t, buf.String(), "(controller) run started")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, parseLevel("debug"))
	assert.Equal(t, LevelWarn, parseLevel("warning"))
	assert.Equal(t, LevelInfo, parseLevel("unrecognized"))
}

func TestPackageFunctionsBeforeInit(t *testing.T) {
	saved := defaultLogger
	defaultLogger = nil
	t.Cleanup(func() { defaultLogger = saved })

	assert.NotPanics(t, func() {
		Debug("no default")
		Info("no default")
		Warn("no default")
		Error("no default")
	})
}
