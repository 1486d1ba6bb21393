package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("info"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("garbage"))
}

func TestInitWithFileConfigWritesFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "engine.log")

	err := InitWithFileConfig("debug", DefaultFileConfig(logPath), false)
	require.NoError(t, err)

	Info("test entry", zap.Int("value", 7))
	Sync()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "test entry")
}

func TestPackageHelpersSafeWithoutInit(t *testing.T) {
	// The init-time no-op logger must absorb calls without panicking.
	prev := Log
	defer func() {
		Log = prev
		Sugar = prev.Sugar()
	}()
	Log = zap.NewNop()
	Sugar = Log.Sugar()

	assert.NotPanics(t, func() {
		Debug("a")
		Info("b")
		Warn("c")
		Error("d")
	})
}
