package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"panic": zapcore.PanicLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextHelpers verifies that scoped loggers travel through the context.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "reconciler")
	ctx = WithKV(ctx, "building_id", int64(4))

	InfoKV(ctx, "edge detected", "to", "armed")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "reconciler", entries[0].LoggerName)
	require.Equal(t, "edge detected", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, int64(4), fields["building_id"])
	require.Equal(t, "armed", fields["to"])

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestNewWithFile checks that entries reach the rotated file.
func TestNewWithFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	l, closer, err := NewWithFile(zapcore.InfoLevel, FileOptions{
		Pattern:      filepath.Join(dir, "sentinel-%Y%m%d.log"),
		MaxAge:       time.Hour,
		RotationTime: time.Hour,
	})
	require.NoError(t, err)

	l.Infow("cycle finished", "transitioned", 2)
	_ = l.Sync()
	require.NoError(t, closer.Close())

	files, err := filepath.Glob(filepath.Join(dir, "sentinel-*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	require.Contains(t, string(data), `"message":"cycle finished"`)
}

// TestNewWithFile_FileLevel checks that the file sink drops entries below its own level
// while the console keeps them.
func TestNewWithFile_FileLevel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	l, closer, err := NewWithFile(zapcore.DebugLevel, FileOptions{
		Pattern:      filepath.Join(dir, "sentinel-%Y%m%d.log"),
		MaxAge:       time.Hour,
		RotationTime: time.Hour,
		Level:        zapcore.WarnLevel,
	})
	require.NoError(t, err)
	require.True(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))

	l.Infow("edge detected", "building_id", 4)
	l.Warnw("alert sink failed", "building_id", 4)
	_ = l.Sync()
	require.NoError(t, closer.Close())

	files, err := filepath.Glob(filepath.Join(dir, "sentinel-*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	require.Contains(t, string(data), `"message":"alert sink failed"`)
	require.NotContains(t, string(data), "edge detected")
}
