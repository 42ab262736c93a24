package logger

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"CaseReview/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStartWritesJSONFileAndConsole(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	svc := NewLoggerService(config.LogConfig{Folder: dir, RetentionDays: 30, Level: "info"}, "run-42")
	svc.SetConsole(&console)

	require.NoError(t, svc.Start())
	svc.Logger().Debug("hidden")
	svc.LogAudit("report published", zap.Int("rows", 3))
	require.NoError(t, svc.Stop())

	assert.Equal(t, dir, filepath.Dir(svc.CurrentFile()))
	assert.True(t, strings.HasPrefix(filepath.Base(svc.CurrentFile()), "casereview_"))
	data, err := os.ReadFile(svc.CurrentFile())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"[AUDIT] report published"`)
	assert.Contains(t, string(data), `"run_id":"run-42"`)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, console.String(), "report published")

	// Stopped service falls back to a no-op logger.
	svc.Logger().Info("after stop")
	require.NoError(t, svc.Stop())
}

func TestStaleLogsAreZipped(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 8, 8, 12, 0, 0, 0, time.UTC)
	old := filepath.Join(dir, "casereview_20250601_000000.log")
	fresh := filepath.Join(dir, "casereview_20250807_000000.log")
	require.NoError(t, os.WriteFile(old, []byte("old run"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("new run"), 0o644))
	require.NoError(t, os.Chtimes(old, now.AddDate(0, 0, -60), now.AddDate(0, 0, -60)))
	require.NoError(t, os.Chtimes(fresh, now.AddDate(0, 0, -1), now.AddDate(0, 0, -1)))

	svc := NewLoggerService(config.LogConfig{Folder: dir, RetentionDays: 30}, "run")
	svc.zipAndCleanOldLogs(now)

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)

	zr, err := zip.OpenReader(filepath.Join(dir, "logs_20250808_120000.zip"))
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, filepath.Base(old), zr.File[0].Name)
}

func TestNothingStaleMeansNoArchive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "casereview_x.log"), []byte("x"), 0o644))

	svc := NewLoggerService(config.LogConfig{Folder: dir, RetentionDays: 30}, "run")
	svc.zipAndCleanOldLogs(time.Now())

	matches, err := filepath.Glob(filepath.Join(dir, "*.zip"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestGlobalLoggerDefaultsToNop(t *testing.T) {
	SetGlobalLogger(nil)
	assert.NotNil(t, L())

	svc := NewLoggerService(config.LogConfig{Folder: t.TempDir()}, "run")
	SetGlobalLogger(svc)
	t.Cleanup(func() { SetGlobalLogger(nil) })
	assert.Same(t, svc.Logger(), L())
}
