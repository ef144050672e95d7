package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommand(t *testing.T) {
	_, err := NewCommand("   ")
	assert.Error(t, err)

	c, err := NewCommand("adb install -r")
	require.NoError(t, err)
	assert.Equal(t, []string{"adb", "install", "-r", "{path}"}, c.args)

	c, err = NewCommand("pm install --path={path} --user 0")
	require.NoError(t, err)
	assert.Equal(t, []string{"pm", "install", "--path={path}", "--user", "0"}, c.args)
}

func TestCommand_RequestInstall(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX utilities")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "app.apk")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o600))
	dst := filepath.Join(dir, "installed.apk")

	c, err := NewCommand("cp {path} " + dst)
	require.NoError(t, err)
	require.NoError(t, c.RequestInstall(context.Background(), src))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestCommand_RequestInstallFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX utilities")
	}

	c, err := NewCommand("false")
	require.NoError(t, err)
	assert.Error(t, c.RequestInstall(context.Background(), "/tmp/app.apk"))

	c, err = NewCommand("directupdate-no-such-installer-binary")
	require.NoError(t, err)
	assert.Error(t, c.RequestInstall(context.Background(), "/tmp/app.apk"))
}

func TestResultHandler(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	rh := NewResultHandler(dir)

	_, err := rh.Read()
	assert.True(t, errors.Is(err, os.ErrNotExist))

	executedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	want := Result{
		Success:     false,
		Error:       "fallback location unavailable",
		AppName:     "Sample",
		VersionCode: 2,
		Path:        "/data/app_updates/sample.apk",
		Fallback:    true,
		ExecutedAt:  executedAt,
	}
	require.NoError(t, rh.Write(want))
	assert.NoFileExists(t, filepath.Join(dir, resultFile+".tmp"))

	got, err := rh.Read()
	require.NoError(t, err)
	assert.True(t, want.ExecutedAt.Equal(got.ExecutedAt))
	got.ExecutedAt = want.ExecutedAt
	assert.Equal(t, want, got)

	require.NoError(t, rh.Cleanup())
	require.NoError(t, rh.Cleanup())
	assert.NoFileExists(t, filepath.Join(dir, resultFile))
}

func TestResultHandler_SetsExecutedAt(t *testing.T) {
	rh := NewResultHandler(t.TempDir())
	require.NoError(t, rh.Write(Result{Success: true}))

	got, err := rh.Read()
	require.NoError(t, err)
	assert.False(t, got.ExecutedAt.IsZero())
}

func TestResultHandler_InvalidFormat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, resultFile), []byte("{"), 0o600))

	_, err := NewResultHandler(dir).Read()
	assert.ErrorContains(t, err, "invalid result format")
}
