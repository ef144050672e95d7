package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbirdio/directupdate/client/internal/config"
)

func TestInitCommands(t *testing.T) {
	helpFlag := "-h"
	commandArgs := [][]string{{"root", helpFlag}}
	for _, command := range rootCmd.Commands() {
		commandArgs = append(commandArgs, []string{command.Name(), command.Name(), helpFlag})
	}

	for _, args := range commandArgs {
		t.Run(fmt.Sprintf("Testing Command %s", args[0]), func(t *testing.T) {
			defer func() {
				err := recover()
				if err != nil {
					t.Fatalf("got an panic error while running the command: %s -h. Error: %s", args[0], err)
				}
			}()

			rootCmd.SetArgs(args[1:])
			rootCmd.SetOut(io.Discard)
			if err := rootCmd.Execute(); err != nil {
				t.Errorf("expected no error while running %s command, got %v", args[0], err)
				return
			}
		})
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func newUpdateServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/config.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"appName":"Sample","versionCode":2,"versionName":"1.1","downloadUrl":"%s/app.apk","apkFileName":"app.apk","releaseNotes":"Bug fixes","immediateUpdate":true}`, srv.URL)
	})
	mux.HandleFunc("/app.apk", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64*1024))
	})
	return srv
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "development\n", out)
}

func TestCheckUpdateInstallStatus(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX utilities")
	}

	srv := newUpdateServer(t)
	stateDir := t.TempDir()
	installed := filepath.Join(t.TempDir(), "installed.apk")
	common := []string{
		"--config-url", srv.URL + "/config.json",
		"--state-dir", stateDir,
		"--current-version-code", "1",
		"--install-command", "cp {path} " + installed,
	}

	out, err := execute(t, "status", "--state-dir", stateDir)
	require.NoError(t, err)
	assert.Contains(t, out, "No install attempt recorded")

	out, err = execute(t, append([]string{"check"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Mandatory update available")
	assert.Contains(t, out, "ImmediateAvailable")
	assert.Contains(t, out, "Bug fixes")

	out, err = execute(t, append([]string{"update"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Download progress: 100%")
	assert.Contains(t, out, "Download complete")
	assert.FileExists(t, filepath.Join(stateDir, "app_updates", "app.apk"))

	out, err = execute(t, append([]string{"install"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Update already downloaded")
	assert.Contains(t, out, "Installation started")
	assert.FileExists(t, installed)

	out, err = execute(t, "status", "--state-dir", stateDir)
	require.NoError(t, err)
	assert.Contains(t, out, "install started")
	assert.Contains(t, out, "Sample (version 2)")

	t.Cleanup(func() { clearResult = false })
	out, err = execute(t, "status", "--state-dir", stateDir, "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "install started")
	assert.Contains(t, out, "Install result cleared")

	out, err = execute(t, "status", "--state-dir", stateDir, "--clear=false")
	require.NoError(t, err)
	assert.Contains(t, out, "No install attempt recorded")
}

func TestCheckUpToDate(t *testing.T) {
	srv := newUpdateServer(t)

	out, err := execute(t, "check", "--config-url", srv.URL+"/config.json", "--state-dir", t.TempDir(), "--current-version-code", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Already up to date")
	assert.Contains(t, out, "UpToDate")
}

func TestCheckFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	out, err := execute(t, "check", "--config-url", srv.URL+"/config.json", "--state-dir", t.TempDir(), "--current-version-code", "1")
	assert.Error(t, err)
	assert.Contains(t, out, "unexpected HTTP status: 404")
}

func TestInstallSessionRequest(t *testing.T) {
	t.Cleanup(func() { sessionID = "" })
	triggerDir := t.TempDir()

	out, err := execute(t, "install", "--config-url", "http://localhost/config.json", "--session", "2b5f4b2c-6d8e-4bb1-9a57-0a4b1f9d1c11", "--trigger-dir", triggerDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Install requested")

	_, err = os.Stat(filepath.Join(triggerDir, "2b5f4b2c-6d8e-4bb1-9a57-0a4b1f9d1c11.install"))
	assert.NoError(t, err)
}

func TestUpdateSlowDownloadOutlastsHTTPTimeout(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/config.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"appName":"Sample","versionCode":2,"versionName":"1.1","downloadUrl":"%s/app.apk","apkFileName":"app.apk","releaseNotes":"","immediateUpdate":false}`, srv.URL)
	})
	mux.HandleFunc("/app.apk", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		for i := 0; i < 10; i++ {
			time.Sleep(50 * time.Millisecond)
			_, _ = w.Write([]byte{'x'})
			w.(http.Flusher).Flush()
		}
	})

	t.Cleanup(func() {
		_ = rootCmd.PersistentFlags().Set(config.KeyHTTPTimeout, config.DefaultHTTPTimeout.String())
	})

	stateDir := t.TempDir()
	out, err := execute(t, "update", "--config-url", srv.URL+"/config.json", "--state-dir", stateDir,
		"--current-version-code", "1", "--http-timeout", "200ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Download complete")

	info, err := os.Stat(filepath.Join(stateDir, "app_updates", "app.apk"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Size())
}

func TestHTTPClients(t *testing.T) {
	cfg := &config.Config{HTTPTimeout: time.Minute}

	assert.Equal(t, time.Minute, newHTTPClient(cfg, nil).Timeout)
	assert.Zero(t, newDownloadClient(nil).Timeout)
}
