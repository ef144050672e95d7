package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	stateDir := t.TempDir()
	t.Setenv("DU_STATE_DIR", stateDir)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "lenient", cfg.Profile)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Zero(t, cfg.RetryDelay)
	assert.Equal(t, "console", cfg.LogFile)
	assert.Equal(t, filepath.Join(stateDir, "app_updates"), cfg.DownloadDir)
	assert.Equal(t, filepath.Join(stateDir, "triggers"), cfg.TriggerDir)

	assert.EqualError(t, cfg.Validate(), "config-url is required")
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
config-url: https://file.example/update.json
profile: strict
current-version-code: 3
retry-delay: 2s
fallback-dir: /sdcard/Download
install-command: adb install -r {path}
`)
	t.Setenv("DU_CONFIG_URL", "https://env.example/update.json")
	t.Setenv("DU_POLL_INTERVAL", "5m")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(KeyProfile, "lenient", "")
	flags.Int(KeyCurrentVersionCode, 0, "")
	flags.String(KeyStateDir, "", "")
	require.NoError(t, flags.Parse([]string{"--current-version-code=7", "--state-dir=" + t.TempDir()}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://env.example/update.json", cfg.ConfigURL)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	// an unchanged flag does not override the file
	assert.Equal(t, "strict", cfg.Profile)
	assert.Equal(t, 7, cfg.CurrentVersionCode)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.Equal(t, "/sdcard/Download", cfg.FallbackDir)
	assert.Equal(t, "adb install -r {path}", cfg.InstallCommand)
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "config-url: [unterminated"), nil)
	assert.ErrorContains(t, err, "parse")

	_, err = Load(t.TempDir(), nil)
	assert.ErrorContains(t, err, "is a directory")

	t.Setenv("DU_STATE_DIR", t.TempDir())
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.NoError(t, err)

	_, err = Load(writeConfig(t, "  \n"), nil)
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{ConfigURL: "https://example.com", CurrentVersionCode: -1}
	assert.Error(t, cfg.Validate())

	cfg = &Config{ConfigURL: "https://example.com", RetryDelay: -time.Second}
	assert.Error(t, cfg.Validate())
}
