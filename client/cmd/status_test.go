package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/netbirdio/directupdate/client/internal/updatemanager/installer"
)

func TestFormatResult(t *testing.T) {
	executedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	out := formatResult(installer.Result{
		Success:     false,
		Error:       "fallback failed: permission denied",
		AppName:     "Sample",
		VersionCode: 2,
		Path:        "/sdcard/Download/app.apk",
		Fallback:    true,
		ExecutedAt:  executedAt,
	})

	assert.Equal(t, "Last attempt: install failed\n"+
		"Application:  Sample (version 2)\n"+
		"Artifact:     /sdcard/Download/app.apk\n"+
		"Location:     fallback\n"+
		"Executed at:  2025-03-01T10:00:00Z\n"+
		"Error:        fallback failed: permission denied\n", out)
}
