// Package descriptor fetches and parses the remote update descriptor.
package descriptor

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// UpdateConfig is the result of one update check: the remote descriptor combined
// with the version code of the local installation at fetch time
type UpdateConfig struct {
	AppName            string
	CurrentVersionCode int
	VersionCode        int
	VersionName        string
	DownloadURL        string
	ArtifactFileName   string
	ReleaseNotes       string
	ImmediateUpdate    bool
}

// UpdateAvailable reports whether the remote version is newer than the installed one
func (c *UpdateConfig) UpdateAvailable() bool {
	return c.VersionCode > c.CurrentVersionCode
}

// Semver parses VersionName for display purposes. The update decision never depends on it.
func (c *UpdateConfig) Semver() (*goversion.Version, error) {
	return goversion.NewVersion(c.VersionName)
}

// DisplayVersion returns a normalized version name when it parses, the raw name otherwise
func (c *UpdateConfig) DisplayVersion() string {
	v, err := c.Semver()
	if err != nil {
		return c.VersionName
	}
	return v.String()
}

// remoteDescriptor mirrors the wire format. Pointers tell a missing field from a zero value.
type remoteDescriptor struct {
	AppName         *string `json:"appName"`
	VersionCode     *int    `json:"versionCode"`
	VersionName     *string `json:"versionName"`
	DownloadURL     *string `json:"downloadUrl"`
	ApkFileName     *string `json:"apkFileName"`
	ReleaseNotes    *string `json:"releaseNotes"`
	ImmediateUpdate *bool   `json:"immediateUpdate"`
}

// Parse decodes a descriptor body. Every field is required and must carry the expected JSON type.
func Parse(data []byte) (UpdateConfig, error) {
	var rd remoteDescriptor
	if err := json.Unmarshal(data, &rd); err != nil {
		return UpdateConfig{}, fmt.Errorf("decode descriptor: %w", err)
	}

	var missing []string
	check := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	check("appName", rd.AppName != nil)
	check("versionCode", rd.VersionCode != nil)
	check("versionName", rd.VersionName != nil)
	check("downloadUrl", rd.DownloadURL != nil)
	check("apkFileName", rd.ApkFileName != nil)
	check("releaseNotes", rd.ReleaseNotes != nil)
	check("immediateUpdate", rd.ImmediateUpdate != nil)
	if len(missing) > 0 {
		return UpdateConfig{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	if err := validateFileName(*rd.ApkFileName); err != nil {
		return UpdateConfig{}, err
	}

	return UpdateConfig{
		AppName:          *rd.AppName,
		VersionCode:      *rd.VersionCode,
		VersionName:      *rd.VersionName,
		DownloadURL:      *rd.DownloadURL,
		ArtifactFileName: *rd.ApkFileName,
		ReleaseNotes:     *rd.ReleaseNotes,
		ImmediateUpdate:  *rd.ImmediateUpdate,
	}, nil
}

// validateFileName rejects names that would resolve outside the update directory
func validateFileName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid apkFileName %q", name)
	case strings.ContainsAny(name, `/\`), filepath.Base(name) != name:
		return fmt.Errorf("invalid apkFileName %q: must be a plain file name", name)
	}
	return nil
}

// FetchError is returned for every failed config fetch: transport errors,
// non-2xx responses, malformed or incomplete descriptors
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch update config from %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
