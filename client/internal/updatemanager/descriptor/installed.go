package descriptor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// InstalledApp provides the version code of the locally installed application
type InstalledApp interface {
	VersionCode(ctx context.Context) (int, error)
}

// StaticApp is an installed version known up front, e.g. passed on the command line
type StaticApp int

func (s StaticApp) VersionCode(context.Context) (int, error) {
	return int(s), nil
}

// ManifestApp reads the installed version code from a JSON manifest such as {"versionCode": 12}
type ManifestApp struct {
	Path string
}

type manifest struct {
	VersionCode *int `json:"versionCode"`
}

func (m ManifestApp) VersionCode(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data, err := os.ReadFile(m.Path)
	if err != nil {
		return 0, fmt.Errorf("read manifest: %w", err)
	}

	var mf manifest
	if err := json.Unmarshal(data, &mf); err != nil {
		return 0, fmt.Errorf("decode manifest %s: %w", m.Path, err)
	}
	if mf.VersionCode == nil {
		return 0, errors.New("manifest has no versionCode")
	}
	return *mf.VersionCode, nil
}
