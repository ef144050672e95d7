package updatemanager

import (
	"fmt"
	"strings"
	"time"

	"github.com/netbirdio/directupdate/client/internal/updatemanager/artifact"
)

const (
	defaultMinValidSize   = 1024 * 1024
	defaultCorruptSize    = 50 * 1024
	defaultLastResortSize = 100 * 1024
	defaultCleanupDelay   = 30 * time.Second
)

// Profile selects how strictly a local artifact is validated and whether the
// download cache survives a successful install handoff
type Profile struct {
	Name string
	// RequireIntegrity demands size above MinValidSize and a readable file on top of non-empty
	RequireIntegrity bool
	MinValidSize     int64
	// CorruptSize is the size below which install discards the artifact and downloads again
	CorruptSize int64
	// LastResortSize is the size below which a doubly failed install discards the artifact
	LastResortSize int64
	RetainCache    bool
	CleanupDelay   time.Duration
}

// LenientProfile accepts any non-empty artifact and cleans the cache after install
var LenientProfile = Profile{
	Name:           "lenient",
	MinValidSize:   defaultMinValidSize,
	CorruptSize:    defaultCorruptSize,
	LastResortSize: defaultLastResortSize,
	CleanupDelay:   defaultCleanupDelay,
}

// StrictProfile validates size and readability and keeps the cache for later sessions.
// Meant for large-screen devices with persistent storage.
var StrictProfile = Profile{
	Name:             "strict",
	RequireIntegrity: true,
	MinValidSize:     defaultMinValidSize,
	CorruptSize:      defaultCorruptSize,
	LastResortSize:   defaultLastResortSize,
	RetainCache:      true,
	CleanupDelay:     defaultCleanupDelay,
}

// ProfileByName resolves "lenient" or "strict"
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LenientProfile.Name:
		return LenientProfile, nil
	case StrictProfile.Name:
		return StrictProfile, nil
	default:
		return Profile{}, fmt.Errorf("unknown validation profile %q", name)
	}
}

// Usable reports whether info describes an artifact that can be installed without downloading again.
// This is a size and readability heuristic, not a signature check.
func (p Profile) Usable(info artifact.Info) bool {
	if !info.Exists || info.Size == 0 {
		return false
	}
	if !p.RequireIntegrity {
		return true
	}
	return info.Size > p.MinValidSize && info.Readable
}
