package updatemanager

import (
	"errors"
	"fmt"
)

var (
	ErrNotStarted  = errors.New("update manager not started")
	ErrBusy        = errors.New("another update operation is in progress")
	ErrNotChecked  = errors.New("no update config available, check for updates first")
	ErrNoConfigURL = errors.New("no update config URL configured")
)

// DownloadError wraps a failed artifact download. The partial file is kept.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// InstallError wraps a rejected install handoff after the fallback was tried as well
type InstallError struct {
	Path string
	Err  error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install %s: %v", e.Path, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}
