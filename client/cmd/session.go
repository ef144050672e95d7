package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/netbirdio/directupdate/client/internal/config"
	"github.com/netbirdio/directupdate/client/internal/updatemanager"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/artifact"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/descriptor"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/installer"
)

var errNoInstallCommand = errors.New("no install command configured, set --install-command")

// unconfiguredInstaller rejects every request so that check and download work without an install command
type unconfiguredInstaller struct{}

func (unconfiguredInstaller) RequestInstall(context.Context, string) error {
	return errNoInstallCommand
}

// managerDeps lets the watch command decorate the sink and the transport
type managerDeps struct {
	sink      updatemanager.EventSink
	transport http.RoundTripper
}

func installedApp(cfg *config.Config) descriptor.InstalledApp {
	if cfg.Manifest != "" {
		return descriptor.ManifestApp{Path: cfg.Manifest}
	}
	return descriptor.StaticApp(cfg.CurrentVersionCode)
}

// newHTTPClient builds the descriptor client, the timeout bounds the whole request
func newHTTPClient(cfg *config.Config, transport http.RoundTripper) *http.Client {
	return &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: transport,
	}
}

// newDownloadClient builds the artifact client. It has no total timeout so that large artifacts
// on slow links complete; stalls are bounded by the downloader's idle timeout.
func newDownloadClient(transport http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: transport,
	}
}

func newManager(cfg *config.Config, deps managerDeps) (*updatemanager.Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	profile, err := updatemanager.ProfileByName(cfg.Profile)
	if err != nil {
		return nil, err
	}

	store, err := artifact.NewStore(cfg.DownloadDir)
	if err != nil {
		return nil, err
	}

	var inst installer.LocalInstaller = unconfiguredInstaller{}
	if cfg.InstallCommand != "" {
		command, err := installer.NewCommand(cfg.InstallCommand)
		if err != nil {
			return nil, fmt.Errorf("parse install command: %w", err)
		}
		inst = command
	}

	return updatemanager.New(updatemanager.Options{
		ConfigURL:      cfg.ConfigURL,
		App:            installedApp(cfg),
		Store:          store,
		Installer:      inst,
		Sink:           deps.sink,
		Profile:        profile,
		FallbackDir:    cfg.FallbackDir,
		Results:        installer.NewResultHandler(cfg.StateDir),
		HTTPClient:     newHTTPClient(cfg, deps.transport),
		DownloadClient: newDownloadClient(deps.transport),
		IdleTimeout:    cfg.HTTPTimeout,
		RetryDelay:     cfg.RetryDelay,
	})
}
