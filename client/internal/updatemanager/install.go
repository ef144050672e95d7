package updatemanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/directupdate/client/internal/updatemanager/descriptor"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/installer"
)

var errNoFallbackDir = errors.New("no fallback location configured")

// install hands the artifact to the installer. A missing or corrupt artifact is downloaded
// instead. A rejected handoff never discards a plausible artifact.
func (m *Manager) install(ctx context.Context, cfg *descriptor.UpdateConfig) func() {
	name := cfg.ArtifactFileName

	unlock := m.store.Lock(name)
	info := m.store.Stat(name)

	if !info.Exists {
		unlock()
		log.Infof("artifact %s not found, downloading it first", name)
		return m.download(ctx, cfg)
	}

	if info.Size < m.profile.CorruptSize {
		log.Warnf("artifact %s looks corrupt (%d bytes), downloading it again", name, info.Size)
		m.store.Remove(name)
		unlock()
		return m.download(ctx, cfg)
	}

	path := m.store.Path(name)
	fallback := false
	err := m.installer.RequestInstall(ctx, path)
	if err != nil {
		log.Warnf("install request for %s failed, trying fallback location: %v", path, err)

		fallbackPath, ferr := m.installFallback(ctx, name)
		if ferr != nil {
			err = fmt.Errorf("fallback failed: %w (primary: %v)", ferr, err)
		} else {
			path = fallbackPath
			fallback = true
			err = nil
		}
	}

	if err != nil {
		ierr := &InstallError{Path: path, Err: err}
		m.writeResult(cfg, path, true, ierr)

		if info.Size < m.profile.LastResortSize {
			log.Warnf("%v, artifact is undersized (%d bytes), downloading it again", ierr, info.Size)
			m.store.Remove(name)
			unlock()
			return m.download(ctx, cfg)
		}
		unlock()

		log.Errorf("%v, keeping artifact for a later retry", ierr)
		return m.installFailed(err.Error())
	}
	unlock()

	log.Infof("install of %s version %s handed off from %s", cfg.AppName, cfg.DisplayVersion(), path)
	m.writeResult(cfg, path, fallback, nil)
	m.scheduleCleanup()

	return func() {
		m.setState(State{Kind: InstallStarted})
		m.sink.OnInstallStarted()
	}
}

func (m *Manager) installFailed(reason string) func() {
	return func() {
		m.setState(State{Kind: InstallFailed, Reason: reason})
		m.sink.OnInstallFailed(reason)
	}
}

// installFallback copies the artifact to the fallback directory and requests the install from there
func (m *Manager) installFallback(ctx context.Context, name string) (string, error) {
	if m.fallbackDir == "" {
		return "", errNoFallbackDir
	}

	path, err := m.store.CopyTo(name, m.fallbackDir)
	if err != nil {
		return "", fmt.Errorf("copy to fallback location: %w", err)
	}

	if err := m.installer.RequestInstall(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

func (m *Manager) writeResult(cfg *descriptor.UpdateConfig, path string, fallback bool, err error) {
	if m.results == nil {
		return
	}

	result := installer.Result{
		Success:     err == nil,
		AppName:     cfg.AppName,
		VersionCode: cfg.VersionCode,
		Path:        path,
		Fallback:    fallback,
		ExecutedAt:  time.Now(),
	}
	if err != nil {
		result.Error = err.Error()
	}

	if werr := m.results.Write(result); werr != nil {
		log.Warnf("failed to write install result: %v", werr)
	}
}

// scheduleCleanup empties the download directory after the profile's delay, unless the profile retains it
func (m *Manager) scheduleCleanup() {
	if m.profile.RetainCache {
		log.Debugf("profile %s retains the download cache", m.profile.Name)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx.Err() != nil {
		return
	}
	if m.cleanupTimer != nil {
		m.cleanupTimer.Stop()
	}
	m.cleanupTimer = time.AfterFunc(m.profile.CleanupDelay, m.cleanCache)
}

func (m *Manager) cleanCache() {
	if err := m.store.Clean(); err != nil {
		log.Warnf("failed to clean download cache %s: %v", m.store.Dir(), err)
		return
	}
	log.Infof("cleaned download cache %s", m.store.Dir())
}
