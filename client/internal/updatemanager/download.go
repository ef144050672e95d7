package updatemanager

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/directupdate/client/internal/updatemanager/descriptor"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/downloader"
)

const reasonVerificationFailed = "verification failed"

// download fetches the artifact of cfg unless a usable copy is already in the store.
// Progress is posted while streaming; the returned func carries the terminal event.
func (m *Manager) download(ctx context.Context, cfg *descriptor.UpdateConfig) func() {
	name := cfg.ArtifactFileName

	unlock := m.store.Lock(name)
	defer unlock()

	info := m.store.Stat(name)
	if m.profile.Usable(info) {
		log.Infof("artifact %s already downloaded (%d bytes), skipping download", name, info.Size)
		return func() {
			m.setState(State{Kind: ReadyToInstall})
			m.sink.OnDownloadComplete()
		}
	}
	if info.Exists {
		log.Infof("removing unusable artifact %s (%d bytes) before download", name, info.Size)
		m.store.Remove(name)
	}

	m.transition(State{Kind: Downloading}, func(s EventSink) {
		s.OnDownloadStart()
	})

	knownLength := false
	last := -1
	onProgress := func(read, total int64) {
		percent := downloader.Percent(read, total)
		knownLength = total > 0
		// a retried attempt starts from zero again
		if percent < last {
			return
		}
		last = percent
		m.transition(State{Kind: Downloading, Progress: percent}, func(s EventSink) {
			s.OnProgress(percent)
		})
	}

	written, err := m.downloader.DownloadToFile(ctx, cfg.DownloadURL, m.store.Path(name), onProgress)
	if err != nil {
		derr := &DownloadError{URL: cfg.DownloadURL, Err: err}
		log.Errorf("%v (%d bytes kept)", derr, written)
		return m.downloadFailed(err.Error())
	}

	info = m.store.Stat(name)
	if info.Empty() || !info.Exists {
		log.Errorf("downloaded artifact %s is empty", name)
		return m.downloadFailed(reasonVerificationFailed)
	}

	if !knownLength && last < 100 {
		m.transition(State{Kind: Downloading, Progress: 100}, func(s EventSink) {
			s.OnProgress(100)
		})
	}

	log.Infof("downloaded %s version %s (%d bytes)", cfg.AppName, cfg.DisplayVersion(), info.Size)
	return func() {
		m.setState(State{Kind: DownloadComplete})
		m.sink.OnDownloadComplete()
	}
}

func (m *Manager) downloadFailed(reason string) func() {
	return func() {
		m.setState(State{Kind: DownloadFailed, Reason: reason})
		m.sink.OnDownloadFailed(reason)
	}
}
