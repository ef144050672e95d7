package updatemanager

// EventSink receives pipeline events. All methods are called from the manager's
// control loop, one at a time, so implementations need no locking.
type EventSink interface {
	OnImmediateUpdateAvailable()
	OnFlexibleUpdateAvailable()
	OnAlreadyUpToDate()
	OnApkAlreadyDownloaded()
	OnError(message string)

	OnDownloadStart()
	OnProgress(percent int)
	OnDownloadComplete()
	OnDownloadFailed(reason string)

	OnInstallStarted()
	OnInstallFailed(reason string)
}

// NopSink ignores every event. Embed it to implement only part of EventSink.
type NopSink struct{}

func (NopSink) OnImmediateUpdateAvailable() {}
func (NopSink) OnFlexibleUpdateAvailable()  {}
func (NopSink) OnAlreadyUpToDate()          {}
func (NopSink) OnApkAlreadyDownloaded()     {}
func (NopSink) OnError(string)              {}
func (NopSink) OnDownloadStart()            {}
func (NopSink) OnProgress(int)              {}
func (NopSink) OnDownloadComplete()         {}
func (NopSink) OnDownloadFailed(string)     {}
func (NopSink) OnInstallStarted()           {}
func (NopSink) OnInstallFailed(string)      {}
