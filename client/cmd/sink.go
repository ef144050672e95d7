package cmd

import (
	"context"
	"fmt"
	"io"
)

type outcome string

const (
	outcomeImmediate      outcome = "immediate"
	outcomeFlexible       outcome = "flexible"
	outcomeUpToDate       outcome = "up-to-date"
	outcomeDownloaded     outcome = "already-downloaded"
	outcomeCheckFailed    outcome = "check-failed"
	outcomeDownloadDone   outcome = "download-complete"
	outcomeDownloadFailed outcome = "download-failed"
	outcomeInstallStarted outcome = "install-started"
	outcomeInstallFailed  outcome = "install-failed"
)

// consoleSink prints pipeline events and reports the ones that end an operation on outcomes
type consoleSink struct {
	out      io.Writer
	outcomes chan outcome
	lastErr  string
}

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{
		out:      out,
		outcomes: make(chan outcome, 16),
	}
}

func (s *consoleSink) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *consoleSink) report(o outcome) {
	select {
	case s.outcomes <- o:
	default:
	}
}

// wait returns the next outcome
func (s *consoleSink) wait(ctx context.Context) (outcome, error) {
	select {
	case o := <-s.outcomes:
		return o, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *consoleSink) OnImmediateUpdateAvailable() {
	s.printf("Mandatory update available")
	s.report(outcomeImmediate)
}

func (s *consoleSink) OnFlexibleUpdateAvailable() {
	s.printf("Optional update available")
	s.report(outcomeFlexible)
}

func (s *consoleSink) OnAlreadyUpToDate() {
	s.printf("Already up to date")
	s.report(outcomeUpToDate)
}

func (s *consoleSink) OnApkAlreadyDownloaded() {
	s.printf("Update already downloaded, ready to install")
	s.report(outcomeDownloaded)
}

func (s *consoleSink) OnError(message string) {
	s.printf("Update check failed: %s", message)
	s.lastErr = message
	s.report(outcomeCheckFailed)
}

func (s *consoleSink) OnDownloadStart() {
	s.printf("Downloading update")
}

func (s *consoleSink) OnProgress(percent int) {
	s.printf("Download progress: %d%%", percent)
}

func (s *consoleSink) OnDownloadComplete() {
	s.printf("Download complete")
	s.report(outcomeDownloadDone)
}

func (s *consoleSink) OnDownloadFailed(reason string) {
	s.printf("Download failed: %s", reason)
	s.lastErr = reason
	s.report(outcomeDownloadFailed)
}

func (s *consoleSink) OnInstallStarted() {
	s.printf("Installation started")
	s.report(outcomeInstallStarted)
}

func (s *consoleSink) OnInstallFailed(reason string) {
	s.printf("Installation failed: %s", reason)
	s.lastErr = reason
	s.report(outcomeInstallFailed)
}
