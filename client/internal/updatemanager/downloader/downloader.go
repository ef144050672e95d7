package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/directupdate/version"
)

const (
	// DefaultRetryDelay disables the second attempt; a failed download is reported to the caller as is
	DefaultRetryDelay = 0 * time.Second

	// UnknownLength is passed to a ProgressFunc when the server did not announce a Content-Length
	UnknownLength int64 = -1
)

// ProgressFunc receives the running byte count after every read that returned data
type ProgressFunc func(bytesRead, contentLength int64)

// ErrStalled is returned when no data arrived within the idle timeout
var ErrStalled = errors.New("download stalled")

type Downloader struct {
	client      *http.Client
	retryDelay  time.Duration
	idleTimeout time.Duration
}

func New(client *http.Client, retryDelay time.Duration) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{
		client:     client,
		retryDelay: retryDelay,
	}
}

// WithIdleTimeout aborts a transfer that received nothing for timeout, waiting for headers included.
// It bounds stalls only, a slow transfer that keeps delivering data is never cut off. Zero disables it.
func (d *Downloader) WithIdleTimeout(timeout time.Duration) *Downloader {
	d.idleTimeout = timeout
	return d
}

// DownloadToFile streams url into dstFile, creating parent directories as needed.
// The destination is only created once the server answered with a success status
// and it is left in place on failure.
func (d *Downloader) DownloadToFile(ctx context.Context, url, dstFile string, onProgress ProgressFunc) (int64, error) {
	log.Debugf("starting download from %s", url)

	// First attempt
	written, err := d.downloadToFileOnce(ctx, url, dstFile, onProgress)
	if err == nil {
		log.Infof("successfully downloaded %d bytes to %s", written, dstFile)
		return written, nil
	}

	// If retryDelay is 0, don't retry
	if d.retryDelay == 0 || ctx.Err() != nil {
		return written, err
	}

	log.Warnf("download failed, retrying after %v: %v", d.retryDelay, err)

	if sleepErr := sleepWithContext(ctx, d.retryDelay); sleepErr != nil {
		return written, fmt.Errorf("download cancelled during retry delay: %w", sleepErr)
	}

	// Second attempt
	written, err = d.downloadToFileOnce(ctx, url, dstFile, onProgress)
	if err != nil {
		return written, fmt.Errorf("download failed after retry: %w", err)
	}

	log.Infof("successfully downloaded %d bytes to %s", written, dstFile)
	return written, nil
}

// DownloadToMemory reads at most limit bytes of a successful response
func (d *Downloader) DownloadToMemory(ctx context.Context, url string, limit int64) ([]byte, error) {
	resp, err := d.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (d *Downloader) downloadToFileOnce(ctx context.Context, url, dstFile string, onProgress ProgressFunc) (int64, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if d.idleTimeout > 0 {
		timer := time.AfterFunc(d.idleTimeout, func() {
			cancel(ErrStalled)
		})
		defer timer.Stop()

		report := onProgress
		onProgress = func(bytesRead, contentLength int64) {
			timer.Reset(d.idleTimeout)
			if report != nil {
				report(bytesRead, contentLength)
			}
		}
	}

	written, err := d.copyToFile(ctx, url, dstFile, onProgress)
	if err != nil && errors.Is(context.Cause(ctx), ErrStalled) {
		return written, fmt.Errorf("%w: nothing received for %s: %v", ErrStalled, d.idleTimeout, err)
	}
	return written, err
}

func (d *Downloader) copyToFile(ctx context.Context, url, dstFile string, onProgress ProgressFunc) (int64, error) {
	resp, err := d.get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(dstFile), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create destination directory: %w", err)
	}

	out, err := os.Create(dstFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file %q: %w", dstFile, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			log.Warnf("error closing file %q: %v", dstFile, cerr)
		}
	}()

	contentLength := resp.ContentLength
	if contentLength <= 0 {
		contentLength = UnknownLength
	}

	body := newProgressReader(ctx, resp.Body, contentLength, onProgress)
	written, err := io.Copy(out, body)
	if err != nil {
		return written, fmt.Errorf("failed to write response body to file: %w", err)
	}

	return written, nil
}

func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform HTTP request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
		return nil, fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)
	}

	return resp, nil
}

func sleepWithContext(ctx context.Context, duration time.Duration) error {
	select {
	case <-time.After(duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
