// Package metrics exposes update pipeline activity as prometheus metrics.
package metrics

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/netbirdio/directupdate/client/internal/updatemanager"
)

type Metrics struct {
	checksTotal     *prometheus.CounterVec
	downloadsTotal  *prometheus.CounterVec
	installsTotal   *prometheus.CounterVec
	progress        prometheus.Gauge
	downloadedBytes prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	promFactory := promauto.With(reg)
	return &Metrics{
		checksTotal: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "directupdate_checks_total",
			Help: "Total number of update checks labelled by outcome",
		}, []string{"result"}),
		downloadsTotal: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "directupdate_downloads_total",
			Help: "Total number of finished artifact downloads labelled by outcome",
		}, []string{"result"}),
		installsTotal: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "directupdate_installs_total",
			Help: "Total number of install handoffs labelled by outcome",
		}, []string{"result"}),
		progress: promFactory.NewGauge(prometheus.GaugeOpts{
			Name: "directupdate_download_progress_percent",
			Help: "Progress of the current artifact download",
		}),
		downloadedBytes: promFactory.NewCounter(prometheus.CounterOpts{
			Name: "directupdate_received_bytes_total",
			Help: "Total number of response body bytes received from the update server",
		}),
		requestDuration: promFactory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "directupdate_request_duration_seconds",
			Help:    "Duration of requests to the update server until the response headers arrived",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"status", "method", "host"}),
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// RoundTripper records request durations and counts received body bytes
func (m *Metrics) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		labels := prometheus.Labels{
			"method": req.Method,
			"host":   req.Host,
			// Fill potentially empty labels with default values to avoid cardinality issues.
			"status": "0",
		}
		if labels["host"] == "" && req.URL != nil {
			labels["host"] = req.URL.Host
		}

		start := time.Now()
		res, err := next.RoundTrip(req)
		duration := time.Since(start)

		if res != nil {
			labels["status"] = strconv.Itoa(res.StatusCode)
			if res.Body != nil && res.Body != http.NoBody {
				res.Body = &countingBody{ReadCloser: res.Body, counter: m.downloadedBytes}
			}
		}

		m.requestDuration.With(labels).Observe(duration.Seconds())

		return res, err
	})
}

type countingBody struct {
	io.ReadCloser
	counter prometheus.Counter
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.counter.Add(float64(n))
	}
	return n, err
}

// Sink counts pipeline events before passing them on to next
func (m *Metrics) Sink(next updatemanager.EventSink) updatemanager.EventSink {
	if next == nil {
		next = updatemanager.NopSink{}
	}
	return &sink{next: next, m: m}
}

type sink struct {
	next updatemanager.EventSink
	m    *Metrics
}

func (s *sink) check(result string) {
	s.m.checksTotal.With(prometheus.Labels{"result": result}).Inc()
}

func (s *sink) OnImmediateUpdateAvailable() {
	s.check("immediate")
	s.next.OnImmediateUpdateAvailable()
}

func (s *sink) OnFlexibleUpdateAvailable() {
	s.check("flexible")
	s.next.OnFlexibleUpdateAvailable()
}

func (s *sink) OnAlreadyUpToDate() {
	s.check("up_to_date")
	s.next.OnAlreadyUpToDate()
}

func (s *sink) OnApkAlreadyDownloaded() {
	s.check("already_downloaded")
	s.next.OnApkAlreadyDownloaded()
}

func (s *sink) OnError(message string) {
	s.check("error")
	s.next.OnError(message)
}

func (s *sink) OnDownloadStart() {
	s.m.progress.Set(0)
	s.next.OnDownloadStart()
}

func (s *sink) OnProgress(percent int) {
	s.m.progress.Set(float64(percent))
	s.next.OnProgress(percent)
}

func (s *sink) OnDownloadComplete() {
	s.m.downloadsTotal.With(prometheus.Labels{"result": "complete"}).Inc()
	s.next.OnDownloadComplete()
}

func (s *sink) OnDownloadFailed(reason string) {
	s.m.downloadsTotal.With(prometheus.Labels{"result": "failed"}).Inc()
	s.next.OnDownloadFailed(reason)
}

func (s *sink) OnInstallStarted() {
	s.m.installsTotal.With(prometheus.Labels{"result": "started"}).Inc()
	s.next.OnInstallStarted()
}

func (s *sink) OnInstallFailed(reason string) {
	s.m.installsTotal.With(prometheus.Labels{"result": "failed"}).Inc()
	s.next.OnInstallFailed(reason)
}
