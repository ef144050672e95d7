// Package poller checks the update descriptor periodically and hands changed configs to the manager.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/directupdate/client/internal/updatemanager/descriptor"
)

const (
	DefaultInterval = 30 * time.Minute
	fetchRetries    = 3
)

// Target receives the outcome of every poll, the update manager in production
type Target interface {
	// Evaluate accepts a freshly fetched config
	Evaluate(cfg *descriptor.UpdateConfig) error
	// ReportError receives a fetch that failed after all retries
	ReportError(err error)
}

type Poller struct {
	url      string
	app      descriptor.InstalledApp
	fetcher  *descriptor.Fetcher
	target   Target
	interval time.Duration

	// newBackOff builds the retry policy of one poll
	newBackOff func() backoff.BackOff

	mu   sync.Mutex
	last *descriptor.UpdateConfig
}

func New(url string, app descriptor.InstalledApp, fetcher *descriptor.Fetcher, target Target, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		url:        url,
		app:        app,
		fetcher:    fetcher,
		target:     target,
		interval:   interval,
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ExponentialBackOff{
		InitialInterval:     time.Second,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         30 * time.Second,
		MaxElapsedTime:      5 * time.Minute,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}, fetchRetries)
}

// Run polls once right away and then on every interval until ctx is done
func (p *Poller) Run(ctx context.Context) {
	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll fetches the descriptor and forwards it when it differs from the last accepted one.
// It reports whether the config was forwarded.
func (p *Poller) Poll(ctx context.Context) bool {
	var cfg *descriptor.UpdateConfig
	operation := func() error {
		// if context cancelled we do not start a new attempt
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		fetched, err := p.fetcher.Fetch(ctx, p.url, p.app)
		if err != nil {
			return err
		}
		cfg = fetched
		return nil
	}

	notify := func(err error, next time.Duration) {
		log.Warnf("failed to fetch update config, retrying in %s: %v", next, err)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(p.newBackOff(), ctx), notify); err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Errorf("failed to fetch update config from %s: %v", p.url, err)
		p.target.ReportError(err)
		return false
	}

	if !p.changed(cfg) {
		log.Debugf("update config unchanged, version %d", cfg.VersionCode)
		return false
	}

	if err := p.target.Evaluate(cfg); err != nil {
		log.Warnf("update config not evaluated, will retry on next poll: %v", err)
		return false
	}

	p.mu.Lock()
	p.last = cfg
	p.mu.Unlock()
	return true
}

func (p *Poller) changed(cfg *descriptor.UpdateConfig) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last == nil {
		return true
	}
	return *p.last != *cfg
}
