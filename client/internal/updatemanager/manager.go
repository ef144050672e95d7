package updatemanager

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/directupdate/client/internal/updatemanager/artifact"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/descriptor"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/downloader"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/installer"
	semaphoregroup "github.com/netbirdio/directupdate/util/semaphore-group"
)

const eventBufferSize = 64

type Options struct {
	// ConfigURL is the descriptor location used by Check
	ConfigURL string
	// App reports the installed version code, required by Check
	App       descriptor.InstalledApp
	Store     *artifact.Store
	Installer installer.LocalInstaller
	Sink      EventSink
	// Profile defaults to LenientProfile
	Profile Profile
	// FallbackDir receives a copy of the artifact when the first install request fails.
	// Empty disables the fallback, which then counts as failed.
	FallbackDir string
	// Results records the outcome of every install attempt, optional
	Results *installer.ResultHandler
	// HTTPClient fetches the descriptor, its Timeout bounds the whole request
	HTTPClient *http.Client
	// DownloadClient fetches the artifact and defaults to HTTPClient. It should carry no
	// total timeout; IdleTimeout bounds stalled transfers instead.
	DownloadClient *http.Client
	IdleTimeout    time.Duration
	RetryDelay     time.Duration
	// Tasks bounds background I/O. Managers may share one; by default each gets a single slot.
	Tasks *semaphoregroup.SemaphoreGroup
}

// Manager drives the check, download and install pipeline for one application.
//
// Every EventSink call and every state change runs on a single control loop started by Start.
// Check, StartUpdate and Install run in the background; only one of them at a time.
// Every accepted operation ends with exactly one terminal sink call.
// A stopped Manager can be started again.
type Manager struct {
	configURL   string
	app         descriptor.InstalledApp
	store       *artifact.Store
	installer   installer.LocalInstaller
	sink        EventSink
	profile     Profile
	fallbackDir string
	results     *installer.ResultHandler
	fetcher     *descriptor.Fetcher
	downloader  *downloader.Downloader
	tasks       *semaphoregroup.SemaphoreGroup

	events chan func()
	busy   atomic.Bool

	mu           sync.Mutex
	state        State
	config       *descriptor.UpdateConfig
	cancelTask   context.CancelFunc
	cleanupTimer *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("artifact store is required")
	}
	if opts.Installer == nil {
		return nil, errors.New("installer is required")
	}

	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}
	if opts.Profile.Name == "" {
		opts.Profile = LenientProfile
	}
	if opts.Tasks == nil {
		opts.Tasks = semaphoregroup.NewSemaphoreGroup(1)
	}
	if opts.DownloadClient == nil {
		opts.DownloadClient = opts.HTTPClient
	}

	return &Manager{
		configURL:   opts.ConfigURL,
		app:         opts.App,
		store:       opts.Store,
		installer:   opts.Installer,
		sink:        opts.Sink,
		profile:     opts.Profile,
		fallbackDir: opts.FallbackDir,
		results:     opts.Results,
		fetcher:     descriptor.NewFetcher(opts.HTTPClient),
		downloader:  downloader.New(opts.DownloadClient, opts.RetryDelay).WithIdleTimeout(opts.IdleTimeout),
		tasks:       opts.Tasks,
		events:      make(chan func(), eventBufferSize),
	}, nil
}

// Start runs the control loop until ctx is done or Stop is called
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		log.Errorf("update manager already started")
		return
	}

	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.controlLoop(m.ctx)
}

// Stop cancels running operations and the pending cache cleanup and waits for the control loop.
// Events not delivered yet are dropped.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.cancel == nil {
		m.mu.Unlock()
		return
	}
	m.cancel()
	if m.cleanupTimer != nil {
		m.cleanupTimer.Stop()
		m.cleanupTimer = nil
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.drainEvents()

	m.mu.Lock()
	m.cancel = nil
	m.mu.Unlock()
}

// State returns the current pipeline state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Config returns the config of the last successful check, nil before that
func (m *Manager) Config() *descriptor.UpdateConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Profile returns the validation profile in use
func (m *Manager) Profile() Profile {
	return m.profile
}

// Check fetches the descriptor from the configured URL and evaluates it.
// Fetch failures are reported through OnError.
func (m *Manager) Check() error {
	if m.configURL == "" || m.app == nil {
		return ErrNoConfigURL
	}

	return m.runTask("check", func(ctx context.Context) func() {
		cfg, err := m.fetcher.Fetch(ctx, m.configURL, m.app)
		if err != nil {
			log.Warnf("update check failed: %v", err)
			return m.checkFailed(err.Error())
		}
		return m.evaluate(cfg)
	}, m.checkFailed)
}

// ReportError delivers a check failure that happened outside the manager, such as in a poller, to OnError
func (m *Manager) ReportError(err error) {
	if _, ok := m.running(); !ok {
		log.Debugf("update manager not running, dropping check failure: %v", err)
		return
	}
	m.post(m.checkFailed(err.Error()))
}

// Evaluate decides the state for an already fetched config
func (m *Manager) Evaluate(cfg *descriptor.UpdateConfig) error {
	if cfg == nil {
		return ErrNotChecked
	}

	return m.runTask("evaluate", func(ctx context.Context) func() {
		return m.evaluate(cfg)
	}, m.checkFailed)
}

// StartUpdate downloads the artifact of the last checked config unless a usable one is present
func (m *Manager) StartUpdate() error {
	cfg := m.Config()
	if cfg == nil {
		return ErrNotChecked
	}

	return m.runTask("download", func(ctx context.Context) func() {
		return m.download(ctx, cfg)
	}, m.downloadFailed)
}

// Install hands the artifact to the installer, downloading it first when it is missing or corrupt
func (m *Manager) Install() error {
	cfg := m.Config()
	if cfg == nil {
		return ErrNotChecked
	}

	return m.runTask("install", func(ctx context.Context) func() {
		return m.install(ctx, cfg)
	}, m.installFailed)
}

// Cancel aborts the running operation. A download in flight ends with OnDownloadFailed.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelTask != nil {
		m.cancelTask()
	}
}

func (m *Manager) evaluate(cfg *descriptor.UpdateConfig) func() {
	name := cfg.ArtifactFileName

	var info artifact.Info
	if cfg.UpdateAvailable() {
		unlock := m.store.Lock(name)
		info = m.store.Stat(name)
		decision := Evaluate(cfg, info, m.profile)
		if decision.Prune {
			log.Infof("removing unusable artifact %s (%d bytes)", name, info.Size)
			m.store.Remove(name)
		}
		unlock()
		return m.finishCheck(cfg, decision.State)
	}

	log.Debugf("installed version %d is up to date with %d", cfg.CurrentVersionCode, cfg.VersionCode)
	return m.finishCheck(cfg, Evaluate(cfg, info, m.profile).State)
}

func (m *Manager) finishCheck(cfg *descriptor.UpdateConfig, state State) func() {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	log.Infof("update check for %s: %s", cfg.AppName, state)

	return func() {
		m.setState(state)
		switch state.Kind {
		case UpToDate:
			m.sink.OnAlreadyUpToDate()
		case ReadyToInstall:
			m.sink.OnApkAlreadyDownloaded()
		case ImmediateAvailable:
			m.sink.OnImmediateUpdateAvailable()
		case FlexibleAvailable:
			m.sink.OnFlexibleUpdateAvailable()
		}
	}
}

func (m *Manager) checkFailed(reason string) func() {
	return func() {
		m.sink.OnError(reason)
	}
}

// runTask starts fn in the background unless another operation is active. The func returned
// by fn is delivered on the control loop after the operation has released its slot.
// When the operation is cancelled before it gets a slot, the func built by abort is delivered instead.
func (m *Manager) runTask(name string, fn func(ctx context.Context) func(), abort func(reason string) func()) error {
	m.mu.Lock()
	if m.cancel == nil || m.ctx.Err() != nil {
		m.mu.Unlock()
		return ErrNotStarted
	}
	if !m.busy.CompareAndSwap(false, true) {
		m.mu.Unlock()
		return ErrBusy
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelTask = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()

		var terminal func()
		err := m.tasks.Run(ctx, func() {
			log.Debugf("running %s", name)
			terminal = fn(ctx)
		})
		if err != nil {
			log.Infof("%s cancelled before it started: %v", name, err)
			terminal = abort(err.Error())
		}

		cancel()
		m.mu.Lock()
		m.cancelTask = nil
		m.mu.Unlock()
		m.busy.Store(false)

		m.post(terminal)
	}()

	return nil
}

// running returns the context of the current run
func (m *Manager) running() (context.Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil || m.ctx.Err() != nil {
		return nil, false
	}
	return m.ctx, true
}

func (m *Manager) controlLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-m.events:
			fn()
		}
	}
}

// post queues fn for the control loop. Events are dropped once the manager stops.
func (m *Manager) post(fn func()) {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()

	select {
	case m.events <- fn:
	case <-ctx.Done():
	}
}

func (m *Manager) drainEvents() {
	for {
		select {
		case <-m.events:
		default:
			return
		}
	}
}

// transition posts a state change together with its notification
func (m *Manager) transition(state State, notify func(EventSink)) {
	m.post(func() {
		m.setState(state)
		notify(m.sink)
	})
}

func (m *Manager) setState(state State) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}
