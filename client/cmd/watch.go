package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/netbirdio/directupdate/client/internal/config"
	"github.com/netbirdio/directupdate/client/internal/updatemanager"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/descriptor"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/metrics"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/poller"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/trigger"
	"github.com/netbirdio/directupdate/util"
)

const metricsShutdownTimeout = 5 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "polls for updates and installs them when requested",
	Long: "Polls the update descriptor periodically. Mandatory updates are downloaded right away. " +
		"Installs are requested with \"install --session <id>\" using the id printed on start.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		SetupCloseHandler(ctx, cancel)

		return runWatch(ctx, cmd, cfg)
	},
}

func init() {
	watchCmd.Flags().Duration(config.KeyPollInterval, config.DefaultPollInterval, "interval between update checks")
	watchCmd.Flags().String(config.KeyTriggerDir, "", "directory watched for install requests (default <state-dir>/triggers)")
	watchCmd.Flags().String(config.KeyMetricsAddr, "", "address to serve prometheus metrics on, e.g. :9090")
}

func runWatch(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mtr := metrics.New(reg)

	console := newConsoleSink(cmd.OutOrStdout())
	transport := mtr.RoundTripper(http.DefaultTransport)

	m, err := newManager(cfg, managerDeps{
		sink:      mtr.Sink(console),
		transport: transport,
	})
	if err != nil {
		return err
	}

	registry := trigger.NewRegistry()
	session := registry.Register(m)
	defer registry.Unregister(session)

	ctx = util.WithSession(ctx, session, cfg.ConfigURL)
	log.WithContext(ctx).Infof("watching %s every %s", cfg.ConfigURL, cfg.PollInterval)
	cmd.Printf("Install session: %s\n", session)

	m.Start(ctx)
	defer m.Stop()

	fetcher := descriptor.NewFetcher(newHTTPClient(cfg, transport))
	p := poller.New(cfg.ConfigURL, installedApp(cfg), fetcher, m, cfg.PollInterval)
	watcher := trigger.NewWatcher(cfg.TriggerDir, registry)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		followOutcomes(gctx, m, console)
		return nil
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddr, reg)
		})
	}

	return g.Wait()
}

// followOutcomes downloads mandatory updates as soon as they are offered
func followOutcomes(ctx context.Context, m *updatemanager.Manager, sink *consoleSink) {
	for {
		o, err := sink.wait(ctx)
		if err != nil {
			return
		}

		if o != outcomeImmediate {
			continue
		}
		if err := m.StartUpdate(); err != nil {
			log.WithContext(ctx).Warnf("failed to start mandatory update download: %v", err)
		}
	}
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("failed to shut down metrics server: %v", err)
		}
	}()

	log.Infof("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
