package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/netbirdio/directupdate/client/internal/config"
	"github.com/netbirdio/directupdate/util"
)

var (
	configFile string
	rootCmd    = &cobra.Command{
		Use:          "directupdate",
		Short:        "Checks, downloads and installs application updates from a self-hosted descriptor",
		Long:         "",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "YAML config file location")
	flags.StringP(config.KeyLogLevel, "l", "info", "sets log level")
	flags.String(config.KeyLogFile, "console", "sets log path. If console is specified the log will be output to stdout")
	flags.StringP(config.KeyConfigURL, "u", "", "URL of the update descriptor [http|https]://[host]:[port]/[path]")
	flags.String(config.KeyStateDir, "", "directory for downloads, results and install requests (default user cache dir)")
	flags.String(config.KeyDownloadDir, "", "artifact directory (default <state-dir>/app_updates)")
	flags.String(config.KeyFallbackDir, "", "directory the artifact is copied to when the first install request fails")
	flags.String(config.KeyProfile, "lenient", "artifact validation profile [lenient|strict]")
	flags.Int(config.KeyCurrentVersionCode, 0, "version code of the installed application, used without --manifest")
	flags.String(config.KeyManifest, "", "JSON file holding the installed versionCode")
	flags.String(config.KeyInstallCommand, "", "command that installs an artifact, {path} is replaced with its location")
	flags.Duration(config.KeyRetryDelay, 0, "delay before a failed download is retried once, 0 disables the retry")
	flags.Duration(config.KeyHTTPTimeout, config.DefaultHTTPTimeout, "timeout of a descriptor request, and the time a download may go without receiving data")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the settings of cmd and initializes logging with them
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	if err := util.InitLog(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, fmt.Errorf("failed initializing log %v", err)
	}
	return cfg, nil
}

// SetupCloseHandler handles SIGTERM signal and exits with success
func SetupCloseHandler(ctx context.Context, cancel context.CancelFunc) {
	termCh := make(chan os.Signal, 1)
	signal.Notify(termCh, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		done := ctx.Done()
		select {
		case <-done:
		case <-termCh:
		}

		log.Info("shutdown signal received")
		cancel()
	}()
}
