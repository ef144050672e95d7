package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netbirdio/directupdate/client/internal/config"
	"github.com/netbirdio/directupdate/client/internal/updatemanager"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/trigger"
)

var sessionID string

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "installs the available update, downloading it first if needed",
	Long: "Installs the available update. With --session the request is handed to the running " +
		"watch process that owns the session instead.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if sessionID != "" {
			if err := trigger.Request(cfg.TriggerDir, sessionID); err != nil {
				return fmt.Errorf("request install: %w", err)
			}
			cmd.Printf("Install requested for session %s\n", sessionID)
			return nil
		}

		ctx := cmd.Context()
		sink := newConsoleSink(cmd.OutOrStdout())
		m, err := newManager(cfg, managerDeps{sink: sink})
		if err != nil {
			return err
		}

		m.Start(ctx)
		defer m.Stop()

		o, err := runCheck(ctx, m, sink)
		if err != nil {
			return err
		}
		if o == outcomeUpToDate {
			return nil
		}

		return runInstall(ctx, m, sink)
	},
}

func init() {
	installCmd.Flags().StringVar(&sessionID, "session", "", "session id printed by a running watch process")
	installCmd.Flags().String(config.KeyTriggerDir, "", "directory watched for install requests (default <state-dir>/triggers)")
}

// runInstall installs and, when the artifact had to be downloaded first, installs once more
func runInstall(ctx context.Context, m *updatemanager.Manager, sink *consoleSink) error {
	for attempt := 0; attempt < 2; attempt++ {
		if err := m.Install(); err != nil {
			return err
		}

		o, err := sink.wait(ctx)
		if err != nil {
			return err
		}

		switch o {
		case outcomeInstallStarted:
			return nil
		case outcomeDownloadDone:
			continue
		case outcomeInstallFailed:
			return fmt.Errorf("install failed: %s", sink.lastErr)
		case outcomeDownloadFailed:
			return fmt.Errorf("download failed: %s", sink.lastErr)
		default:
			return fmt.Errorf("unexpected install outcome %s", o)
		}
	}
	return fmt.Errorf("artifact downloaded but not installed")
}
