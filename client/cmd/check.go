package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/netbirdio/directupdate/client/internal/updatemanager"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "checks the update descriptor once and reports the update state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		sink := newConsoleSink(cmd.OutOrStdout())
		m, err := newManager(cfg, managerDeps{sink: sink})
		if err != nil {
			return err
		}

		m.Start(cmd.Context())
		defer m.Stop()

		if _, err := runCheck(cmd.Context(), m, sink); err != nil {
			return err
		}

		printConfig(cmd, m)
		return nil
	},
}

// runCheck checks for updates and waits for the result. A failed check is returned as error.
func runCheck(ctx context.Context, m *updatemanager.Manager, sink *consoleSink) (outcome, error) {
	if err := m.Check(); err != nil {
		return "", err
	}

	o, err := sink.wait(ctx)
	if err != nil {
		return "", err
	}
	if o == outcomeCheckFailed {
		return o, errors.New("update check failed")
	}
	return o, nil
}

func printConfig(cmd *cobra.Command, m *updatemanager.Manager) {
	cfg := m.Config()
	if cfg == nil {
		return
	}

	cmd.Printf("Application:       %s\n", cfg.AppName)
	cmd.Printf("Installed version: %d\n", cfg.CurrentVersionCode)
	cmd.Printf("Remote version:    %d (%s)\n", cfg.VersionCode, cfg.DisplayVersion())
	cmd.Printf("State:             %s\n", m.State())
	if cfg.UpdateAvailable() && cfg.ReleaseNotes != "" {
		cmd.Printf("Release notes:\n%s\n", cfg.ReleaseNotes)
	}
}
