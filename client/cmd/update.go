package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "checks for an update and downloads it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
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

		if err := m.StartUpdate(); err != nil {
			return err
		}
		o, err = sink.wait(ctx)
		if err != nil {
			return err
		}
		if o == outcomeDownloadFailed {
			return fmt.Errorf("download failed: %s", sink.lastErr)
		}
		if o != outcomeDownloadDone {
			return errors.New("unexpected download outcome " + string(o))
		}

		cmd.Printf("Artifact stored in %s\n", cfg.DownloadDir)
		return nil
	},
}
