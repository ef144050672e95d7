package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/netbirdio/directupdate/client/internal/updatemanager/installer"
)

var clearResult bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "shows the outcome of the last install attempt",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		results := installer.NewResultHandler(cfg.StateDir)
		result, err := results.Read()
		if errors.Is(err, os.ErrNotExist) {
			cmd.Println("No install attempt recorded")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read install result: %w", err)
		}

		cmd.Print(formatResult(result))

		if clearResult {
			if err := results.Cleanup(); err != nil {
				return fmt.Errorf("clear install result: %w", err)
			}
			cmd.Println("Install result cleared")
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&clearResult, "clear", false, "remove the recorded result after showing it")
}

func formatResult(r installer.Result) string {
	outcome := "install started"
	if !r.Success {
		outcome = "install failed"
	}

	s := fmt.Sprintf("Last attempt: %s\n", outcome)
	s += fmt.Sprintf("Application:  %s (version %d)\n", r.AppName, r.VersionCode)
	s += fmt.Sprintf("Artifact:     %s\n", r.Path)
	if r.Fallback {
		s += "Location:     fallback\n"
	}
	s += fmt.Sprintf("Executed at:  %s\n", r.ExecutedAt.Format(time.RFC3339))
	if r.Error != "" {
		s += fmt.Sprintf("Error:        %s\n", r.Error)
	}
	return s
}
