package cmd

import (
	"github.com/spf13/cobra"

	"github.com/netbirdio/directupdate/version"
)

var (
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "prints directupdate version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.Version())
		},
	}
)
