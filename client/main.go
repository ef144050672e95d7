package main

import (
	"os"

	"github.com/netbirdio/directupdate/client/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
