package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gmv version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gmv %s\n", version)
		},
	}
}
