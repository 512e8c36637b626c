package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/simgym"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of simgym",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("simgym version %s\n", strings.TrimSpace(simgym.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
