package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shipwaylabs/shipway"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the shipway version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "shipway", shipway.Version)
		},
	}
}
