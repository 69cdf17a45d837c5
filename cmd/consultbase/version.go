package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otiai10/consultbase/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build commit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "consultbase %s\n", version.CommitHash)
		},
	}
}
