package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd creates the root command. Bare invocation runs serve.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "consultbase",
		Short:         "consultbase plan and entitlement service",
		Long:          "consultbase serves plan state, entitlement checks and upgrade prompts for the client portal dashboard.",
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to YAML config file (defaults to environment only)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newPlansCmd())
	root.AddCommand(newVersionCmd())

	return root
}
