package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/otiai10/consultbase/internal/plan"
)

func newPlansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Print the plan catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			return printPlans(cmd.OutOrStdout(), output)
		},
	}
	cmd.Flags().StringP("output", "o", "table", "output format: table, yaml or json")
	return cmd
}

// printPlans renders the catalog in the requested format
func printPlans(w io.Writer, format string) error {
	defs := plan.Catalog()

	switch format {
	case "", "table":
		return printPlanTable(w, defs)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(defs); err != nil {
			return fmt.Errorf("failed to encode plans: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(defs); err != nil {
			return fmt.Errorf("failed to encode plans: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func printPlanTable(w io.Writer, defs []plan.Definition) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tPRICE\tCLIENTS\tSEATS\tFEATURES")
	for _, d := range defs {
		var enabled []string
		for _, f := range plan.Features() {
			if on, _ := d.Features.Lookup(f); on {
				enabled = append(enabled, f.String())
			}
		}
		fmt.Fprintf(tw, "%s\t$%d/mo\t%s\t%s\t%s\n",
			d.ID, d.Price, d.ClientLimit, d.UserLimit, strings.Join(enabled, ","))
	}
	return tw.Flush()
}
