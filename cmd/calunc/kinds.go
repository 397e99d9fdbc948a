package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CK6170/calunc-go/modern"
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List calculators and tolerance strategies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := calcOptions()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Calculators:")
		for _, k := range modern.Kinds() {
			fmt.Fprintf(out, "  %s\n", k)
		}
		fmt.Fprintf(out, "Tolerances: %s (fallback %s)\n",
			strings.Join(opts.Registry.Names(), ", "), opts.Fallback.Strategy)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(kindsCmd)
}
