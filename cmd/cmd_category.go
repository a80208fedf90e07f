// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/cerca/category"
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Inspect the business taxonomy",
}

var categoryResolveCmd = &cobra.Command{
	Use:   "resolve <text>",
	Short: "Resolve free text to a canonical category",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := category.NewResolver(nil)
		input := strings.Join(args, " ")

		path, err := r.Resolve(input)
		suggestions := r.Suggest(input, 5)

		if globalOptions.JSON {
			return printJSON(cmd.OutOrStdout(), map[string]any{"input": input, "category": path, "suggestions": suggestions})
		}

		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), path)

		if len(suggestions) < 2 {
			return nil
		}

		for _, m := range suggestions[1:] {
			fmt.Fprintf(cmd.OutOrStdout(), "  also: %-40s %.2f\n", m.Path, m.Score)
		}

		return nil
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list [group]",
	Short: "List the known categories",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t := category.MustDefault()
		out := cmd.OutOrStdout()

		for _, e := range t.Entries() {
			if len(args) > 0 && e.Group() != args[0] {
				continue
			}

			if len(e.Aliases) == 0 {
				fmt.Fprintln(out, e.Path)
			} else {
				fmt.Fprintf(out, "%s (%s)\n", e.Path, strings.Join(e.Aliases, ", "))
			}
		}

		return nil
	},
}

func init() {
	categoryCmd.AddCommand(categoryResolveCmd)
	categoryCmd.AddCommand(categoryListCmd)
	rootCmd.AddCommand(categoryCmd)
}
