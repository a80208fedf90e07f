// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/cerca/geocode"
)

var geocodeIP string

var geocodeCmd = &cobra.Command{
	Use:   "geocode [address]",
	Short: "Resolve an address, or the network origin when none is given",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newComponents()
		if err != nil {
			return err
		}
		defer c.Close()

		var res *geocode.Result
		if len(args) > 0 {
			res, err = c.locator.ResolveAddress(cmd.Context(), strings.Join(args, " "))
		} else {
			res, err = c.locator.ResolveByNetworkOrigin(cmd.Context(), geocodeIP)
		}

		if err != nil {
			return err
		}

		if globalOptions.JSON {
			return printJSON(cmd.OutOrStdout(), res)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", res.Point.LatLon(), res.Source, res.DisplayName)

		return nil
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeIP, "ip", "", "IP address to locate instead of this machine")
	rootCmd.AddCommand(geocodeCmd)
}
