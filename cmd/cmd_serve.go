// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jcodagnone/cerca/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newComponents()
		if err != nil {
			return err
		}
		defer c.Close()

		addr := config.BindAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		if config.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		s := server.New(c.finder, c.locator, c.categories, c.router, server.Config{
			Addr:            addr,
			DefaultRadius:   config.Radius,
			DefaultCategory: config.Category,
			MinRating:       config.MinRating,
			Workers:         config.Workers,
		}, logger)

		return s.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default $CERCA_BIND_ADDR or localhost:8080)")
	rootCmd.AddCommand(serveCmd)
}
