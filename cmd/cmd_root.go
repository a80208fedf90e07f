// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})

	rootCmd.PersistentFlags().BoolVar(&globalOptions.TraceHTTP, "trace-http", false, "Trace provider HTTP requests")
	rootCmd.PersistentFlags().BoolVar(&globalOptions.TraceHTTPBody, "trace-http-body", false, "Trace provider HTTP requests including bodies")
	rootCmd.PersistentFlags().StringVar(&globalOptions.LogLevel, "log-level", "", "Log level: debug, info, warn or error (default $LOG_LEVEL or info)")
	rootCmd.PersistentFlags().BoolVar(&globalOptions.JSON, "json", false, "Print results as JSON")
}

type options struct {
	TraceHTTP     bool
	TraceHTTPBody bool
	LogLevel      string
	JSON          bool
}

var (
	globalOptions options
	config        *Config
	logger        *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cerca",
	Short: "find businesses near you",
	Long: `
cerca finds nearby businesses of a given kind through the Geoapify places API,
optionally rates them with Foursquare and ranks them by distance and rating.

Configuration is read from the environment and from a .env file in the current
directory.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		c, err := LoadConfig()
		if err != nil {
			return err
		}

		if globalOptions.LogLevel != "" {
			c.LogLevel = globalOptions.LogLevel
		}

		config = c
		logger = newLogger(os.Stderr, c.LogLevel, c.LogFormat)
		slog.SetDefault(logger)

		return nil
	},
}

// newLogger builds the process logger. The text format goes through
// logWriter so slog and log lines share the same timestamp prefix.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.TimeKey {
			return slog.Attr{}
		}

		return a
	}

	return slog.New(slog.NewTextHandler(&logWriter{writer: w}, opts))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var Version = "dev"

func Execute(version string) {
	Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}
