// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for chatdb.
// It implements the chat loop plus subcommands for storing connections and
// model credentials and for loading CSV data, using the Cobra CLI framework.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"chatdb/cli/internal/config"
	"chatdb/cli/internal/keychain"
	"chatdb/cli/internal/logging"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chatdb",
	Short: "Query PostgreSQL and MongoDB in plain language",
	Long: `chatdb turns plain-language requests into SQL statements or MongoDB
expressions, runs them and shows the results. Failed queries are sent back to
the model for repair up to three times.

Run 'chatdb login' and 'chatdb connect' once, then 'chatdb chat'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("chatdb %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, logging.Mask(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// loadSettings loads .env, the config file and the logger every command uses.
func loadSettings() (config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
		os.Setenv("CHATDB_VERBOSE", "1")
	}
	return cfg, logging.NewLogger(level, os.Stderr), nil
}

// secretStore returns the OS keychain, or nil when this system has none so
// that secrets can still come from the environment.
func secretStore(logger *slog.Logger) keychain.Getter {
	km, err := keychain.GetManager()
	if err != nil {
		logger.Debug("keychain unavailable", slog.String("error", err.Error()))
		return nil
	}
	return km
}
