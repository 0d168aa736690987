// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"chatdb/cli/internal/keychain"
	"chatdb/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// dbinfoCmd shows the configured connections with credentials masked.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show the configured connections and model endpoint",
	Long: `The dbinfo command displays the PostgreSQL DSN and MongoDB URI chatdb will use,
with credentials masked, and where each one comes from (environment variable or
OS keychain). It also shows the model endpoint and whether an API key is set.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadSettings()
		if err != nil {
			return err
		}
		secrets := secretStore(logger)

		showConnection(secrets, keychain.KeySQLDSN, "PostgreSQL", "chatdb connect sql")
		showConnection(secrets, keychain.KeyMongoURI, "MongoDB", "chatdb connect mongodb")

		keyState := pterm.NewStyle(pterm.FgRed).Sprint("not set (run: chatdb login)")
		if _, source, err := keychain.Resolve(secrets, keychain.KeyLLMAPIKey); err == nil {
			keyState = pterm.NewStyle(pterm.FgGreen).Sprint("set") + " (" + string(source) + ")"
		}
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Model")).
			WithPadding(1).
			Println(fmt.Sprintf("Endpoint: %s\nModel:    %s\nAPI key:  %s", cfg.LLM.BaseURL, cfg.LLM.Model, keyState))
		pterm.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}

func showConnection(secrets keychain.Getter, key, title, hint string) {
	value, source, err := keychain.Resolve(secrets, key)
	if err != nil {
		pterm.Println("⚠️  No " + title + " connection configured")
		pterm.Println("   Please run: " + hint)
		pterm.Println()
		return
	}
	pterm.DefaultBox.
		WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(title)).
		WithPadding(1).
		Println(logging.Mask(value))
	pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("from " + string(source) + " · to update, run: " + hint))
	pterm.Println()
}
