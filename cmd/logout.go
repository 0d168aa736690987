// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"chatdb/cli/internal/keychain"

	"github.com/spf13/cobra"
)

// logoutCmd removes every secret chatdb stored in the OS keychain.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove all saved credentials and connections",
	Long: `The logout command removes the model API key, the PostgreSQL DSN and the
MongoDB URI from the OS keychain. Values supplied through environment variables
are not affected.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			fmt.Println("❌ Secure storage is not available on this system")
			return err
		}
		_ = km.ClearAll()

		fmt.Println("✅ All credentials and connections have been removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
