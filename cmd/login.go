// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"chatdb/cli/internal/config"
	"chatdb/cli/internal/httperrors"
	"chatdb/cli/internal/keychain"
	"chatdb/cli/internal/oracle"
	"chatdb/cli/internal/terminal"

	"github.com/spf13/cobra"
)

var (
	loginBaseURL string
	loginModel   string
)

// loginCmd stores the API key of the completion endpoint after checking that
// the endpoint accepts it.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Store the model API key",
	Long: `The login command prompts for the API key of an OpenAI-compatible chat
completions endpoint, verifies it by listing the available models and stores it
in the OS keychain.

--base-url and --model change the endpoint and model saved in the config file,
e.g. to use Gemini's OpenAI compatibility endpoint or a local Ollama server.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadSettings()
		if err != nil {
			return err
		}
		changed := false
		if loginBaseURL != "" {
			cfg.LLM.BaseURL = loginBaseURL
			changed = true
		}
		if loginModel != "" {
			cfg.LLM.Model = loginModel
			changed = true
		}

		key, err := terminal.ReadSecret("Enter API key: ")
		if err != nil {
			return err
		}
		if key == "" {
			return errors.New("API key is required")
		}

		client, err := oracle.New(oracle.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  key,
			Model:   cfg.LLM.Model,
			Timeout: time.Duration(cfg.LLM.Timeout),
		})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		stopSpinner := startInlineSpinner(os.Stdout, "verifying API key", spinnerFrames, 120*time.Millisecond)
		err = client.Ping(ctx)
		stopSpinner()
		if err != nil {
			return httperrors.FormatNetworkError(err, "verifying the API key", httperrors.ExtractHostFromURL(cfg.LLM.BaseURL))
		}

		km, err := keychain.GetManager()
		if err != nil {
			fmt.Println("❌ Secure storage is not available on this system.")
			fmt.Printf("   API key verified but not saved. Set %s instead.\n", keychain.EnvLLMAPIKey)
			return err
		}
		if err := km.SaveAPIKey(key); err != nil {
			fmt.Println("❌ Failed to save the API key securely.")
			return err
		}
		if changed {
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
		}

		fmt.Printf("✅ API key verified and saved for %s (model %s)\n", httperrors.ExtractHostFromURL(cfg.LLM.BaseURL), cfg.LLM.Model)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginBaseURL, "base-url", "", "OpenAI-compatible endpoint to save in the config file")
	loginCmd.Flags().StringVar(&loginModel, "model", "", "Model name to save in the config file")
}
