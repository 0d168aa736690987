// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"chatdb/cli/internal/assistant"
	"chatdb/cli/internal/config"
	"chatdb/cli/internal/docstore"
	"chatdb/cli/internal/keychain"
	"chatdb/cli/internal/logging"
	"chatdb/cli/internal/oracle"
	"chatdb/cli/internal/session"
	"chatdb/cli/internal/sqlexec"
	"chatdb/cli/internal/xdg"

	"github.com/ergochat/readline"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	chatBackend  string
	chatDatabase string
)

// chatCmd runs the interactive loop: each line is classified by the model and
// then listed, switched, selected, inspected or turned into a query.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive natural-language session",
	Long: `The chat command opens a prompt showing the active backend and database.
Type requests such as:

  list databases
  switch to MongoDB
  select shop
  show me the schema
  what are the columns of orders
  how many customers signed up last month?

Type 'exit' or press Ctrl-D to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadSettings()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		secrets := secretStore(logger)

		kindName := cfg.DefaultBackend
		if chatBackend != "" {
			kindName = chatBackend
		}
		kind, err := assistant.ParseBackendKind(kindName)
		if err != nil {
			return err
		}

		model, err := newOracle(cfg, secrets)
		if err != nil {
			return err
		}
		if model == nil {
			fmt.Println("⚠️  No model API key configured.")
			fmt.Println("   Please run: chatdb login")
			return nil
		}

		var sqlBackend, mongoBackend session.Backend
		if st := openSQL(ctx, secrets, logger); st != nil {
			defer st.Close()
			sqlBackend = st
		}
		if st := openMongo(ctx, secrets, logger); st != nil {
			defer st.Close()
			mongoBackend = st
		}
		if sqlBackend == nil && mongoBackend == nil {
			fmt.Println("⚠️  No database connection configured.")
			fmt.Println("   Please run: chatdb connect sql   or   chatdb connect mongodb")
			return nil
		}

		active := sqlBackend
		if kind == assistant.BackendMongo {
			active = mongoBackend
		}
		state, err := session.InitialState(ctx, kind, active, chatDatabase)
		if err != nil {
			pterm.Println(logging.PresentError("", err))
		}

		historyFile, err := xdg.HistoryFile()
		if err != nil {
			logger.Debug("history disabled", slog.String("error", err.Error()))
			historyFile = ""
		}
		rl, err := readline.NewFromConfig(&readline.Config{
			Prompt:          state.Prompt(),
			HistoryFile:     historyFile,
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return fmt.Errorf("start prompt: %w", err)
		}
		defer rl.Close()

		sess := session.New(session.Config{
			Oracle: model,
			SQL:    sqlBackend,
			Mongo:  mongoBackend,
			State:  state,
			Out:    os.Stdout,
			Logger: logger,
			Spin:   chatSpinner(),
		})

		pterm.Println(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint("chatdb") +
			pterm.NewStyle(pterm.FgGray).Sprint(" · type 'exit' to quit"))
		pterm.Println()
		return sess.Run(ctx, lineReader{rl: rl})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatBackend, "backend", "", "Backend to start with: sql or mongodb (default from config)")
	chatCmd.Flags().StringVar(&chatDatabase, "database", "", "Database to select on start")
}

// lineReader adapts readline to session.LineReader. Ctrl-C abandons the
// current line instead of ending the session.
type lineReader struct {
	rl *readline.Instance
}

func (r lineReader) Readline() (string, error) {
	line, err := r.rl.ReadLine()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return line, err
}

func (r lineReader) SetPrompt(prompt string) { r.rl.SetPrompt(prompt) }

// newOracle builds the completion client. It returns nil when no API key is
// stored and the endpoint is the hosted default, which always needs one.
func newOracle(cfg config.Config, secrets keychain.Getter) (*oracle.Client, error) {
	apiKey, _, err := keychain.Resolve(secrets, keychain.KeyLLMAPIKey)
	if err != nil && !errors.Is(err, keychain.ErrNotFound) {
		return nil, err
	}
	if apiKey == "" && cfg.LLM.BaseURL == config.Defaults().LLM.BaseURL {
		return nil, nil
	}
	return oracle.New(oracle.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      apiKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.Timeout),
	})
}

// openSQL connects to the stored PostgreSQL DSN. A missing DSN or a failed
// connection leaves the backend unconfigured for this session.
func openSQL(ctx context.Context, secrets keychain.Getter, logger *slog.Logger) *sqlexec.Store {
	raw, source, err := keychain.Resolve(secrets, keychain.KeySQLDSN)
	if err != nil {
		logger.Debug("no postgres dsn", slog.String("error", err.Error()))
		return nil
	}
	st, err := sqlexec.Connect(ctx, raw, sqlexec.WithLogger(logger))
	if err != nil {
		pterm.Warning.Println("PostgreSQL unavailable: " + logging.Mask(err.Error()))
		return nil
	}
	logger.Debug("connected to postgres", slog.String("source", string(source)), slog.String("database", st.Database()))
	return st
}

// openMongo connects to the stored MongoDB URI, like openSQL.
func openMongo(ctx context.Context, secrets keychain.Getter, logger *slog.Logger) *docstore.Store {
	raw, source, err := keychain.Resolve(secrets, keychain.KeyMongoURI)
	if err != nil {
		logger.Debug("no mongodb uri", slog.String("error", err.Error()))
		return nil
	}
	st, err := docstore.Connect(ctx, raw, docstore.WithLogger(logger))
	if err != nil {
		pterm.Warning.Println("MongoDB unavailable: " + logging.Mask(err.Error()))
		return nil
	}
	logger.Debug("connected to mongodb", slog.String("source", string(source)), slog.String("database", st.Database()))
	return st
}
