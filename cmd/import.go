// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"chatdb/cli/internal/config"
	"chatdb/cli/internal/docstore"
	"chatdb/cli/internal/dsn"
	"chatdb/cli/internal/httperrors"
	"chatdb/cli/internal/importer"
	"chatdb/cli/internal/keychain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	importDir      string
	importDatabase string
)

// importCmd groups the CSV loaders.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a directory of CSV files into PostgreSQL or MongoDB",
	Long: `The import commands load every *.csv file in --dir into --database, one table
or collection per file named after the file. Column types are inferred from the
data (BIGINT, DOUBLE PRECISION, BOOLEAN, TEXT); empty cells become NULL.`,
}

var importSQLCmd = &cobra.Command{
	Use:   "sql",
	Short: "Create one PostgreSQL table per CSV file, replacing existing tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), keychain.KeySQLDSN, "chatdb connect sql", importPostgres)
	},
}

var importMongoCmd = &cobra.Command{
	Use:   "mongodb",
	Short: "Append each CSV file to the MongoDB collection of the same name",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), keychain.KeyMongoURI, "chatdb connect mongodb", importMongo)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	for _, c := range []*cobra.Command{importSQLCmd, importMongoCmd} {
		c.Flags().StringVar(&importDir, "dir", "", "Directory containing the CSV files")
		c.Flags().StringVar(&importDatabase, "database", "", "Target database")
		_ = c.MarkFlagRequired("dir")
		_ = c.MarkFlagRequired("database")
		importCmd.AddCommand(c)
	}
}

// importFunc loads files into the database reached through the stored
// connection string conn.
type importFunc func(ctx context.Context, conn string, files []string, opts importer.Options) error

func runImport(ctx context.Context, secretKey, hint string, load importFunc) error {
	cfg, logger, err := loadSettings()
	if err != nil {
		return err
	}
	conn, _, err := keychain.Resolve(secretStore(logger), secretKey)
	if err != nil {
		pterm.Println("⚠️  No database connection configured.")
		pterm.Println("   Please run: " + hint)
		return nil
	}

	files, err := importer.ReadDir(importDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		pterm.Printf("No CSV files found in %s\n", importDir)
		return nil
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = importer.TableName(f)
	}

	progress := importer.NewProgress(names)
	var out bytes.Buffer
	opts := importer.Options{
		BatchSize: batchSize(cfg),
		Progress:  progress,
		Out:       &out,
		Logger:    logger,
	}

	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Database: ") + pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(importDatabase))
	stop := startProgressArea(progress)
	err = load(ctx, conn, files, opts)
	stop()
	pterm.Print(out.String())

	if err != nil {
		return err
	}
	pterm.Success.Printf("Imported %d file(s) into %s\n", progress.CompletedCount(), importDatabase)
	return nil
}

func importPostgres(ctx context.Context, conn string, files []string, opts importer.Options) error {
	normalized, err := dsn.Expect(conn, dsn.DBTypePostgreSQL)
	if err != nil {
		return err
	}
	host := ""
	if info, err := dsn.ParseInfo(normalized); err == nil {
		host = info.Endpoint()
	}

	adminDSN, err := dsn.WithDatabase(normalized, "postgres")
	if err != nil {
		return err
	}
	admin, err := pgxpool.New(ctx, adminDSN)
	if err != nil {
		return err
	}
	created, err := importer.EnsureDatabase(ctx, admin, importDatabase)
	admin.Close()
	if err != nil {
		return httperrors.FormatNetworkError(err, "preparing the target database", host)
	}
	if created {
		opts.Logger.Info("created database", slog.String("database", importDatabase))
	}

	targetDSN, err := dsn.WithDatabase(normalized, importDatabase)
	if err != nil {
		return err
	}
	pool, err := pgxpool.New(ctx, targetDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return httperrors.FormatNetworkError(err, "connecting to the target database", host)
	}
	return importer.ImportSQL(ctx, pool, files, opts)
}

func importMongo(ctx context.Context, conn string, files []string, opts importer.Options) error {
	st, err := docstore.Connect(ctx, conn, docstore.WithLogger(opts.Logger))
	if err != nil {
		var parseErr *dsn.ParseError
		if errors.As(err, &parseErr) {
			return err
		}
		return httperrors.FormatNetworkError(err, "connecting to MongoDB", "")
	}
	defer st.Close()
	return importer.ImportMongo(ctx, st.Catalog().Database(importDatabase), files, opts)
}

func batchSize(cfg config.Config) int {
	if cfg.Import.BatchSize > 0 {
		return cfg.Import.BatchSize
	}
	return importer.DefaultBatchSize
}
