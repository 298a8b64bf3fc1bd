// Command catalogctl manages the storefront database: schema migrations
// and seeding the product catalog from YAML.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"storefront/internal/db"
	"storefront/internal/logger"

	"github.com/spf13/cobra"
)

var (
	dsn      string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "catalogctl",
	Short:         "Manage the storefront catalog database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Init(logLevel)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", os.Getenv("DATABASE_DSN"), "postgres connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(migrateCmd, seedCmd)
}

// openDB connects and applies the schema; every command needs both.
func openDB(ctx context.Context) (*db.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("--dsn or DATABASE_DSN is required")
	}
	database, err := db.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, database.DB); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
