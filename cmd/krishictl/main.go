// Command krishictl runs operational tasks against the shop database and
// job queue.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/krishi-kendra/krishi-kendra/internal/app"
	"github.com/krishi-kendra/krishi-kendra/internal/platform/db"
)

type env struct {
	cfg    *app.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "krishictl",
		Short:         "Operational commands for the Krishi Kendra billing service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			e.cfg = cfg
			e.logger = app.NewLogger(cfg).With(slog.String("component", "krishictl"))
			return nil
		},
	}
	root.AddCommand(
		newMigrateCmd(e),
		newSeedCmd(e),
		newUserCmd(e),
		newJobsCmd(e),
		newReportCmd(e),
	)
	return root
}

func (e *env) pool(ctx context.Context) (*pgxpool.Pool, error) {
	return db.New(ctx, e.cfg.PGDSN)
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := e.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := db.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			e.logger.Info("schema applied")
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "krishictl: %v\n", err)
		os.Exit(1)
	}
}
