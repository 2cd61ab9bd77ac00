package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/logiflow/logiflow/internal/apierr"
	"github.com/logiflow/logiflow/internal/catalog"
	"github.com/logiflow/logiflow/internal/cli/config"
	"github.com/logiflow/logiflow/internal/model"
	"github.com/logiflow/logiflow/internal/store/migrate"
)

var migratePrint bool

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Derive the DDL from the entity catalog and apply it.

Tables are created in registration order so foreign keys always point
at existing tables. Existing tables are left alone; this is idempotent
bootstrap, not a versioned migration system.`,
		RunE: runMigrate,
	}
	cmd.Flags().BoolVar(&migratePrint, "print", false, "Print the DDL instead of applying it")
	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	registry := model.NewRegistry()
	if err := catalog.Register(registry); err != nil {
		return apierr.NewStartup("catalog", err)
	}

	if migratePrint {
		fmt.Fprint(cmd.OutOrStdout(), migrate.Script(registry))
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return apierr.NewStartup("config", err)
	}
	if cfg.Database.URL == "" {
		return apierr.NewStartup("config", fmt.Errorf("database.url is required (or set LOGIFLOW_DATABASE_URL)"))
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return apierr.NewStartup("database", err)
	}
	defer db.Close()

	if err := migrate.NewRunner(db, registry).Apply(cmd.Context()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	successColor := color.New(color.FgGreen, color.Bold)
	successColor.Fprintf(cmd.OutOrStdout(), "Schema up to date (%d tables)\n", registry.Count())
	return nil
}
