package main

import (
	"strconv"

	"github.com/caarlos0/env/v10"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/budgetly/budgetly/internal/repository"
)

// databaseEnv is the configuration the migrate commands need. It avoids
// requiring the full server configuration.
type databaseEnv struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
}

func loadDatabaseURL() (string, error) {
	var e databaseEnv
	if err := env.Parse(&e); err != nil {
		return "", oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return e.DatabaseURL, nil
}

// NewMigrateCmd creates the migrate subcommand. Without a subcommand it
// applies all pending migrations.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back or inspect the embedded PostgreSQL schema migrations.`,
		RunE:  runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Long:  `Roll back every migration. This drops all tables and their data.`,
		RunE:  runMigrateDown,
	}
	down.Flags().Bool("yes", false, "confirm dropping all tables")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "steps N",
		Short: "Apply N migrations, or roll back when N is negative",
		Args:  cobra.ExactArgs(1),
		RunE:  runMigrateSteps,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE:  runMigrateVersion,
	})

	return cmd
}

// withMigrator opens a migrator, runs fn and closes it.
func withMigrator(fn func(m *repository.Migrator) error) (err error) {
	databaseURL, err := loadDatabaseURL()
	if err != nil {
		return err
	}

	m, err := repository.NewMigrator(databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open migrator").Errorf("%s", sanitizeError(err, databaseURL))
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(m)
}

func migrateUp(databaseURL string) error {
	m, err := repository.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	return withMigrator(func(m *repository.Migrator) error {
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "up").Wrap(err)
		}
		return printVersion(cmd, m, "Migrations completed successfully")
	})
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return oops.Code("CONFIRMATION_REQUIRED").Errorf("migrate down drops all tables; pass --yes to confirm")
	}

	return withMigrator(func(m *repository.Migrator) error {
		cmd.Println("Rolling back migrations...")
		if err := m.Down(); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "down").Wrap(err)
		}
		cmd.Println("All migrations rolled back")
		return nil
	})
}

func runMigrateSteps(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n == 0 {
		return oops.Code("INVALID_ARGUMENT").With("steps", args[0]).Errorf("steps must be a non-zero integer")
	}

	return withMigrator(func(m *repository.Migrator) error {
		if err := m.Steps(n); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "steps").Wrap(err)
		}
		return printVersion(cmd, m, "Migration steps applied")
	})
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	return withMigrator(func(m *repository.Migrator) error {
		return printVersion(cmd, m, "")
	})
}

func printVersion(cmd *cobra.Command, m *repository.Migrator, prefix string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "version").Wrap(err)
	}
	if prefix != "" {
		cmd.Println(prefix)
	}
	if dirty {
		cmd.Printf("Schema version: %d (dirty)\n", version)
		return nil
	}
	cmd.Printf("Schema version: %d\n", version)
	return nil
}
