package cmd

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/deskrelay/deskrelay/internal/config"
	"github.com/deskrelay/deskrelay/internal/store/pg"
)

func resolveDSN() (string, error) {
	// DSN comes from environment only (secret, never in config.json).
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.PostgresDSN == "" {
		return "", fmt.Errorf("DESKRELAY_POSTGRES_DSN environment variable is not set")
	}
	return cfg.Store.PostgresDSN, nil
}

func openMigrator() (*sql.DB, *migrate.Migrate, error) {
	dsn, err := resolveDSN()
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	m, err := pg.NewMigrator(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, m, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration management",
	}

	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateDownCmd())
	cmd.AddCommand(migrateVersionCmd())

	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, m, err := openMigrator()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := m.Up(); err != nil && err != migrate.ErrNoChange {
				return fmt.Errorf("migrate up: %w", err)
			}

			v, dirty, _ := m.Version()
			fmt.Printf("migrated to version %d (dirty=%v)\n", v, dirty)
			return nil
		},
	}
}

func migrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, m, err := openMigrator()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := m.Steps(-1); err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}

			v, dirty, _ := m.Version()
			fmt.Printf("rolled back to version %d (dirty=%v)\n", v, dirty)
			return nil
		},
	}
}

func migrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, m, err := openMigrator()
			if err != nil {
				return err
			}
			defer db.Close()

			v, dirty, err := m.Version()
			if err == migrate.ErrNilVersion {
				fmt.Println("no migrations applied")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("version %d (dirty=%v)\n", v, dirty)
			return nil
		},
	}
}
