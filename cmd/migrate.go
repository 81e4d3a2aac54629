package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/supplier-portal/db"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "apply the embedded SQL migrations, or roll back the latest one",
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "", "read migrations from this directory instead of the embedded set")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	conn, err := goose.OpenDBWithDriver("pgx", cfg.Database.GetDSN())
	if err != nil {
		return fmt.Errorf("goose: failed to open DB: %w", err)
	}
	defer conn.Close()

	goose.SetTableName("schema_migrations")

	dir := migrateDir
	if dir == "" {
		goose.SetBaseFS(db.Migrations)
		dir = db.MigrationsDir
	}

	command := "up"
	if migrateRollback {
		command = "down"
	}

	if err := goose.RunContext(ctx, command, conn, dir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
