package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/futures/backend/pkg/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 마이그레이션",
	Long: `내장된 SQL 마이그레이션을 적용합니다 (goose).

Example:
  go run ./cmd/futures migrate
  go run ./cmd/futures migrate --status`,
	RunE: runMigrate,
}

var migrateStatus bool

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "현재 버전만 출력")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if !migrateStatus {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("Migrations applied")
	}

	version, err := db.MigrationVersion(ctx)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Schema version: %d", version))
	return nil
}
