package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/legalflow/lexsync/config"
	"github.com/legalflow/lexsync/db"
	"github.com/legalflow/lexsync/errors"
	"github.com/legalflow/lexsync/logger"
)

// DbCmd manages the local database.
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the lexsync database",
	Long: `Manage local database operations.

Examples:
  lexsync db migrate    # Apply pending schema migrations`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runDbMigrate,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	log := logger.Named("db")
	database, err := db.Open(cfg.Database.Path, log)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer database.Close()

	if err := db.Migrate(database, log); err != nil {
		return errors.Wrap(err, "apply migrations")
	}

	fmt.Printf("Database migrated: %s\n", cfg.Database.Path)
	return nil
}
