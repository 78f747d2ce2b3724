package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/garage/internal/config"
	"github.com/zulandar/garage/internal/db"
	"gorm.io/gorm"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Garage database",
		Long:  "Creates the build table and seeds catalog records from configuration. Idempotent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "garage.yaml", "path to Garage config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	gormDB, err := initDatabase(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedBuilds(gormDB, cfg.Seed); err != nil {
		return err
	}
	if len(cfg.Seed) > 0 {
		fmt.Fprintf(out, "Seeded %d builds:", len(cfg.Seed))
		for _, s := range cfg.Seed {
			fmt.Fprintf(out, " %s", s.ID)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Garage database initialized successfully.")
	return nil
}

// initDatabase opens the configured backend, creating the MySQL database
// first if needed, and migrates the schema.
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Driver == "mysql" {
		adminDB, err := db.OpenAdmin(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := db.CreateDatabase(adminDB, cfg.Database.Name); err != nil {
			return nil, err
		}
	}

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, err
	}
	return gormDB, nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the Garage database",
		Long: `Drops all catalog records and re-initializes the database from config.

For SQLite this deletes the database file; for MySQL it drops and re-creates
the database. Stored images are never touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "garage.yaml", "path to Garage config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	target := cfg.Database.Path
	if cfg.Database.Driver == "mysql" {
		target = cfg.Database.Name
	}
	if !skipConfirm && !confirmReset(cmd, target) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	switch cfg.Database.Driver {
	case "sqlite":
		// WAL-mode databases leave -wal/-shm sidecars next to the file.
		for _, p := range []string{cfg.Database.Path, cfg.Database.Path + "-wal", cfg.Database.Path + "-shm"} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove %s: %w", p, err)
			}
		}
		fmt.Fprintf(out, "Removed %s\n", cfg.Database.Path)
	case "mysql":
		adminDB, err := db.OpenAdmin(cfg.Database)
		if err != nil {
			return err
		}
		if err := db.DropDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Dropped database %s\n", cfg.Database.Name)
	}

	gormDB, err := initDatabase(cfg)
	if err != nil {
		return err
	}
	if err := db.SeedBuilds(gormDB, cfg.Seed); err != nil {
		return err
	}
	fmt.Fprintln(out, "Garage database reset and re-initialized successfully.")
	return nil
}

func confirmReset(cmd *cobra.Command, target string) bool {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	fmt.Fprintf(out, "WARNING: This will permanently delete all records in %q.\n", target)
	fmt.Fprintln(out, "Stored images are kept, but every catalog record is lost.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
