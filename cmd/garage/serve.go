package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/garage/internal/api"
	"github.com/zulandar/garage/internal/config"
	"github.com/zulandar/garage/internal/db"
	"github.com/zulandar/garage/internal/maintenance"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Garage API server",
		Long:  "Opens the record database, migrates the schema, and serves the catalog REST API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "garage.yaml", "path to Garage config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port <= 0 {
		port = cfg.Server.Port
	}

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if err := db.SeedBuilds(gormDB, cfg.Seed); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if cfg.Maintenance.OrphanScan != "" {
		scanner := maintenance.NewScanner(gormDB, cfg.Uploads.Dir, out)
		go func() {
			if err := scanner.Run(ctx, cfg.Maintenance.OrphanScan); err != nil {
				fmt.Fprintf(out, "orphan scanner stopped: %v\n", err)
			}
		}()
	}

	return api.Start(ctx, api.StartOpts{
		DB:         gormDB,
		UploadsDir: cfg.Uploads.Dir,
		Port:       port,
		Out:        out,
	})
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist so a bare `garage serve` works out of the box.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == "garage.yaml" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
