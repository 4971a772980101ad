package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xnema-web/internal/config"
	"xnema-web/internal/infrastructure/database"
	"xnema-web/internal/infrastructure/logger"
	"xnema-web/internal/service"
)

func main() {
	root := &cobra.Command{
		Use:   "xnema-web",
		Short: "XNEMA web backend: password recovery and login hand-off",
		RunE: func(cmd *cobra.Command, args []string) error {
			return service.NewApplication(service.Modules()).Run(context.Background())
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&config.File, "config", "", "path to config file (default ./config.yaml or ./config/config.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  root.RunE,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the api_logs table and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.Database.Enabled {
				return fmt.Errorf("database.enabled is false, nothing to migrate")
			}

			log, err := logger.NewLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			defer log.Sync()

			db, err := database.Open(cfg, log)
			if err != nil {
				return err
			}
			return db.Close()
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.Version)
		},
	}

	root.AddCommand(serveCmd, migrateCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
