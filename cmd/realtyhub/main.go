package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/realtyhub/realtyhub/cmd/realtyhub/modules"
	schema "github.com/realtyhub/realtyhub/db"
	"github.com/realtyhub/realtyhub/internal/config"
	"github.com/realtyhub/realtyhub/internal/db"
	"github.com/realtyhub/realtyhub/internal/logger"
	"github.com/realtyhub/realtyhub/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "realtyhub",
		Short:         "Marketplace API server with real-time notification streams",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml (default $CONFIG_PATH or ./config.toml)")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

func resolveConfigPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	return os.Getenv("CONFIG_PATH")
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Printf("Starting RealtyHub %s\n", version.GetInfo())
			app := fx.New(
				fx.Supply(modules.ConfigPath(resolveConfigPath(*configPath))),
				modules.InfraModule,
				modules.DomainModule,
				modules.ServerModule,
				fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
					return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
				}),
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <" + strings.Join(db.MigrateCommands, "|") + "> [args]",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: db.MigrateCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath(*configPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Init(cfg.Log.Level, cfg.Log.Format)
			return db.RunMigrate(logger.L, cfg.Postgres, schema.Migrations(), args[0], args[1:])
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "RealtyHub %s\n", version.GetInfo())
			if version.BuildTime != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", version.BuildTime)
			}
		},
	}
}
