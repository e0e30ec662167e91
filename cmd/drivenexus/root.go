package main

import (
	"fmt"
	"os"

	"github.com/pysugar/drive-nexus/internal/config"
	"github.com/pysugar/drive-nexus/internal/db"
	"github.com/pysugar/drive-nexus/internal/logging"
	"github.com/pysugar/drive-nexus/internal/version"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app carries state shared by subcommands once the root command has loaded
// configuration.
type app struct {
	configPath string
	cfg        *config.Config
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command execution failed.")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "drivenexus",
		Short:         "Link Google Drive accounts and act on them over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		fmt.Sprintf("path to a YAML config file (default $%s)", config.EnvConfigPath))

	rootCmd.AddCommand(
		serveCmd(a),
		usersCmd(a),
		accountsCmd(a),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	return rootCmd
}

// openDB opens the configured database.
func (a *app) openDB() (*gorm.DB, *db.Repo, error) {
	database, err := db.InitDB(a.cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	return database, db.NewRepo(database), nil
}

func closeDB(database *gorm.DB) {
	sqlDB, err := database.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close the database.")
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading for version output.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
