// Package cli implements the pistonmeta command line client.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/piston-launch/pistonmeta/config"
	"github.com/piston-launch/pistonmeta/download"
	"github.com/piston-launch/pistonmeta/resolver"
	"github.com/piston-launch/pistonmeta/rules"
	"github.com/piston-launch/pistonmeta/store"
)

const (
	flagSettings = "settings"
	flagGameDir  = "game-dir"
)

// App is the root command together with the settings resolved for this
// invocation.
type App struct {
	*cobra.Command
	Settings config.Settings
}

// Root is the base command when called without any subcommands.
var Root *App

func init() {
	Root = &App{
		Command: &cobra.Command{
			Use:   "pistonmeta [sub-command]",
			Short: "Resolve game version manifests and download their artifacts",
			Long: `pistonmeta resolves a game version into a fully-merged manifest and
downloads every artifact that manifest requires, verifying each file
against its trusted checksum.`,
			RunE: func(cmd *cobra.Command, args []string) error {
				return cmd.Help()
			},
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				logger, err := getBaseLogger(cmd)
				if err != nil {
					return fmt.Errorf("could not retrieve logger: %w", err)
				}
				slog.SetDefault(logger)

				settingsPath, err := cmd.Flags().GetString(flagSettings)
				if err != nil {
					return err
				}
				settings, err := config.Load(settingsPath)
				if err != nil {
					return fmt.Errorf("could not load settings: %w", err)
				}
				if gameDir, err := cmd.Flags().GetString(flagGameDir); err == nil && gameDir != "" {
					settings.GameDir = gameDir
				}
				Root.Settings = settings

				return nil
			},
			SilenceUsage:      true,
			DisableAutoGenTag: true,
		},
	}

	Root.PersistentFlags().String(flagSettings, defaultSettingsPath(), "path to the settings file")
	Root.PersistentFlags().String(flagGameDir, "", "override the game directory")
	registerLoggingFlags(Root.PersistentFlags())

	Root.AddCommand(newVersionsCmd())
	Root.AddCommand(newInstallCmd())
	Root.AddCommand(newSyncCmd())
}

func defaultSettingsPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "pistonmeta", "settings.yaml")
	}
	return "settings.yaml"
}

// newStore opens the game directory from the resolved settings.
func newStore() *store.Store {
	return store.New(Root.Settings.GameDir)
}

// newResolver builds a resolver from the resolved settings.
func newResolver() *resolver.Resolver {
	opts := []resolver.Option{
		resolver.WithEnvironment(rules.Environment{
			OS:       rules.CurrentOS(),
			Features: Root.Settings.Features,
		}),
	}
	if Root.Settings.ManifestURL != "" {
		opts = append(opts, resolver.WithManifestURL(Root.Settings.ManifestURL))
	}
	return resolver.New(newStore(), opts...)
}

// jobOptions translates settings into scheduler options.
func jobOptions() []download.Option {
	return []download.Option{
		download.WithConcurrency(Root.Settings.Concurrency),
		download.WithMaxAttempts(Root.Settings.MaxAttempts),
		download.WithIgnoreFailures(Root.Settings.IgnoreFailures),
	}
}

// Execute runs the root command. It is called once by main.
func Execute() {
	if err := Root.Execute(); err != nil {
		os.Exit(1)
	}
}
