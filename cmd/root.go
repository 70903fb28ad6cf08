package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aerolabel/aerolabel-go/cmd/approve"
	"github.com/aerolabel/aerolabel-go/cmd/locks"
	"github.com/aerolabel/aerolabel-go/cmd/stats"
	"github.com/aerolabel/aerolabel-go/cmd/sweep"
	"github.com/aerolabel/aerolabel-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aerolabel",
		Short: "AeroLabel CLI",
		Long:  "AI-assisted aircraft image labeling: prediction sweeps, review triage and label statistics.",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		sweep.Command(settings),
		approve.Command(settings),
		stats.Command(settings),
		locks.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines the global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Intake.ImagesDir, "images", settings.Intake.ImagesDir, "Path to the intake image directory")
	rootCmd.PersistentFlags().StringVar(&settings.Intake.LabeledDir, "labeled", settings.Intake.LabeledDir, "Path to the labeled image archive")
}
