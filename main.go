package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aerolabel/aerolabel-go/cmd"
	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init()
	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	logging.SetLevel(level)

	if settings.Main.Log.Enabled {
		closeLog, err := logging.SetFileOutput(settings.Main.Log.Path, level)
		if err != nil {
			logging.Warn("Failed to open main log file, logging to stdout",
				"path", settings.Main.Log.Path, "error", err)
		} else {
			defer closeLog()
		}
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
