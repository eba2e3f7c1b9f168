// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the menu-engine CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/menu-engine/internal/config"
	"github.com/pdiddy/menu-engine/internal/secrets"
	"github.com/pdiddy/menu-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// appConfig and logger are populated before any subcommand runs.
var (
	appConfig types.Config
	logger    *slog.Logger
)

// rootCmd is the base command for the menu-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "menu-engine",
	Short: "Turn restaurant menu photos into structured menus",
	Long: `menu-engine finds photographed menu pages for a restaurant, recognizes
their text, structures it with a language model, and merges the result into
one menu document. Results are cached in a fast tier and a durable tier.

Run "serve" for the HTTP API, or use "extract", "ocr", and "menus" directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(cmd)
		slog.SetDefault(logger)

		keys, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			names := make([]string, 0, len(keys))
			for k := range keys {
				names = append(names, k)
			}
			sort.Strings(names)
			logger.Debug("loaded secrets", "keys", names)
		}

		cfgFile, _ := cmd.Flags().GetString("config")
		used, err := config.Init(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		if used != "" {
			fmt.Fprintln(os.Stderr, "Using config file:", used)
		}

		appConfig, err = config.Load(viper.GetViper(), keys)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./menu-engine.yaml or ~/.config/menu-engine/menu-engine.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	levelName, _ := cmd.Flags().GetString("log-level")
	asJSON, _ := cmd.Flags().GetBool("log-json")

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(levelName))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
