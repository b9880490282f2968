// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the review-engine CLI: an AI-assisted
// screening and data extraction pipeline for systematic literature reviews.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-engine/internal/export"
	"github.com/pdiddy/review-engine/internal/ollama"
	"github.com/pdiddy/review-engine/internal/secrets"
	"github.com/pdiddy/review-engine/internal/store"
	"github.com/pdiddy/review-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the review-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "review-engine",
	Short: "AI-assisted screening and extraction for systematic reviews",
	Long: `review-engine runs systematic literature reviews against local language
models. PDFs are ingested into a project, screened against PICO criteria by
a three-model consensus council, and included studies have their data
extracted for export to RevMan, PRISMA, and JSON.

Each review stage is a subcommand: project, ingest, screen, extract,
models, export, and usage.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./review-engine.yaml or ~/.config/review-engine/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "data", "base directory for review data (database and stored PDFs)")
	rootCmd.PersistentFlags().String("ollama-url", ollama.DefaultBaseURL, "Ollama endpoint URL")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("review-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "review-engine"))
		}
	}

	viper.SetEnvPrefix("REVIEW_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger: human-readable console output on
// stderr, debug level with --verbose.
func newLogger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

// openStore opens the review database under --data-dir.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if env := viper.GetString("data_dir"); env != "" && !cmd.Flags().Changed("data-dir") {
		dataDir = env
	}
	return store.New(types.StoreConfig{DataDir: dataDir})
}

// newOllamaClient builds the inference gateway from --ollama-url.
func newOllamaClient(cmd *cobra.Command, log zerolog.Logger) *ollama.Client {
	baseURL, _ := cmd.Flags().GetString("ollama-url")
	if env := viper.GetString("ollama_url"); env != "" && !cmd.Flags().Changed("ollama-url") {
		baseURL = env
	}
	return ollama.NewClient(types.OllamaConfig{BaseURL: baseURL}, log)
}

func main() {
	export.AppVersion = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
