// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paideia CLI.
// It serves the health-check endpoint and drives Mathpix PDF ingestion.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/paideia/paideia/internal/logging"
	"github.com/paideia/paideia/internal/secrets"
	"github.com/paideia/paideia/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const secretsDir = ".secrets/"

var (
	// cfg is the resolved configuration, populated before any subcommand runs.
	cfg = types.Default()

	// logger is built from cfg.Log once configuration is resolved.
	logger = zerolog.Nop()

	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets map[string]string
)

// rootCmd is the base command for the paideia CLI.
var rootCmd = &cobra.Command{
	Use:   "paideia",
	Short: "Paideia health-check service and Mathpix PDF ingestion",
	Long: `paideia runs a small health-check web service and converts PDF documents
to Markdown text through the Mathpix API.

Use "paideia serve" to start the web service and "paideia ingest" to submit a
PDF, wait for the remote conversion, and save the extracted text.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		resolved, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = resolved
		logger = logging.New(cfg.Log, cmd.ErrOrStderr())
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug().Str("file", used).Msg("using config file")
		}

		s, err := secrets.Load(secretsDir, logger)
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
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paideia.yaml or ~/.config/paideia/paideia.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	configure(viper.GetViper(), cfgFile)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
