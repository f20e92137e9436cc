// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/paideia/paideia/pkg/types"
)

const envPrefix = "PAIDEIA"

// configure points v at the config file and environment. An explicit
// cfgFile wins over the search path.
func configure(v *viper.Viper, cfgFile string) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("paideia")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "paideia"))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadConfig reads the config file if one is found and resolves every key
// against flags, PAIDEIA_* environment variables, the file, and defaults, in
// that order.
func loadConfig(v *viper.Viper) (types.Config, error) {
	setDefaults(v, types.Default())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return types.Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can resolve it and
// Unmarshal sees a complete tree.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.graceful_shutdown", d.Server.GracefulShutdown)

	v.SetDefault("mathpix.timeout", d.Mathpix.Timeout)
	v.SetDefault("mathpix.user_agent", d.Mathpix.UserAgent)
	v.SetDefault("mathpix.max_retries", d.Mathpix.MaxRetries)
	v.SetDefault("mathpix.base_url", d.Mathpix.BaseURL)
	v.SetDefault("mathpix.poll_interval", d.Mathpix.PollInterval)
	v.SetDefault("mathpix.wait_timeout", d.Mathpix.WaitTimeout)

	v.SetDefault("ingest.input_path", d.Ingest.InputPath)
	v.SetDefault("ingest.output_path", d.Ingest.OutputPath)
	v.SetDefault("ingest.page_ranges", d.Ingest.PageRanges)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("store.data_dir", d.Store.DataDir)
	v.SetDefault("store.disabled", d.Store.Disabled)
}
