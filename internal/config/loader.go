package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".pulse"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for pulse settings.
const envPrefix = "PULSE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default scheduler concurrency, used when the config file is silent.
const (
	DefaultTeamWorkers   = 4
	DefaultRepoWorkers   = 8
	DefaultPersonWorkers = 16
	DefaultSnapshotDir   = "./snapshots"
)

// Load loads configuration from file, env vars, and defaults, then
// validates it against the environment a run targets (the --env flag).
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME. A missing config
// file is not itself an error; required fields are still enforced by
// Validate so a run never starts silently misconfigured.
func Load(configPath, env string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate(env)
	if validateErr != nil {
		return nil, validateErr
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("scheduler.team_workers", DefaultTeamWorkers)
	viperCfg.SetDefault("scheduler.repo_workers", DefaultRepoWorkers)
	viperCfg.SetDefault("scheduler.person_workers", DefaultPersonWorkers)
	viperCfg.SetDefault("snapshot.dir", DefaultSnapshotDir)
	viperCfg.SetDefault("github.base_url", "https://api.github.com")
}
