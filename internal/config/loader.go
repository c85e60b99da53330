package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"testplan/pkg/logging"
)

const (
	userConfigDir  = ".config/testplan"
	configFileName = "config.yaml"
)

// Environment variables that override file values.
const (
	EnvOrganizationURL = "AZURE_DEVOPS_ORG_URL"
	EnvAPIVersion      = "AZURE_DEVOPS_API_VERSION"
	EnvLogLevel        = "LOG_LEVEL"
	EnvPort            = "TESTPLAN_PORT"
)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// FilePath returns the location of config.yaml inside configPath.
func FilePath(configPath string) string {
	return filepath.Join(configPath, configFileName)
}

// LoadConfig loads config.yaml from configPath on top of the defaults. A
// missing file is not an error.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := FilePath(configPath)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return Config{}, fmt.Errorf("reading %s: %w", configFilePath, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Info("Config", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// Load reads the file, applies environment overrides and validates the result.
func Load(configPath string) (Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with the environment variables read through getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(EnvOrganizationURL); v != "" {
		cfg.Remote.OrganizationURL = v
	}
	if v := getenv(EnvAPIVersion); v != "" {
		cfg.Remote.APIVersion = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return ValidationError{Field: EnvPort, Value: v, Message: "must be an integer"}
		}
		cfg.Server.Port = port
	}
	return nil
}
