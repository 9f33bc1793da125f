package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// LoadConfig loads the configuration from the specified path or default locations
func LoadConfig() (*Config, error) {
	// Check for config path in environment variable
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		// Check common config locations
		commonPaths := []string{
			".",
			"./config",
			"/etc/llm-router",
			"$HOME/.llm-router",
		}

		for _, path := range commonPaths {
			expandedPath := os.ExpandEnv(path)
			if _, err := os.Stat(filepath.Join(expandedPath, "config.yaml")); err == nil {
				configPath = expandedPath
				break
			}
		}
	}

	return Load(configPath)
}

// LoadTestConfig loads the configuration for testing
func LoadTestConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config.test")
	v.SetConfigType("yaml")
	v.AddConfigPath("../../../test/config")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return decode(v)
}
