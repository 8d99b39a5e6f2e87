package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"snowbook/internal/common"
	"snowbook/pkg/models"
)

// GetConfigPath returns the directory holding snowbook configuration
func GetConfigPath() string {
	if configPath := os.Getenv("SNOWBOOK_CONFIG"); configPath != "" {
		return filepath.Dir(configPath)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".snowbook")
}

// GetConfigFile returns the configuration file path
func GetConfigFile() string {
	if configFile := os.Getenv("SNOWBOOK_CONFIG"); configFile != "" {
		cleaned, err := common.CleanPath(configFile)
		if err != nil {
			return filepath.Join(GetConfigPath(), "config.yaml")
		}
		return cleaned
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

// Load reads the configuration file. A missing file yields an empty config.
func Load() (*models.Config, error) {
	configFile := GetConfigFile()

	cleanedPath, err := common.CleanPath(configFile)
	if err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
		return &models.Config{}, nil
	}

	data, err := os.ReadFile(cleanedPath) // #nosec G304 - path is validated
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config models.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Passwords are stored encrypted; hand callers the plain value.
	if IsEncrypted(config.Snowflake.Password) {
		password, err := DecryptPassword(config.Snowflake.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt password: %w", err)
		}
		config.Snowflake.Password = password
	}

	return &config, nil
}

// Save writes the configuration file, encrypting the password at rest
func Save(config *models.Config) error {
	configPath := GetConfigPath()
	if err := os.MkdirAll(configPath, common.DirPermissionSecure); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	toWrite := *config
	if toWrite.Snowflake.Password != "" && !IsEncrypted(toWrite.Snowflake.Password) {
		encrypted, err := EncryptPassword(toWrite.Snowflake.Password)
		if err != nil {
			return fmt.Errorf("failed to encrypt password: %w", err)
		}
		toWrite.Snowflake.Password = encrypted
	}

	data, err := yaml.Marshal(&toWrite)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(GetConfigFile(), data, common.FilePermissionSecure); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists reports whether a configuration file is present
func Exists() bool {
	_, err := os.Stat(GetConfigFile())
	return err == nil
}
