package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// ToolConfig holds configuration for repair runs
type ToolConfig struct {
	BackupImage  bool   `mapstructure:"backup_image"`
	BackupSuffix string `mapstructure:"backup_suffix"`
}

// LoadToolConfig loads tool configuration using Viper
func LoadToolConfig() (*ToolConfig, error) {
	viper.SetConfigName("go-btrfs")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.go-btrfs")
	viper.AddConfigPath("/etc/go-btrfs")

	// Set defaults
	viper.SetDefault("backup_image", true)
	viper.SetDefault("backup_suffix", ".bak")

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, the defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	config := &ToolConfig{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

// backupImage copies the metadata image aside before a repair run so a
// failed experiment can be rolled back by hand.
func backupImage(path, suffix string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image for backup: %w", err)
	}
	if err := os.WriteFile(path+suffix, data, 0600); err != nil {
		return fmt.Errorf("failed to write image backup: %w", err)
	}
	return nil
}
