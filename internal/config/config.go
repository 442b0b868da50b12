package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	UI       UIConfig
	Tables   map[string]string
}

// DatabaseConfig locates the snapshot databases.
type DatabaseConfig struct {
	Dir string
	Ext string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	RowsPerPage int `mapstructure:"rows_per_page"`
	Timezone    string
}

// Load reads configuration from file and env. Env var overrides use
// prefix SPYGLASS_. The tables section maps a table name to the
// comma-separated columns to show; leave it empty to browse every table
// with all columns.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.dir", filepath.Join(os.Getenv("HOME"), ".local", "share", "spyglass"))
	v.SetDefault("database.ext", "db")
	v.SetDefault("ui.rows_per_page", 10)
	v.SetDefault("ui.timezone", "Local")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("SPYGLASS_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "spyglass"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SPYGLASS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
