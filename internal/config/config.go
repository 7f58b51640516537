// Package config loads service settings from the environment and an
// optional logsheet.yaml file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the resolved service settings.
type Config struct {
	Token        string
	DBPath       string
	BindAddr     string
	Port         string
	ExportDir    string
	MediaRoot    string
	Location     *time.Location
	ImageWorkers int
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.BindAddr, c.Port)
}

// Load reads configuration. Environment variables win over the config file,
// which wins over defaults. It returns an error when API_TOKEN is absent or a
// value is invalid.
func Load() (Config, error) {
	v := viper.New()
	v.SetDefault("DB_PATH", "./logsheet.db")
	v.SetDefault("BIND_ADDR", "127.0.0.1")
	v.SetDefault("PORT", "8080")
	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("MEDIA_ROOT", ".")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("IMAGE_WORKERS", 4)

	v.SetConfigName("logsheet")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	v.AutomaticEnv()

	cfg := Config{
		Token:        v.GetString("API_TOKEN"),
		DBPath:       v.GetString("DB_PATH"),
		BindAddr:     v.GetString("BIND_ADDR"),
		Port:         v.GetString("PORT"),
		ExportDir:    v.GetString("EXPORT_DIR"),
		MediaRoot:    v.GetString("MEDIA_ROOT"),
		ImageWorkers: v.GetInt("IMAGE_WORKERS"),
	}
	if cfg.Token == "" {
		return Config{}, fmt.Errorf("API_TOKEN environment variable is required")
	}
	if cfg.ImageWorkers < 1 {
		return Config{}, fmt.Errorf("IMAGE_WORKERS must be at least 1, got %d", cfg.ImageWorkers)
	}

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return Config{}, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc
	return cfg, nil
}
