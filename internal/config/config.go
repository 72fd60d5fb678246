// Package config loads server configuration from the environment.
//
// All variables share the CODEBOX_ prefix (CODEBOX_PORT, CODEBOX_DB_PATH, ...).
// Viper binds each key explicitly, applies defaults, and unmarshals into the
// Config struct via the mapstructure tags.
package config

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	Host   string `mapstructure:"HOST"`
	Port   int    `mapstructure:"PORT"`
	DBPath string `mapstructure:"DB_PATH"`

	// BaseURL is the externally visible origin, used for OAuth callback
	// redirects, e.g. "https://codebox.example.com".
	BaseURL string `mapstructure:"BASE_URL"`

	// JWTSecret signs session tokens. Must be set; at least 16 characters.
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// GitHub OAuth app credentials. Both empty disables GitHub login;
	// the server still starts with email/password auth only.
	GitHubClientID     string `mapstructure:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET"`

	// GeminiAPIKey authorizes the AI metadata generator. When empty,
	// /api/generate-meta answers 500 "not configured".
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
}

func Load() (*Config, error) {
	viper.SetEnvPrefix("CODEBOX")

	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("DB_PATH", "data/codebox.db")
	viper.SetDefault("BASE_URL", "http://localhost:8080")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("GITHUB_CLIENT_ID", "")
	viper.SetDefault("GITHUB_CLIENT_SECRET", "")
	viper.SetDefault("GEMINI_API_KEY", "")

	envs := []string{
		"HOST", "PORT", "DB_PATH", "BASE_URL", "JWT_SECRET",
		"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "GEMINI_API_KEY",
	}
	for _, key := range envs {
		if err := viper.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return errors.New("config: PORT must be between 1 and 65535")
	}
	if cfg.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 characters")
	}
	return nil
}
