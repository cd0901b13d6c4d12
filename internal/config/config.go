// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofrs/uuid/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config is the full server configuration.
type Config struct {
	Host        string   `env:"HOST" envDefault:"0.0.0.0"`
	Port        int      `env:"PORT" envDefault:"8080"`
	MusicFolder string   `env:"MUSIC_FOLDER" envDefault:"./music"`
	UsersFile   string   `env:"USERS_FILE" envDefault:"./data/users.json"`
	JWTSecret   string   `env:"JWT_SECRET"`
	ExpiryDays  int      `env:"JWT_EXPIRY_DAYS" envDefault:"7"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string   `env:"LOG_FORMAT" envDefault:"pretty"` // pretty|json
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Addr returns the server bind address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TokenTTL returns the configured token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.ExpiryDays) * 24 * time.Hour
}

// EnsureSecret fills in a random signing secret when none is configured.
// A generated secret invalidates all outstanding tokens on restart, so the
// fallback is logged as a warning.
func (c *Config) EnsureSecret(log *zap.Logger) error {
	if c.JWTSecret == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("generate fallback secret: %w", err)
		}
		c.JWTSecret = id.String()
		log.Warn("JWT_SECRET not set, using a random secret; tokens will be invalidated on restart")
	}
	if len(c.JWTSecret) < 32 {
		log.Warn("JWT_SECRET is shorter than 32 characters, consider a longer secret")
	}
	return nil
}

// Validate checks the filesystem prerequisites: the music folder must exist
// and the users-file parent directory must be creatable.
func (c *Config) Validate() error {
	info, err := os.Stat(c.MusicFolder)
	if err != nil {
		return fmt.Errorf("music folder %s: %w", c.MusicFolder, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("music folder %s is not a directory", c.MusicFolder)
	}

	if dir := filepath.Dir(c.UsersFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}
	return nil
}
