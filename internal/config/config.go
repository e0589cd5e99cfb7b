package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tryon-storefront/internal/domain/repositories"
	"tryon-storefront/internal/domain/valueobjects"
)

// Config holds all runtime settings. Values are layered: defaults, then
// the YAML file, then .env, then the process environment.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Reveal    RevealConfig    `yaml:"reveal"`
	Upload    UploadConfig    `yaml:"upload"`
	Reference ReferenceConfig `yaml:"reference"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type APIConfig struct {
	BaseURL  string                `yaml:"base_url"`
	Timeout  time.Duration         `yaml:"timeout"`
	AuthMode repositories.AuthMode `yaml:"auth_mode"` // none, token, google
	Token    string                `yaml:"token"`
}

type RevealConfig struct {
	Duration      time.Duration `yaml:"duration"`
	Ceiling       float64       `yaml:"ceiling"`
	FrameInterval time.Duration `yaml:"frame_interval"`
	SettleDelay   time.Duration `yaml:"settle_delay"`
}

type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

type ReferenceConfig struct {
	ImagesDir string `yaml:"images_dir"`
	URLPrefix string `yaml:"url_prefix"`
	Garment   string `yaml:"garment"`
}

type ServerConfig struct {
	Port       int           `yaml:"port"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:  "http://127.0.0.1:5003",
			Timeout:  120 * time.Second,
			AuthMode: repositories.AuthNone,
		},
		Reveal: RevealConfig{
			Duration:      20 * time.Second,
			Ceiling:       0.65,
			FrameInterval: 16 * time.Millisecond,
			SettleDelay:   200 * time.Millisecond,
		},
		Upload: UploadConfig{
			MaxBytes: 10 * 1024 * 1024,
		},
		Reference: ReferenceConfig{
			URLPrefix: "/images/",
			Garment:   valueobjects.DefaultGarment,
		},
		Server: ServerConfig{
			Port:       8080,
			SessionTTL: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration. A missing YAML file or .env file is not
// an error; an unreadable or invalid one is.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	// NEXT_PUBLIC_API_URL is what the storefront frontend already uses
	if url := firstEnv("TRYON_API_URL", "NEXT_PUBLIC_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if token := os.Getenv("TRYON_API_TOKEN"); token != "" {
		c.API.Token = token
		if c.API.AuthMode == repositories.AuthNone {
			c.API.AuthMode = repositories.AuthToken
		}
	}
	if mode := os.Getenv("TRYON_API_AUTH"); mode != "" {
		c.API.AuthMode = repositories.AuthMode(strings.ToLower(mode))
	}
	if err := envDuration("TRYON_API_TIMEOUT", &c.API.Timeout); err != nil {
		return err
	}
	if err := envDuration("TRYON_REVEAL_DURATION", &c.Reveal.Duration); err != nil {
		return err
	}
	if v := os.Getenv("TRYON_REVEAL_CEILING"); v != "" {
		ceiling, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TRYON_REVEAL_CEILING: %w", err)
		}
		c.Reveal.Ceiling = ceiling
	}
	if dir := os.Getenv("IMAGES_DIR"); dir != "" {
		c.Reference.ImagesDir = dir
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("invalid PORT env variable")
		}
		c.Server.Port = port
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	switch c.API.AuthMode {
	case repositories.AuthNone, repositories.AuthGoogle:
	case repositories.AuthToken:
		if c.API.Token == "" {
			errs = append(errs, errors.New("api.token is required when auth_mode is token"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown api.auth_mode %q", c.API.AuthMode))
	}
	if c.Reveal.Duration <= 0 {
		errs = append(errs, errors.New("reveal.duration must be positive"))
	}
	if c.Reveal.Ceiling <= 0 || c.Reveal.Ceiling >= 1 {
		errs = append(errs, fmt.Errorf("reveal.ceiling must be in (0, 1), got %v", c.Reveal.Ceiling))
	}
	if c.Reveal.SettleDelay < 0 {
		errs = append(errs, errors.New("reveal.settle_delay must not be negative"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.max_bytes must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}

	return errors.Join(errs...)
}

// RemoteClient returns the settings for the head-swap HTTP client.
func (c *Config) RemoteClient() *repositories.RemoteClientConfig {
	return &repositories.RemoteClientConfig{
		AuthMode: c.API.AuthMode,
		Token:    c.API.Token,
		Timeout:  c.API.Timeout,
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
