// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// EnvPrefix is prepended to every variable name. The server child inherits
// the environment, so unprefixed names like PORT are left alone.
const EnvPrefix = "NEUROSIFT_"

// ServerDirName is the npm project directory shipped next to the executable.
const ServerDirName = "experimental-local-file-access"

// ErrInvalidConfig is returned when a loaded value fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all configuration for the application.
type Config struct {
	// Viewer settings
	ViewerURL string `env:"VIEWER_URL, default=https://flatironinstitute.github.io/neurosift/" json:"viewer_url" validate:"required,url"`

	// Local server settings
	ServerDir    string        `env:"SERVER_DIR" json:"server_dir"`
	NPM          string        `env:"NPM, default=npm" json:"npm" validate:"required"`
	Node         string        `env:"NODE, default=node" json:"node" validate:"required"`
	MinNodeMajor int           `env:"MIN_NODE_MAJOR, default=16" json:"min_node_major" validate:"min=1"`
	SkipInstall  bool          `env:"SKIP_INSTALL, default=false" json:"skip_install"`
	PortAttempts int           `env:"PORT_ATTEMPTS, default=3" json:"port_attempts" validate:"min=1,max=20"`
	ReadyTimeout time.Duration `env:"READY_TIMEOUT, default=30s" json:"ready_timeout" validate:"gte=0s"`
	Settle       time.Duration `env:"SETTLE, default=500ms" json:"settle" validate:"gte=0s"`
	StopGrace    time.Duration `env:"STOP_GRACE, default=5s" json:"stop_grace" validate:"gt=0s"`
	TempDir      string        `env:"TEMP_DIR" json:"temp_dir"`
	NoBrowser    bool          `env:"NO_BROWSER, default=false" json:"no_browser"`

	// Optional S3 settings for share-nwb
	S3Bucket          string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region          string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint        string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	S3Prefix          string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=text json TEXT JSON"`
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level" validate:"oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from NEUROSIFT_ prefixed environment variables.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through lookuper, applying EnvPrefix, then
// fills derived defaults and validates the result.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.ServerDir == "" {
		dir, err := DefaultServerDir()
		if err != nil {
			return nil, err
		}
		cfg.ServerDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultServerDir returns the server project directory next to the running
// executable, with symlinks resolved.
func DefaultServerDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("config: locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), ServerDirName), nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if (c.S3AccessKeyID == "") != (c.S3SecretAccessKey == "") {
		return fmt.Errorf("%w: S3 access key id and secret must be set together", ErrInvalidConfig)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// Logs go to stderr; stdout belongs to the local server's output.
func (c *Config) NewLogger() *slog.Logger {
	return c.newLogger(os.Stderr)
}

func (c *Config) newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{ViewerURL: %s, ServerDir: %s, NPM: %s, Node: %s, MinNodeMajor: %d, SkipInstall: %t, PortAttempts: %d, ReadyTimeout: %s, TempDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.ViewerURL,
		c.ServerDir,
		c.NPM,
		c.Node,
		c.MinNodeMajor,
		c.SkipInstall,
		c.PortAttempts,
		c.ReadyTimeout,
		c.TempDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
