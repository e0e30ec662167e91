package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultDriveEndpoint is the Drive v3 REST base path.
	DefaultDriveEndpoint = "https://www.googleapis.com/drive/v3/"
	// DefaultUploadChunkSize bounds how much of an upload is buffered at once.
	DefaultUploadChunkSize = 8 * 1024 * 1024
	// uploadChunkAlignment is the Drive resumable upload granularity (256 KiB).
	uploadChunkAlignment = 256 * 1024
	DefaultPageSize      = 50
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "DRIVENEXUS_CONFIG"

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Google   GoogleConfig   `yaml:"google"`
	Drive    DriveConfig    `yaml:"drive"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// GoogleConfig holds the OAuth client and provider endpoints. The endpoint
// overrides exist for tests and proxies; empty means Google's defaults.
type GoogleConfig struct {
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	RedirectURL   string `yaml:"redirect_url"`
	AuthURL       string `yaml:"auth_url"`
	TokenURL      string `yaml:"token_url"`
	DriveEndpoint string `yaml:"drive_endpoint"`
}

type DriveConfig struct {
	UploadChunkSize int `yaml:"upload_chunk_size"`
	PageSize        int `yaml:"page_size"`
}

type AuthConfig struct {
	// StateSecret signs OAuth state parameters. Generated per process when empty.
	StateSecret string `yaml:"state_secret"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Host: "127.0.0.1", Port: 8080},
		Database: DatabaseConfig{Path: "drivenexus.db"},
		Google: GoogleConfig{
			RedirectURL:   "http://localhost:8080/drive/callback",
			DriveEndpoint: DefaultDriveEndpoint,
		},
		Drive: DriveConfig{
			UploadChunkSize: DefaultUploadChunkSize,
			PageSize:        DefaultPageSize,
		},
		Log: LogConfig{Level: "info", Format: "auto"},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and environment overrides, then validates it. An empty path falls
// back to $DRIVENEXUS_CONFIG; no file at all is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString("GOOGLE_CLIENT_ID", &c.Google.ClientID)
	setString("GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	setString("DRIVENEXUS_REDIRECT_URL", &c.Google.RedirectURL)
	setString("DRIVENEXUS_DRIVE_ENDPOINT", &c.Google.DriveEndpoint)
	setString("DRIVENEXUS_DB", &c.Database.Path)
	setString("DRIVENEXUS_STATE_SECRET", &c.Auth.StateSecret)
	setString("DRIVENEXUS_LOG_LEVEL", &c.Log.Level)
	setString("DRIVENEXUS_LOG_FORMAT", &c.Log.Format)
	setString("HOST", &c.Server.Host)

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks the fields that would otherwise fail late at request time.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Google.DriveEndpoint != "" && !strings.HasSuffix(c.Google.DriveEndpoint, "/") {
		errs = append(errs, fmt.Errorf("google.drive_endpoint must end with '/', got %q", c.Google.DriveEndpoint))
	}
	if c.Drive.UploadChunkSize <= 0 || c.Drive.UploadChunkSize%uploadChunkAlignment != 0 {
		errs = append(errs, fmt.Errorf("drive.upload_chunk_size must be a positive multiple of %d, got %d",
			uploadChunkAlignment, c.Drive.UploadChunkSize))
	}
	if c.Drive.PageSize <= 0 || c.Drive.PageSize > 1000 {
		errs = append(errs, fmt.Errorf("drive.page_size must be between 1 and 1000, got %d", c.Drive.PageSize))
	}

	return errors.Join(errs...)
}

// RequireOAuthClient reports an error when the OAuth client credentials are
// missing. Only commands that talk to Google need them.
func (c *Config) RequireOAuthClient() error {
	if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
		return errors.New("google.client_id and google.client_secret are required (or GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET)")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
