package internal

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/clipper/internal/arbiter"
	"github.com/starford/clipper/internal/clipstore"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Storage  StorageConfig     `yaml:"storage"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Instance InstanceConfig    `yaml:"instance"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Instance.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile receives logs instead of stderr when set.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds the optional loopback API configuration.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig controls where clips are written.
type StorageConfig struct {
	// BaseFolder forces the storage root; it is persisted on startup.
	BaseFolder string `yaml:"base_folder"`
	// FolderName is the conventional root folder name.
	FolderName string `yaml:"folder_name"`
	// DocumentsDir overrides the user's documents directory.
	DocumentsDir string `yaml:"documents_dir"`
	RecentLimit  int    `yaml:"recent_limit"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FolderName, validation.Required),
		validation.Field(&c.RecentLimit, validation.Required, validation.Min(1), validation.Max(1000)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// InstanceConfig controls single-instance arbitration.
type InstanceConfig struct {
	// StateDir holds the instance lock and the forwarding mailbox.
	StateDir string `yaml:"state_dir"`
	// OriginPrefixes are argument prefixes that mark a native-messaging launch.
	OriginPrefixes []string `yaml:"origin_prefixes"`
}

// Validate validates the instance configuration.
func (c *InstanceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StateDir, validation.Required),
		validation.Field(&c.OriginPrefixes, validation.Required, validation.Each(validation.Required)),
	)
}

// AuthConfig holds authentication configuration for the loopback API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// defaultStateDir is <user config dir>/clipper, or a temp-dir fallback
// when the platform reports none.
func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "clipper")
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	state := defaultStateDir()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Host: "127.0.0.1",
				Port: 8765,
			},
		},
		Storage: StorageConfig{
			FolderName:  "Clipper",
			RecentLimit: clipstore.DefaultRecentLimit,
		},
		SQLite: SQLiteConfig{
			Path: filepath.Join(state, "clipper.db"),
		},
		Instance: InstanceConfig{
			StateDir:       state,
			OriginPrefixes: append([]string(nil), arbiter.DefaultOriginPrefixes...),
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
