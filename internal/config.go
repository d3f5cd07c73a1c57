package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Library LibraryConfig     `yaml:"library"`
	Replica ReplicaConfig     `yaml:"replica"`
	Index   IndexConfig       `yaml:"index"`
	Cache   CacheConfig       `yaml:"cache"`
	Sync    SyncConfig        `yaml:"sync"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Library.Validate(); err != nil {
		return err
	}
	if err := c.Replica.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile, when set, adds a rotating JSON log file next to stdout.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LibraryConfig locates the library on disk.
//
// Root is the library root (typically inside a cloud-synced folder). Books
// live in Root/BooksDir and the hash cache is Root/HashCacheFile.
type LibraryConfig struct {
	Root          string `yaml:"root"`
	BooksDir      string `yaml:"books_dir"`
	HashCacheFile string `yaml:"hash_cache_file"`
	ScanWorkers   int    `yaml:"scan_workers"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.BooksDir, validation.Required),
		validation.Field(&c.HashCacheFile, validation.Required),
		validation.Field(&c.ScanWorkers, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// BooksPath returns the books directory.
func (c *LibraryConfig) BooksPath() string {
	return filepath.Join(c.Root, c.BooksDir)
}

// HashCachePath returns the hash cache file.
func (c *LibraryConfig) HashCachePath() string {
	return filepath.Join(c.Root, c.HashCacheFile)
}

// ReplicaConfig holds the two progress replica roots. Progress records live
// in <root>/Progress on each side.
//
// Enabled turns Central replication on; when false, or when the central
// Progress directory does not exist, reconciliation is a no-op.
type ReplicaConfig struct {
	LocalRoot   string `yaml:"local_root"`
	CentralRoot string `yaml:"central_root"`
	Enabled     bool   `yaml:"enabled"`
}

// Validate validates the replica configuration.
func (c *ReplicaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LocalRoot, validation.Required),
		validation.Field(&c.CentralRoot, validation.When(c.Enabled, validation.Required)),
	)
}

// LocalProgressPath returns the Local replica directory.
func (c *ReplicaConfig) LocalProgressPath() string {
	return filepath.Join(c.LocalRoot, "Progress")
}

// CentralProgressPath returns the Central replica directory.
func (c *ReplicaConfig) CentralProgressPath() string {
	return filepath.Join(c.CentralRoot, "Progress")
}

// IndexConfig holds SQLite catalog configuration.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// CacheConfig tunes the content-hash cache.
type CacheConfig struct {
	// HashMaxEntries bounds the hash cache; 0 disables eviction.
	HashMaxEntries int `yaml:"hash_max_entries"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.HashMaxEntries, validation.Min(0)),
	)
}

// SyncConfig tunes progress reconciliation.
type SyncConfig struct {
	LockTimeout time.Duration `yaml:"lock_timeout"`
	// BumpVersionOnTie increments the winner's version when a timestamp
	// tie-break decides, instead of copying it unchanged.
	BumpVersionOnTie bool `yaml:"bump_version_on_tie"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LockTimeout, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled".
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Library: LibraryConfig{
			Root:          "./library",
			BooksDir:      "Books",
			HashCacheFile: "hash-cache.json",
			ScanWorkers:   4,
		},
		Replica: ReplicaConfig{
			LocalRoot:   "./data",
			CentralRoot: "./library",
			Enabled:     true,
		},
		Index: IndexConfig{
			Path: "./data/folio.db",
		},
		Cache: CacheConfig{
			HashMaxEntries: 10000,
		},
		Sync: SyncConfig{
			LockTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
