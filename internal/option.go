package internal

import "io"

// Mode selects what Run does once the components are built.
type Mode string

// Run modes.
const (
	ModeServe Mode = "serve"
	ModeMCP   Mode = "mcp"
	ModeSync  Mode = "sync"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config      *Config
	configFile  string
	configFound bool
	mode        Mode
	version     string
	out         io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithConfigFile records where the configuration came from, for the startup
// log line.
func WithConfigFile(path string, found bool) Option {
	return func(a *application) {
		a.configFile = path
		a.configFound = found
	}
}

// WithMode selects serve (default), mcp or sync.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithOutput sets where the sync command prints changed hashes. Nil keeps
// stdout.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		if w != nil {
			a.out = w
		}
	}
}
