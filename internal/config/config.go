// Package config provides functionality for managing configuration options
// for the server and the client using command-line flags, a JSON file and
// environment variables.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn"`

	// LogLevel is the minimal zap level ("debug", "info", ...).
	LogLevel string `json:"log_level"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// Parse parses the process command line and environment into Options.
// It exits the process on a malformed config file, like flag.Parse does on bad flags.
func Parse() *Options {
	opts, err := ParseArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return opts
}

// ParseArgs registers the server flags on fs, parses args, then overlays the
// JSON config file and finally the environment variables.
func ParseArgs(fs *flag.FlagSet, args []string) (*Options, error) {
	options := &Options{}
	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.LogLevel, "l", "info", "log level")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if err := loadFile(options.Config, options); err != nil {
		return nil, err
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}

	return options, nil
}

// ClientOptions holds the configuration values for the CLI client.
type ClientOptions struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api.
	BaseURL string `json:"url"`
	// StorePath is the SQLite file backing the local mirror.
	StorePath string `json:"store"`
	// LogLevel is the minimal zap level.
	LogLevel string `json:"log_level"`
	// Timeout bounds each HTTP request issued by the client.
	Timeout time.Duration `json:"-"`
	// ProbeInterval is how often connectivity is checked.
	ProbeInterval time.Duration `json:"-"`
	// PendingInterval is how often the pending count is recomputed.
	PendingInterval time.Duration `json:"-"`
	// Config is the path to the Config file.
	Config string `json:"-"`
}

// DefaultClientOptions returns the client defaults.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		BaseURL:         "http://localhost:8080/api",
		StorePath:       "quotes.db",
		LogLevel:        "warn",
		Timeout:         10 * time.Second,
		ProbeInterval:   10 * time.Second,
		PendingInterval: 5 * time.Second,
		Config:          "client.json",
	}
}

// Resolve overlays the JSON config file and the environment onto opts, which
// already carries the flag values.
func (opts *ClientOptions) Resolve() error {
	if err := loadFile(opts.Config, opts); err != nil {
		return err
	}
	if u := os.Getenv("QUOTEKEEPER_URL"); u != "" {
		opts.BaseURL = u
	}
	if p := os.Getenv("QUOTEKEEPER_STORE"); p != "" {
		opts.StorePath = p
	}
	return nil
}

// loadFile unmarshals the JSON file at path into dst. A missing file is not an error.
func loadFile(path string, dst any) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}
