// Package sqlite provides SQLite database configuration options.
package sqlite

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Options defines configuration options for the SQLite history database.
type Options struct {
	// Path is the database file path. ":memory:" gives an in-memory store.
	Path                  string        `json:"path" mapstructure:"path"`
	MaxIdleConnections    int           `json:"max-idle-connections" mapstructure:"max-idle-connections"`
	MaxOpenConnections    int           `json:"max-open-connections" mapstructure:"max-open-connections"`
	MaxConnectionLifeTime time.Duration `json:"max-connection-life-time" mapstructure:"max-connection-life-time"`
	// LogLevel maps to gorm logger levels (1 silent, 2 error, 3 warn, 4 info).
	LogLevel int `json:"log-level" mapstructure:"log-level"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Path:                  "bankdesk.db",
		MaxIdleConnections:    10,
		MaxOpenConnections:    1, // SQLite handles one writer at a time
		MaxConnectionLifeTime: 10 * time.Second,
		LogLevel:              1,
	}
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	if o.Path == "" {
		return fmt.Errorf("sqlite.path cannot be empty")
	}
	return nil
}

// AddFlags adds flags for SQLite options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Path, "sqlite.path", o.Path, "SQLite database file path")
	fs.IntVar(&o.MaxIdleConnections, "sqlite.max-idle-connections", o.MaxIdleConnections, "SQLite max idle connections")
	fs.IntVar(&o.MaxOpenConnections, "sqlite.max-open-connections", o.MaxOpenConnections, "SQLite max open connections")
	fs.DurationVar(&o.MaxConnectionLifeTime, "sqlite.max-connection-life-time", o.MaxConnectionLifeTime, "SQLite max connection life time")
	fs.IntVar(&o.LogLevel, "sqlite.log-level", o.LogLevel, "SQLite gorm log level")
}
