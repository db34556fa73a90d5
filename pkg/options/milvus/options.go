// Package milvusopts provides options for the Milvus vector store connection.
package milvusopts

import (
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/bankdesk/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Milvus client configuration.
type Options struct {
	// Address is the Milvus server address (host:port).
	Address string `json:"address" mapstructure:"address"`

	// Database is the database name to use.
	Database string `json:"database" mapstructure:"database"`

	// Username for authentication. Empty when the server runs without auth.
	Username string `json:"username" mapstructure:"username"`

	// Password for authentication.
	Password string `json:"password" mapstructure:"password"`

	// Timeout bounds connection establishment and individual operations.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewOptions creates new Options with defaults matching a local Milvus
// standalone deployment.
func NewOptions() *Options {
	return &Options{
		Address:  "localhost:19530",
		Database: "default",
		Timeout:  30 * time.Second,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...)
	fs.StringVar(&o.Address, prefix+"milvus.address", o.Address, "Milvus server address (host:port).")
	fs.StringVar(&o.Database, prefix+"milvus.database", o.Database, "Milvus database name.")
	fs.StringVar(&o.Username, prefix+"milvus.username", o.Username, "Milvus username for authentication.")
	fs.StringVar(&o.Password, prefix+"milvus.password", o.Password, "Milvus password for authentication.")
	fs.DurationVar(&o.Timeout, prefix+"milvus.timeout", o.Timeout, "Connection and operation timeout.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch {
	case o.Address == "":
		errs = append(errs, fmt.Errorf("milvus address is required"))
	case !strings.Contains(o.Address, ":"):
		errs = append(errs, fmt.Errorf("milvus address %q must be host:port", o.Address))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("milvus timeout must be positive"))
	}
	return errs
}
