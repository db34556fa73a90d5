// Package options defines the shared options interface and flag helpers.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join concatenates flag-name prefixes with "." and appends a trailing "."
// when non-empty, producing names like "milvus.address" or
// "prefix.milvus.address".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined == "" {
		return ""
	}
	return joined + "."
}

// IOptions is implemented by option structs that validate themselves and
// bind their fields to a flagset.
type IOptions interface {
	// Validate returns every configuration problem found, not just the first.
	Validate() []error

	// AddFlags registers the options' flags, optionally under prefixes.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}
