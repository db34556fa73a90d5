package app

import "github.com/spf13/pflag"

// CliOptions is implemented by the options struct an App is built around.
// The App binds the flags, unmarshals the config file onto the struct, then
// calls Complete and Validate before handing it to the run function.
type CliOptions interface {
	// AddFlags binds the options' fields to the command's flagset.
	AddFlags(fs *pflag.FlagSet)
	// Validate checks the completed options.
	Validate() error
	// Complete fills in derived or defaulted fields.
	Complete() error
}
