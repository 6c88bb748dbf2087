// Package config loads the application configuration.
//
// Settings are read from three layers, later ones winning:
//
//	1. Built-in defaults (Default)
//	2. A config file, TOML or YAML by extension
//	3. INKWELL_* environment variables
//
// Sections:
//
//	[editor]   deferred_flush, history_max_entries
//	[log]      level (debug|info|warn|error), format (text|json)
//	[terminal] mouse, heading_color
//	[plugins]  scripts
//	[document] watch
//
// A missing config file is not an error. A malformed file returns a
// *ParseError; a setting of the wrong type a *TypeError; an out-of-range
// or unknown value a *ValidationError.
package config
