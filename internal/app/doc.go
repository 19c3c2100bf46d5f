// Package app contains the application layer of splode. It owns the
// validated configuration, the logger and the wiring of the host pieces
// (working file store, unit codec, secondary runner) around the core
// decomposition, independent of the CLI that drives it.
//
// # Configuration Sources
//
// Settings are merged by spf13/viper, highest precedence first:
//
//   - **Flags** bound by the CLI.
//   - **Environment** variables with the SPLODE_ prefix, e.g.
//     SPLODE_RESOLVE_CYCLES=true.
//   - **Config file** given with --config, or splode.yaml in the working
//     directory when present.
//   - **Defaults** from SetDefaults.
//
// FromViper reads the merged view into a Config; NewConfig validates it.
package app
