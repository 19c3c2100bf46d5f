// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It builds
// the spf13/cobra command tree and translates flags, environment and config
// file into the application's internal configuration.
//
// # Exit Codes
//
//   - **0** success.
//   - **1** the run failed or was aborted.
//   - **2** invalid usage or configuration.
//   - **3** decomposition finished, but some datablocks or groups failed.
//
// The hidden resolve-cycle command exits with the resolve.ExitStatus code
// of the secondary pass instead.
package cli
