// Package utils provides shared helpers for the syncany CLI.
//
// # Filesystem Utilities
//
//   - ResolveDir: resolves the local folder argument, defaulting to the working directory
//   - WriteFileAtomic: writes repository files without exposing partial content
//
// # System Utilities
//
//   - GetUsername, GetHostname: defaults for display and machine names
//   - SanitizeName: normalizes host names for use in machine names
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//   - ParseKeyValues: parses repeated key=value plugin options
//
// # Terminal Utilities
//
//   - ReadPassphrase, ReadNewPassphrase: hidden password prompts
//   - IsTerminal: checks whether prompts are possible
package utils
