// Package logger provides structured logging for syncany CLI commands.
//
// The logger supports multiple verbosity levels controlled by command-line
// flags. Output is formatted with semantic prefixes and colors from the
// ui package.
//
// # Verbosity Levels
//
// Logging behavior is controlled by two flags:
//
//   - --verbose: Shows info messages such as key derivation progress
//   - --debug: Shows all messages including debug details
//
// Without flags, only warnings and errors are shown.
//
// # Log Methods
//
//	Logger.Infof()  // Shown with --verbose or --debug
//	Logger.Debugf() // Shown only with --debug
//	Logger.Warnf()  // Always shown, on stderr
//	Logger.Errorf() // Always shown, on stderr
//	Logger.Notify() // Progress notices, shown like Infof
//
// # Usage
//
// Create a logger with the desired verbosity:
//
//	log := Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Uploading %s", name)
//
// Commands create a logger in their PersistentPreRun and pass it to
// workflows through their options. Tests use Discard or set Out and Err.
package logger
