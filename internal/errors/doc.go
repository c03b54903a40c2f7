// Package errors provides typed error values for the syncany client.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Configuration errors: missing settings, unknown cipher specs, unknown
//     plugins (ErrMissingSetting, ErrUnknownCipherSpec, ErrUnknownPlugin)
//   - Format errors: malformed links and truncated streams (ErrInvalidLink,
//     ErrSignatureNotPresent)
//   - Crypto errors: tampered or undecryptable data (ErrSignatureMismatch,
//     ErrDecryptFailed)
//   - Storage errors: failures of the remote collaborator (ErrStorage,
//     ErrStorageInit, ErrCleanupFailed)
//   - Usage errors: caller bugs such as signing without a key
//     (ErrNoSigningKey, ErrStreamClosed)
//
// # Usage
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("decoding repo file: %w", errors.ErrDecryptFailed)
//
// Map errors to exit codes in the CLI layer:
//
//	os.Exit(kerrors.ExitCode(err))
package errors
