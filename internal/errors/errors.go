package errors

import "errors"

// Configuration errors indicate missing or unresolvable settings. They are
// raised before any I/O or cryptographic operation runs.
var (
	// ErrMissingSetting indicates a required stage or plugin setting is absent.
	ErrMissingSetting = errors.New("required setting is missing")

	// ErrMissingKeyMaterial indicates a component was built without the key it needs.
	ErrMissingKeyMaterial = errors.New("required key material is missing")

	// ErrUnknownCipherSpec indicates a cipher spec id is not in the registry.
	ErrUnknownCipherSpec = errors.New("unknown cipher spec")

	// ErrEmptyCipherSuite indicates a cipher suite without any cipher spec.
	ErrEmptyCipherSuite = errors.New("cipher suite is empty")

	// ErrUnknownTransformer indicates a transform stage type is not registered.
	ErrUnknownTransformer = errors.New("unknown transformer type")

	// ErrUnknownPlugin indicates a storage plugin type cannot be resolved.
	ErrUnknownPlugin = errors.New("unknown storage plugin")

	// ErrInvalidConfig indicates a local configuration file is malformed.
	ErrInvalidConfig = errors.New("configuration is invalid")
)

// Format errors indicate input that does not match the expected structure.
var (
	// ErrInvalidLink indicates a repository link is malformed, or cannot be
	// decrypted with the supplied passwords. The two cases are deliberately
	// reported the same way.
	ErrInvalidLink = errors.New("invalid repository link")

	// ErrSignatureNotPresent indicates a signed stream is shorter than its signature.
	ErrSignatureNotPresent = errors.New("signature not present (stream not long enough)")

	// ErrInvalidHeader indicates an encrypted stream has a malformed header.
	ErrInvalidHeader = errors.New("invalid encrypted stream header")
)

// Cryptographic errors indicate untrusted or corrupt data. They are never retried.
var (
	// ErrSignatureMismatch indicates a signed stream failed verification.
	ErrSignatureMismatch = errors.New("signature verification failed")

	// ErrDecryptFailed indicates an encrypted stream could not be authenticated.
	ErrDecryptFailed = errors.New("decryption failed")
)

// Storage errors are surfaced from the transfer collaborator.
var (
	// ErrStorage indicates the remote storage could not complete an operation.
	ErrStorage = errors.New("storage operation failed")

	// ErrStorageInit indicates remote initialization failed and the local
	// repository was cleaned up.
	ErrStorageInit = errors.New("remote storage initialization failed, local repository cleaned up")

	// ErrCleanupFailed indicates remote initialization failed and the local
	// repository could not be removed.
	ErrCleanupFailed = errors.New("remote storage initialization failed, cleanup failed: local directories must be removed manually")

	// ErrRepoAlreadyExists indicates the remote storage already holds a repository.
	ErrRepoAlreadyExists = errors.New("repository already exists on remote storage, use connect instead")

	// ErrRepoNotFound indicates the remote storage holds no repository file.
	ErrRepoNotFound = errors.New("no repository found on remote storage")

	// ErrNotFound indicates a remote file does not exist.
	ErrNotFound = errors.New("remote file not found")
)

// Usage errors indicate a caller bug rather than a security failure.
var (
	// ErrNoSigningKey indicates a signature was requested without a signing key.
	ErrNoSigningKey = errors.New("no signing key available")

	// ErrStageNotInitialized indicates a transform stage was used before initialization.
	ErrStageNotInitialized = errors.New("transform stage is not initialized")

	// ErrStreamClosed indicates a stream was used after it was closed.
	ErrStreamClosed = errors.New("stream already closed")

	// ErrConflictingInput indicates mutually exclusive inputs were supplied together.
	ErrConflictingInput = errors.New("conflicting input modes")

	// ErrNoPasswordProvider indicates passwords are needed but cannot be requested.
	ErrNoPasswordProvider = errors.New("repository is encrypted, but passwords cannot be requested")

	// ErrInvalidArgument indicates a malformed command-line argument.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Local state errors.
var (
	// ErrAlreadyInitialized indicates the local directory already holds a repository.
	ErrAlreadyInitialized = errors.New("local directory is already initialized")

	// ErrNotInitialized indicates the local directory holds no repository.
	ErrNotInitialized = errors.New("local directory is not initialized")
)

// Exit codes for automation-friendly CLI usage.
const (
	ExitSuccess       = 0
	ExitGenericError  = 1
	ExitUsage         = 2
	ExitVerifyFailed  = 10
	ExitDecryptFailed = 11
	ExitStorage       = 12
	ExitCleanupFailed = 13
)

// ExitCode maps an error to its CLI exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrCleanupFailed):
		return ExitCleanupFailed
	case errors.Is(err, ErrSignatureMismatch), errors.Is(err, ErrSignatureNotPresent):
		return ExitVerifyFailed
	case errors.Is(err, ErrDecryptFailed), errors.Is(err, ErrInvalidLink), errors.Is(err, ErrInvalidHeader):
		return ExitDecryptFailed
	case errors.Is(err, ErrStorage), errors.Is(err, ErrStorageInit), errors.Is(err, ErrRepoAlreadyExists),
		errors.Is(err, ErrRepoNotFound), errors.Is(err, ErrNotFound):
		return ExitStorage
	case IsUsage(err), IsConfiguration(err):
		return ExitUsage
	default:
		return ExitGenericError
	}
}

// IsConfiguration reports whether err belongs to the configuration class.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrMissingSetting) ||
		errors.Is(err, ErrMissingKeyMaterial) ||
		errors.Is(err, ErrUnknownCipherSpec) ||
		errors.Is(err, ErrEmptyCipherSuite) ||
		errors.Is(err, ErrUnknownTransformer) ||
		errors.Is(err, ErrUnknownPlugin) ||
		errors.Is(err, ErrInvalidConfig)
}

// IsUsage reports whether err indicates a caller bug.
func IsUsage(err error) bool {
	return errors.Is(err, ErrNoSigningKey) ||
		errors.Is(err, ErrStageNotInitialized) ||
		errors.Is(err, ErrStreamClosed) ||
		errors.Is(err, ErrConflictingInput) ||
		errors.Is(err, ErrNoPasswordProvider) ||
		errors.Is(err, ErrInvalidArgument)
}

// IsSecurity reports whether err indicates tampered or undecryptable data.
func IsSecurity(err error) bool {
	return errors.Is(err, ErrSignatureMismatch) ||
		errors.Is(err, ErrDecryptFailed) ||
		errors.Is(err, ErrInvalidHeader)
}

// Class returns a short human description of the error class of err, or an
// empty string if err belongs to none.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case IsSecurity(err), errors.Is(err, ErrSignatureNotPresent):
		return "integrity check failed"
	case errors.Is(err, ErrInvalidLink):
		return "invalid link"
	case errors.Is(err, ErrCleanupFailed), errors.Is(err, ErrStorageInit), errors.Is(err, ErrStorage),
		errors.Is(err, ErrRepoAlreadyExists), errors.Is(err, ErrRepoNotFound), errors.Is(err, ErrNotFound):
		return "storage error"
	case IsConfiguration(err):
		return "configuration error"
	case IsUsage(err):
		return "usage error"
	case errors.Is(err, ErrAlreadyInitialized), errors.Is(err, ErrNotInitialized):
		return "local state error"
	default:
		return ""
	}
}
