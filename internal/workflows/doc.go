// Package workflows provides high-level orchestration for syncany commands.
//
// Workflows coordinate multiple operations across packages (configs, crypto,
// transform, storage, link, audit) to implement complete user-facing
// features. Each workflow handles a single command's business logic,
// independent of CLI concerns like flag parsing, prompts, and spinners.
//
// # Available Workflows
//
//   - Init: Creates a repository on the remote storage and initializes the local folder
//   - Connect: Initializes the local folder for an existing repository
//   - GenLink: Produces a shareable link for the repository of a local folder
//   - Encode: Runs a stream through the repository's transform chain
//   - Decode: Reverses Encode and verifies the stream
//
// # Repository Files
//
// Init uploads two files. The master file holds the key derivation salt
// and is only present for encrypted repositories. The repository file lists
// the transform chain and the verify key; for encrypted repositories it is
// itself encrypted and signed. Both are also kept in the local .syncany
// directory.
//
// # Rollback
//
// If the remote storage cannot be initialized or the repository files
// cannot be uploaded, Init removes the local .syncany directory again and
// returns ErrStorageInit. If that removal fails, it returns
// ErrCleanupFailed and the directory must be removed manually.
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	result, err := workflows.Connect(ctx, opts)
//	if errors.Is(err, kerrors.ErrInvalidLink) {
//	    // Wrong password or corrupt link
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// Key derivation and storage operations stop when it is cancelled.
package workflows
