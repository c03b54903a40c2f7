package workflows

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/PolarWolf314/syncany/internal/audit"
	"github.com/PolarWolf314/syncany/internal/configs"
	"github.com/PolarWolf314/syncany/internal/crypto"
	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	"github.com/PolarWolf314/syncany/internal/link"
	"github.com/PolarWolf314/syncany/internal/storage"
)

// ConnectOptions configures the connect workflow. Exactly one of Link and
// Connection must be set.
type ConnectOptions struct {
	Environment

	// LocalDir is the folder to initialize. If empty, uses the working directory.
	LocalDir string

	// Link is a repository link, as produced by Init or GenLink.
	Link string

	// Connection names the storage plugin and its settings.
	Connection *configs.ConnectionTO

	// Passwords supplies the repository passwords if the link or the
	// repository is encrypted.
	Passwords link.PasswordProvider
}

// ConnectResult contains the outcome of a connect operation.
type ConnectResult struct {
	// LocalDir is the initialized folder.
	LocalDir string

	// RepoID is the id of the connected repository.
	RepoID string

	// Plugin is the storage plugin id.
	Plugin string

	// Encrypted indicates whether the repository is encrypted.
	Encrypted bool

	// WriteAccess indicates whether the signing key matches the
	// repository's verify key. Unencrypted repositories are always writable.
	WriteAccess bool
}

// Connect initializes the local folder for an existing repository.
//
// The connection comes from a link or from explicit settings. The remote
// repository file is downloaded and verified; nothing is created remotely.
// A sign password that does not match the repository still connects, but
// with read-only access.
//
// Returns ErrConflictingInput if both a link and a connection are given.
// Returns ErrAlreadyInitialized if the local folder is already initialized.
// Returns ErrInvalidLink if the link is malformed or the password is wrong.
// Returns ErrRepoNotFound if the remote storage holds no repository.
func Connect(ctx context.Context, opts ConnectOptions) (*ConnectResult, error) {
	log := opts.logger()

	if opts.Link != "" && opts.Connection != nil {
		return nil, fmt.Errorf("%w: link and connection settings given together", kerrors.ErrConflictingInput)
	}
	if opts.Link == "" && opts.Connection == nil {
		return nil, fmt.Errorf("%w: link or connection settings", kerrors.ErrMissingSetting)
	}

	dir, err := resolveAppDir(opts.LocalDir)
	if err != nil {
		return nil, err
	}
	if dir.Exists() {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrAlreadyInitialized, dir.LocalDir)
	}

	var conn configs.ConnectionTO
	var key *crypto.MasterKey
	if opts.Link != "" {
		codec := link.Codec{Keys: opts.keys(), Plugins: opts.plugins()}
		result, err := codec.Decode(ctx, opts.Link, opts.Passwords)
		if err != nil {
			return nil, err
		}
		conn, key = result.Connection, result.MasterKey
	} else {
		conn = *opts.Connection
	}

	tm, err := opts.openStorage(conn)
	if err != nil {
		return nil, err
	}
	if err := tm.Init(ctx, false); err != nil {
		return nil, err
	}

	log.Infof("Downloading repository file")
	repoData, err := storage.DownloadBytes(ctx, tm, storage.RepoFileName)
	if storage.IsNotFound(err) {
		return nil, kerrors.ErrRepoNotFound
	}
	if err != nil {
		return nil, err
	}

	masterData, err := storage.DownloadBytes(ctx, tm, storage.MasterFileName)
	switch {
	case storage.IsNotFound(err):
		masterData = nil
	case err != nil:
		return nil, err
	case key == nil:
		if key, err = deriveFromMasterFile(ctx, opts, masterData); err != nil {
			return nil, err
		}
	}

	repo, verifyKey, err := verifyRepoFile(repoData, key)
	if err != nil {
		if key != nil && masterData != nil && opts.Link == "" && kerrors.IsSecurity(err) {
			return nil, fmt.Errorf("cannot read repository file, wrong password?: %w", err)
		}
		return nil, err
	}
	if repo.Encrypted() && key == nil {
		return nil, fmt.Errorf("%w: repository is encrypted but has no master file", kerrors.ErrInvalidConfig)
	}

	writeAccess := hasWriteAccess(repo, key, verifyKey)
	if !writeAccess && key != nil {
		if key.HasWriteAccess() {
			log.Warnf("The sign password does not match this repository, connecting read-only")
		} else {
			log.Infof("No sign password given, connecting read-only")
		}
		key = key.ReadOnly()
	}

	if masterData == nil && key != nil {
		if masterData, err = configs.EncodeMasterTO(key.Salt()); err != nil {
			return nil, err
		}
	}

	log.Infof("Creating local repository in %s", dir.Path())
	if _, err := dir.Create(); err != nil {
		return nil, fmt.Errorf("creating local directories: %w", err)
	}
	cfg := configs.NewConfig(conn, key)
	if err := writeLocal(dir, cfg, repoData, masterData); err != nil {
		return nil, discardAppDir(dir, err)
	}

	entry := audit.NewEntry(audit.OpConnect, cfg)
	entry.RepoID = repo.RepoID
	entry.Plugin = conn.Type
	entry.Encrypted = key != nil
	entry.ReadOnly = !writeAccess
	audit.Log(dir, entry)

	return &ConnectResult{
		LocalDir:    dir.LocalDir,
		RepoID:      repo.RepoID,
		Plugin:      conn.Type,
		Encrypted:   key != nil,
		WriteAccess: writeAccess,
	}, nil
}

func deriveFromMasterFile(ctx context.Context, opts ConnectOptions, masterData []byte) (*crypto.MasterKey, error) {
	salt, err := configs.DecodeMasterTO(masterData)
	if err != nil {
		return nil, err
	}
	if opts.Passwords == nil {
		return nil, kerrors.ErrNoPasswordProvider
	}
	pw, err := opts.Passwords.Passwords(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading passwords: %w", err)
	}
	return opts.keys().DeriveMasterKey(ctx, pw.Encrypt, pw.Sign, salt)
}

func hasWriteAccess(repo *configs.RepoTO, key *crypto.MasterKey, verifyKey ed25519.PublicKey) bool {
	if !repo.Encrypted() && verifyKey == nil {
		return true
	}
	if key == nil || !key.HasWriteAccess() || verifyKey == nil {
		return false
	}
	return bytes.Equal(key.VerifyKey(), verifyKey)
}
