package workflows

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"os"

	"github.com/PolarWolf314/syncany/internal/audit"
	"github.com/PolarWolf314/syncany/internal/configs"
	"github.com/PolarWolf314/syncany/internal/crypto"
	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	"github.com/PolarWolf314/syncany/internal/link"
	"github.com/PolarWolf314/syncany/internal/storage"
	"github.com/PolarWolf314/syncany/internal/transform"
)

// CompressionNone disables the compression stage of a new repository.
const CompressionNone = "none"

// InitOptions configures the init workflow.
type InitOptions struct {
	Environment

	// LocalDir is the folder to initialize. If empty, uses the working directory.
	LocalDir string

	// Connection names the storage plugin and its settings.
	Connection configs.ConnectionTO

	// CreateTarget creates the remote target location if it does not exist.
	CreateTarget bool

	// Encryption enables the cipher and sign stages. Both passwords are
	// required if set.
	Encryption bool

	// CipherSuite is the cipher suite of the cipher stage. If empty, uses
	// the default suite.
	CipherSuite crypto.CipherSuite

	// Compression is the compression stage type: gzip, zstd or none.
	// If empty, uses gzip.
	Compression string

	// EncryptPassword derives the encryption key.
	EncryptPassword string

	// SignPassword derives the signing key.
	SignPassword string
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	// LocalDir is the initialized folder.
	LocalDir string

	// RepoID is the id of the new repository.
	RepoID string

	// Link is the shareable repository link.
	Link string

	// Encrypted indicates whether the repository is encrypted.
	Encrypted bool

	// Transformer describes the transform chain, e.g. "Gzip-Cipher(1,2)-Ed25519Sign".
	Transformer string

	// CreatedDirs lists the local directories that were created.
	CreatedDirs []string
}

// Init creates a new repository on the remote storage and initializes the
// local folder for it.
//
// It derives the master key (if encryption is enabled), writes the local
// configuration, initializes the remote storage, uploads the master and
// repository files, and produces a link other clients can connect with.
//
// Returns ErrAlreadyInitialized if the local folder is already initialized.
// Returns ErrRepoAlreadyExists if the remote storage already holds a repository.
// Returns ErrStorageInit if the remote storage could not be initialized and
// the local folder was rolled back, or ErrCleanupFailed if the rollback
// failed as well.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	log := opts.logger()

	dir, err := resolveAppDir(opts.LocalDir)
	if err != nil {
		return nil, err
	}
	if dir.Exists() {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrAlreadyInitialized, dir.LocalDir)
	}

	tm, err := opts.openStorage(opts.Connection)
	if err != nil {
		return nil, err
	}

	descs, err := repoDescriptors(opts)
	if err != nil {
		return nil, err
	}

	exists, err := storage.Exists(ctx, tm, storage.RepoFileName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, kerrors.ErrRepoAlreadyExists
	}

	var key *crypto.MasterKey
	suite := opts.CipherSuite
	if opts.Encryption {
		if len(suite) == 0 {
			if suite, err = crypto.NewCipherSuite(crypto.DefaultCipherSuiteIDs...); err != nil {
				return nil, err
			}
		}
		if key, err = opts.keys().DeriveMasterKey(ctx, opts.EncryptPassword, opts.SignPassword, nil); err != nil {
			return nil, fmt.Errorf("creating master key: %w", err)
		}
		descs = append(descs, transform.DefaultDescriptors(suite, key)[1:]...)
	}

	chain, err := transform.Build(descs, transform.Keys{MasterKey: key})
	if err != nil {
		return nil, err
	}

	var verifyKey ed25519.PublicKey
	if key != nil {
		verifyKey = key.VerifyKey()
	}
	repo := configs.NewRepoTO(descs, verifyKey)
	repoData, err := encodeRepoFile(repo, suite, key)
	if err != nil {
		return nil, err
	}
	var masterData []byte
	if key != nil {
		if masterData, err = configs.EncodeMasterTO(key.Salt()); err != nil {
			return nil, err
		}
	}

	log.Infof("Creating local repository in %s", dir.Path())
	created, err := dir.Create()
	if err != nil {
		return nil, fmt.Errorf("creating local directories: %w", err)
	}

	cfg := configs.NewConfig(opts.Connection, key)
	if err := writeLocal(dir, cfg, repoData, masterData); err != nil {
		return nil, discardAppDir(dir, err)
	}

	log.Infof("Initializing remote storage")
	if err := tm.Init(ctx, opts.CreateTarget); err != nil {
		return nil, rollback(dir, err)
	}

	log.Infof("Uploading repository files")
	if masterData != nil {
		if err := storage.UploadBytes(ctx, tm, storage.MasterFileName, masterData); err != nil {
			return nil, rollback(dir, err)
		}
	}
	if err := storage.UploadBytes(ctx, tm, storage.RepoFileName, repoData); err != nil {
		if masterData != nil {
			_ = tm.Delete(ctx, storage.MasterFileName)
		}
		return nil, rollback(dir, err)
	}

	shareLink, err := link.Encode(opts.Connection, suite, key)
	if err != nil {
		return nil, fmt.Errorf("generating link: %w", err)
	}

	entry := audit.NewEntry(audit.OpInit, cfg)
	entry.RepoID = repo.RepoID
	entry.Plugin = opts.Connection.Type
	entry.Encrypted = key != nil
	entry.Transformer = chain.String()
	audit.Log(dir, entry)

	return &InitResult{
		LocalDir:    dir.LocalDir,
		RepoID:      repo.RepoID,
		Link:        shareLink,
		Encrypted:   key != nil,
		Transformer: chain.String(),
		CreatedDirs: created,
	}, nil
}

// repoDescriptors validates the compression and encryption options and
// returns the compression stage, if any.
func repoDescriptors(opts InitOptions) ([]transform.Descriptor, error) {
	if opts.Encryption {
		if opts.EncryptPassword == "" || opts.SignPassword == "" {
			return nil, fmt.Errorf("%w: encryption needs an encrypt and a sign password", kerrors.ErrMissingKeyMaterial)
		}
	} else if len(opts.CipherSuite) > 0 {
		return nil, fmt.Errorf("%w: cipher suite given without encryption", kerrors.ErrConflictingInput)
	}

	switch opts.Compression {
	case CompressionNone:
		return nil, nil
	case "":
		return []transform.Descriptor{{Type: transform.TypeGzip}}, nil
	case transform.TypeGzip, transform.TypeZstd:
		return []transform.Descriptor{{Type: opts.Compression}}, nil
	default:
		return nil, fmt.Errorf("%w: %q is not a compression stage", kerrors.ErrUnknownTransformer, opts.Compression)
	}
}

// writeLocalFiles writes config.toml, repo.toml and, for encrypted
// repositories, master.toml.
func writeLocalFiles(dir configs.AppDir, cfg *configs.Config, repoData, masterData []byte) error {
	if err := configs.WriteConfig(dir, cfg); err != nil {
		return err
	}
	if err := os.WriteFile(dir.RepoFile(), repoData, 0600); err != nil {
		return fmt.Errorf("writing repository file: %w", err)
	}
	if masterData != nil {
		if err := os.WriteFile(dir.MasterFile(), masterData, 0600); err != nil {
			return fmt.Errorf("writing master file: %w", err)
		}
	}
	return nil
}

// removeAppDir and writeLocal are replaced in tests.
var (
	removeAppDir = configs.AppDir.Remove
	writeLocal   = writeLocalFiles
)

// discardAppDir removes a half-written application directory and returns
// cause. If the directory cannot be removed, the error is ErrCleanupFailed.
func discardAppDir(dir configs.AppDir, cause error) error {
	if err := removeAppDir(dir); err != nil {
		return cleanupFailed(dir, cause, err)
	}
	return cause
}

// rollback removes the local application directory after a failed init.
func rollback(dir configs.AppDir, cause error) error {
	if err := removeAppDir(dir); err != nil {
		return cleanupFailed(dir, cause, err)
	}
	return fmt.Errorf("%w: %w", kerrors.ErrStorageInit, cause)
}

func cleanupFailed(dir configs.AppDir, cause, err error) error {
	return fmt.Errorf("%w: %w (removing %s: %v)", kerrors.ErrCleanupFailed, cause, dir.Path(), err)
}
