package configs

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	"github.com/PolarWolf314/syncany/internal/transform"
)

// Default chunking configuration of new repositories.
const (
	DefaultChunkerType      = "fixed"
	DefaultChunkSize        = "32768"
	DefaultMultiChunkerType = "zip"
	DefaultMultiChunkSize   = "4096"
)

// RepoTO is the repository file shared by all clients of a repository.
type RepoTO struct {
	RepoID       string                 `toml:"repo_id"`
	Chunker      TypedSettingsTO        `toml:"chunker"`
	MultiChunker TypedSettingsTO        `toml:"multichunker"`
	Transformers []transform.Descriptor `toml:"transformers"`
	VerifyKey    string                 `toml:"verify_key,omitempty"`
}

// TypedSettingsTO names a component type and its settings.
type TypedSettingsTO struct {
	Type     string            `toml:"type"`
	Settings map[string]string `toml:"settings"`
}

// MasterTO is the master file. It holds only the key derivation salt.
type MasterTO struct {
	Salt string `toml:"salt"`
}

// NewRepoTO returns a repository file with a fresh id and the default
// chunking configuration.
func NewRepoTO(transformers []transform.Descriptor, verifyKey ed25519.PublicKey) *RepoTO {
	repo := &RepoTO{
		RepoID: GenerateRepoID(),
		Chunker: TypedSettingsTO{
			Type:     DefaultChunkerType,
			Settings: map[string]string{"size": DefaultChunkSize},
		},
		MultiChunker: TypedSettingsTO{
			Type:     DefaultMultiChunkerType,
			Settings: map[string]string{"size": DefaultMultiChunkSize},
		},
		Transformers: transformers,
	}
	if verifyKey != nil {
		repo.VerifyKey = base64.StdEncoding.EncodeToString(verifyKey)
	}
	return repo
}

// VerifyKeyBytes decodes the verify key. It returns nil if none is set.
func (r *RepoTO) VerifyKeyBytes() (ed25519.PublicKey, error) {
	if r.VerifyKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(r.VerifyKey)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: verify key is not a base64 Ed25519 public key", kerrors.ErrInvalidConfig)
	}
	return key, nil
}

// Encrypted reports whether the repository uses a cipher stage.
func (r *RepoTO) Encrypted() bool {
	for _, desc := range r.Transformers {
		if desc.Type == transform.TypeCipher {
			return true
		}
	}
	return false
}

// DecodeRepoTO parses a plaintext repository file.
func DecodeRepoTO(data []byte) (*RepoTO, error) {
	var repo RepoTO
	if err := DecodeTOML(data, &repo); err != nil {
		return nil, fmt.Errorf("%w: repository file: %v", kerrors.ErrInvalidConfig, err)
	}
	if repo.RepoID == "" {
		return nil, fmt.Errorf("%w: repository file has no repo_id", kerrors.ErrInvalidConfig)
	}
	return &repo, nil
}

// EncodeMasterTO serializes a master file.
func EncodeMasterTO(salt []byte) ([]byte, error) {
	return EncodeTOML(MasterTO{Salt: base64.StdEncoding.EncodeToString(salt)})
}

// DecodeMasterTO parses a master file and returns the salt.
func DecodeMasterTO(data []byte) ([]byte, error) {
	var master MasterTO
	if err := DecodeTOML(data, &master); err != nil {
		return nil, fmt.Errorf("%w: master file: %v", kerrors.ErrInvalidConfig, err)
	}
	salt, err := base64.StdEncoding.DecodeString(master.Salt)
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("%w: master file has no valid salt", kerrors.ErrInvalidConfig)
	}
	return salt, nil
}
