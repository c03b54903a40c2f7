package workflows

import (
	"crypto/ed25519"
	"fmt"

	"github.com/PolarWolf314/syncany/internal/configs"
	"github.com/PolarWolf314/syncany/internal/crypto"
	logger "github.com/PolarWolf314/syncany/internal/logging"
	"github.com/PolarWolf314/syncany/internal/storage"
	"github.com/PolarWolf314/syncany/internal/transform"
	"github.com/PolarWolf314/syncany/internal/utils"
)

// Environment holds the collaborators shared by all workflows. The zero
// value uses the default key derivation parameters, the built-in storage
// plugins and a silent logger.
type Environment struct {
	// Keys derives master keys from passwords.
	Keys *crypto.KeyService

	// Plugins resolves storage plugin ids.
	Plugins *storage.Registry

	// Logger receives progress and warnings.
	Logger *logger.Logger
}

func (e Environment) keys() *crypto.KeyService {
	if e.Keys != nil {
		return e.Keys
	}
	return crypto.NewKeyService(e.logger().Notify)
}

func (e Environment) plugins() *storage.Registry {
	if e.Plugins != nil {
		return e.Plugins
	}
	return storage.DefaultRegistry()
}

func (e Environment) logger() logger.Logger {
	if e.Logger != nil {
		return *e.Logger
	}
	return logger.Discard()
}

// openStorage resolves conn to a transfer manager. Missing settings and
// unknown plugins are reported here, before any I/O.
func (e Environment) openStorage(conn configs.ConnectionTO) (storage.TransferManager, error) {
	plugin, err := e.plugins().Get(conn.Type)
	if err != nil {
		return nil, err
	}
	return plugin.Open(conn.Settings)
}

// resolveAppDir returns the application directory below localDir, or below
// the working directory if localDir is empty.
func resolveAppDir(localDir string) (configs.AppDir, error) {
	dir, err := utils.ResolveDir(localDir)
	if err != nil {
		return configs.AppDir{}, err
	}
	return configs.NewAppDir(dir)
}

// The repository file of an encrypted repository is encrypted and signed
// with the same stages as regular files, without compression.
func metadataChain(suite crypto.CipherSuite, keys transform.Keys) (*transform.Chain, error) {
	if len(suite) == 0 {
		var err error
		if suite, err = crypto.NewCipherSuite(crypto.DefaultCipherSuiteIDs...); err != nil {
			return nil, err
		}
	}
	return transform.Build([]transform.Descriptor{
		{Type: transform.TypeCipher, Settings: map[string]string{transform.SettingCipherSpecs: suite.String()}},
		{Type: transform.TypeSign},
	}, keys)
}

// encodeRepoFile serializes repo, encrypting and signing it if key is set.
func encodeRepoFile(repo *configs.RepoTO, suite crypto.CipherSuite, key *crypto.MasterKey) ([]byte, error) {
	plain, err := configs.EncodeTOML(repo)
	if err != nil {
		return nil, fmt.Errorf("serializing repository file: %w", err)
	}
	if key == nil {
		return plain, nil
	}

	chain, err := metadataChain(suite, transform.Keys{MasterKey: key})
	if err != nil {
		return nil, err
	}
	return chain.EncodeBytes(plain)
}

// decodeRepoFile reverses encodeRepoFile. The signature is only checked if
// verifyKey is set; the signing half of key is never used.
func decodeRepoFile(data []byte, key *crypto.MasterKey, verifyKey ed25519.PublicKey) (*configs.RepoTO, error) {
	if key == nil {
		return configs.DecodeRepoTO(data)
	}

	chain, err := metadataChain(nil, transform.Keys{MasterKey: key.ReadOnly(), VerifyKey: verifyKey})
	if err != nil {
		return nil, err
	}
	plain, err := chain.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("decoding repository file: %w", err)
	}
	return configs.DecodeRepoTO(plain)
}

// verifyRepoFile decodes data without a verify key, then checks the
// signature against the verify key the repository file itself declares.
func verifyRepoFile(data []byte, key *crypto.MasterKey) (*configs.RepoTO, ed25519.PublicKey, error) {
	repo, err := decodeRepoFile(data, key, nil)
	if err != nil {
		return nil, nil, err
	}
	verifyKey, err := repo.VerifyKeyBytes()
	if err != nil {
		return nil, nil, err
	}
	if key != nil && verifyKey != nil {
		if _, err := decodeRepoFile(data, key, verifyKey); err != nil {
			return nil, nil, err
		}
	}
	return repo, verifyKey, nil
}

// repoCipherSuite returns the suite of the first cipher stage, or nil.
func repoCipherSuite(repo *configs.RepoTO) (crypto.CipherSuite, error) {
	for _, desc := range repo.Transformers {
		if desc.Type == transform.TypeCipher {
			return crypto.ParseCipherSuite(desc.Settings[transform.SettingCipherSpecs])
		}
	}
	return nil, nil
}
