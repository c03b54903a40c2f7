package configs

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/google/uuid"

	"github.com/PolarWolf314/syncany/internal/crypto"
	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	"github.com/PolarWolf314/syncany/internal/utils"
)

// DefaultCacheKeepBytes is the default local cache size (500 MB).
const DefaultCacheKeepBytes = 500 * 1024 * 1024

// localKeySize is the size of the random key in local.key.
const localKeySize = 32

// ConfigTO is the persisted form of config.toml.
type ConfigTO struct {
	MachineName         string        `toml:"machine_name"`
	DisplayName         string        `toml:"display_name"`
	MasterKey           *MasterKeyTO  `toml:"master_key,omitempty"`
	Connection          *ConnectionTO `toml:"connection,omitempty"`
	EncryptedConnection string        `toml:"encrypted_connection,omitempty"`
	CacheKeepBytes      int64         `toml:"cache_keep_bytes"`
}

// MasterKeyTO holds the master key salt and the key material wrapped
// under the machine's local key.
type MasterKeyTO struct {
	Salt string `toml:"salt"`
	Key  string `toml:"key"`
}

// ConnectionTO names a storage plugin and its settings.
type ConnectionTO struct {
	Type     string            `toml:"type"`
	Settings map[string]string `toml:"settings"`
}

// Config is the in-memory form of config.toml, with the master key and
// connection unwrapped.
type Config struct {
	MachineName    string
	DisplayName    string
	MasterKey      *crypto.MasterKey
	Connection     ConnectionTO
	CacheKeepBytes int64
}

// NewConfig returns a config for this machine.
func NewConfig(conn ConnectionTO, key *crypto.MasterKey) *Config {
	displayName, err := utils.GetUsername()
	if err != nil || displayName == "" {
		displayName = "user"
	}

	return &Config{
		MachineName:    GenerateMachineName(),
		DisplayName:    displayName,
		MasterKey:      key,
		Connection:     conn,
		CacheKeepBytes: DefaultCacheKeepBytes,
	}
}

// GenerateMachineName returns a machine name made of the sanitized host
// name and a random suffix.
func GenerateMachineName() string {
	hostname, err := utils.GetHostname()
	if err != nil {
		hostname = ""
	}
	return utils.SanitizeName(hostname) + "-" + uuid.New().String()[:8]
}

// GenerateRepoID generates a new repository id.
func GenerateRepoID() string {
	return uuid.New().String()
}

// WriteConfig saves cfg to config.toml. If cfg has a master key, the key is
// wrapped under local.key (created if missing) and the connection is
// encrypted under the master key.
func WriteConfig(dir AppDir, cfg *Config) error {
	to := ConfigTO{
		MachineName:    cfg.MachineName,
		DisplayName:    cfg.DisplayName,
		CacheKeepBytes: cfg.CacheKeepBytes,
	}

	if cfg.MasterKey == nil {
		conn := cfg.Connection
		to.Connection = &conn
	} else {
		localKey, err := ensureLocalKey(dir)
		if err != nil {
			return err
		}

		wrapped, err := WrapMasterKey(cfg.MasterKey, localKey)
		if err != nil {
			return fmt.Errorf("failed to wrap master key: %w", err)
		}
		to.MasterKey = &MasterKeyTO{
			Salt: base64.StdEncoding.EncodeToString(cfg.MasterKey.Salt()),
			Key:  base64.StdEncoding.EncodeToString(wrapped),
		}

		encrypted, err := EncryptConnection(cfg.Connection, cfg.MasterKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt connection: %w", err)
		}
		to.EncryptedConnection = encrypted
	}

	if err := SaveTOML(dir.ConfigFile(), to); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// ReadConfig loads config.toml and unwraps its master key and connection.
func ReadConfig(dir AppDir) (*Config, error) {
	var to ConfigTO
	if err := LoadTOML(dir.ConfigFile(), &to); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrNotInitialized, dir.LocalDir)
		}
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidConfig, dir.ConfigFile(), err)
	}

	cfg := &Config{
		MachineName:    to.MachineName,
		DisplayName:    to.DisplayName,
		CacheKeepBytes: to.CacheKeepBytes,
	}

	if to.MasterKey != nil {
		localKey, err := os.ReadFile(dir.LocalKeyFile())
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read %s: %v", kerrors.ErrMissingKeyMaterial, dir.LocalKeyFile(), err)
		}
		salt, err := base64.StdEncoding.DecodeString(to.MasterKey.Salt)
		if err != nil {
			return nil, fmt.Errorf("%w: master key salt: %v", kerrors.ErrInvalidConfig, err)
		}
		wrapped, err := base64.StdEncoding.DecodeString(to.MasterKey.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: master key: %v", kerrors.ErrInvalidConfig, err)
		}
		if cfg.MasterKey, err = UnwrapMasterKey(wrapped, salt, localKey); err != nil {
			return nil, err
		}
	}

	switch {
	case to.EncryptedConnection != "":
		if cfg.MasterKey == nil {
			return nil, fmt.Errorf("%w: encrypted connection without master key", kerrors.ErrInvalidConfig)
		}
		conn, err := DecryptConnection(to.EncryptedConnection, cfg.MasterKey)
		if err != nil {
			return nil, err
		}
		cfg.Connection = *conn
	case to.Connection != nil:
		cfg.Connection = *to.Connection
	default:
		return nil, fmt.Errorf("%w: no connection configured", kerrors.ErrInvalidConfig)
	}

	return cfg, nil
}

// EncryptConnection serializes conn and encrypts it under key with the
// default cipher suite.
func EncryptConnection(conn ConnectionTO, key *crypto.MasterKey) (string, error) {
	plain, err := EncodeTOML(conn)
	if err != nil {
		return "", err
	}
	suite, err := crypto.NewCipherSuite(crypto.DefaultCipherSuiteIDs...)
	if err != nil {
		return "", err
	}
	ciphertext, err := crypto.Encrypt(plain, suite, key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptConnection reverses EncryptConnection.
func DecryptConnection(encoded string, key *crypto.MasterKey) (*ConnectionTO, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypted connection: %v", kerrors.ErrInvalidConfig, err)
	}
	plain, err := crypto.Decrypt(ciphertext, key)
	if err != nil {
		return nil, err
	}

	var conn ConnectionTO
	if err := DecodeTOML(plain, &conn); err != nil {
		return nil, fmt.Errorf("%w: connection: %v", kerrors.ErrInvalidConfig, err)
	}
	return &conn, nil
}

// WrapMasterKey encrypts the master key material (encrypt key, then the
// signing seed if any) under a local key with AES-256-GCM.
func WrapMasterKey(key *crypto.MasterKey, localKey []byte) ([]byte, error) {
	wrapKey, err := crypto.NewMasterKey(localKey, nil, nil)
	if err != nil {
		return nil, err
	}
	suite, err := crypto.NewCipherSuite(crypto.CipherSpecAES256GCM)
	if err != nil {
		return nil, err
	}

	material := key.EncryptKey()
	if signing := key.SigningKey(); signing != nil {
		material = append(material, signing.Seed()...)
	}
	return crypto.Encrypt(material, suite, wrapKey)
}

// UnwrapMasterKey reverses WrapMasterKey.
func UnwrapMasterKey(wrapped, salt, localKey []byte) (*crypto.MasterKey, error) {
	wrapKey, err := crypto.NewMasterKey(localKey, nil, nil)
	if err != nil {
		return nil, err
	}
	material, err := crypto.Decrypt(wrapped, wrapKey)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap master key: %w", err)
	}

	switch len(material) {
	case crypto.EncryptKeySize:
		return crypto.NewMasterKey(material, nil, salt)
	case crypto.EncryptKeySize + ed25519.SeedSize:
		signing := ed25519.NewKeyFromSeed(material[crypto.EncryptKeySize:])
		return crypto.NewMasterKey(material[:crypto.EncryptKeySize], signing, salt)
	default:
		return nil, fmt.Errorf("%w: wrapped master key has %d bytes", kerrors.ErrInvalidConfig, len(material))
	}
}

func ensureLocalKey(dir AppDir) ([]byte, error) {
	key, err := os.ReadFile(dir.LocalKeyFile())
	if err == nil {
		if len(key) != localKeySize {
			return nil, fmt.Errorf("%w: %s has %d bytes", kerrors.ErrInvalidConfig, dir.LocalKeyFile(), len(key))
		}
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read local key: %w", err)
	}

	key = make([]byte, localKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate local key: %w", err)
	}
	if err := os.MkdirAll(dir.Path(), 0700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(dir.LocalKeyFile(), key, 0600); err != nil {
		return nil, fmt.Errorf("failed to write local key: %w", err)
	}
	return key, nil
}
