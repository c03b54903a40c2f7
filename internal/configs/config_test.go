package configs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PolarWolf314/syncany/internal/crypto"
	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	"github.com/PolarWolf314/syncany/internal/transform"
)

func testMasterKey(t *testing.T, signPassword string) *crypto.MasterKey {
	t.Helper()
	service := &crypto.KeyService{Params: crypto.KDFParams{N: 1 << 10, R: 8, P: 1}}
	key, err := service.DeriveMasterKey(context.Background(), "pw1", signPassword, nil)
	if err != nil {
		t.Fatalf("Failed to derive master key: %v", err)
	}
	return key
}

func newTestAppDir(t *testing.T) AppDir {
	t.Helper()
	dir, err := NewAppDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewAppDir failed: %v", err)
	}
	return dir
}

func TestGenerateRepoID(t *testing.T) {
	id := GenerateRepoID()
	if len(id) != 36 {
		t.Fatalf("Expected UUID length 36, got %d", len(id))
	}
	if id == GenerateRepoID() {
		t.Error("Expected unique repo ids")
	}
}

func TestGenerateMachineName(t *testing.T) {
	name := GenerateMachineName()
	if name == "" || !strings.Contains(name, "-") {
		t.Fatalf("Expected '<host>-<suffix>' machine name, got %q", name)
	}
	if name == GenerateMachineName() {
		t.Error("Expected unique machine names")
	}
}

func TestAppDirCreateAndRemove(t *testing.T) {
	dir := newTestAppDir(t)

	created, err := dir.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(created) != 5 {
		t.Errorf("Expected 5 created directories, got %v", created)
	}
	for _, sub := range []string{dir.CacheDir(), dir.DatabaseDir(), dir.LogDir(), dir.StateDir()} {
		if info, err := os.Stat(sub); err != nil || !info.IsDir() {
			t.Errorf("Expected directory %s", sub)
		}
	}

	created, err = dir.Create()
	if err != nil || len(created) != 0 {
		t.Errorf("Expected second Create to create nothing, got %v, %v", created, err)
	}

	if err := dir.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(dir.Path()); !os.IsNotExist(err) {
		t.Error("Expected application directory to be removed")
	}
}

func TestFindAppDir(t *testing.T) {
	dir := newTestAppDir(t)
	if _, err := dir.Create(); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	nested := filepath.Join(dir.LocalDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	found, err := FindAppDir(nested)
	if err != nil {
		t.Fatalf("FindAppDir failed: %v", err)
	}
	if found.LocalDir != dir.LocalDir {
		t.Errorf("Expected %s, got %s", dir.LocalDir, found.LocalDir)
	}

	if _, err := FindAppDir(t.TempDir()); !errors.Is(err, kerrors.ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestWriteReadConfigPlain(t *testing.T) {
	dir := newTestAppDir(t)
	conn := ConnectionTO{Type: "local", Settings: map[string]string{"path": "/srv/repo"}}

	cfg := NewConfig(conn, nil)
	if err := WriteConfig(dir, cfg); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	content, err := os.ReadFile(dir.ConfigFile())
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	if !strings.Contains(string(content), "/srv/repo") {
		t.Error("Expected plain connection in config.toml")
	}
	if _, err := os.Stat(dir.LocalKeyFile()); !os.IsNotExist(err) {
		t.Error("Expected no local key without a master key")
	}

	loaded, err := ReadConfig(dir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if loaded.MachineName != cfg.MachineName || loaded.DisplayName != cfg.DisplayName {
		t.Errorf("Expected names %q/%q, got %q/%q", cfg.MachineName, cfg.DisplayName, loaded.MachineName, loaded.DisplayName)
	}
	if loaded.Connection.Type != "local" || loaded.Connection.Settings["path"] != "/srv/repo" {
		t.Errorf("Expected connection %v, got %v", conn, loaded.Connection)
	}
	if loaded.MasterKey != nil {
		t.Error("Expected no master key")
	}
	if loaded.CacheKeepBytes != DefaultCacheKeepBytes {
		t.Errorf("Expected cache keep bytes %d, got %d", DefaultCacheKeepBytes, loaded.CacheKeepBytes)
	}
}

func TestWriteReadConfigEncrypted(t *testing.T) {
	for _, signPassword := range []string{"pw2", ""} {
		t.Run("sign="+signPassword, func(t *testing.T) {
			dir := newTestAppDir(t)
			key := testMasterKey(t, signPassword)
			conn := ConnectionTO{Type: "local", Settings: map[string]string{"path": "/srv/secret-repo"}}

			if err := WriteConfig(dir, NewConfig(conn, key)); err != nil {
				t.Fatalf("WriteConfig failed: %v", err)
			}

			content, err := os.ReadFile(dir.ConfigFile())
			if err != nil {
				t.Fatalf("Failed to read config: %v", err)
			}
			if strings.Contains(string(content), "secret-repo") {
				t.Error("Expected connection to be encrypted in config.toml")
			}
			if bytes.Contains(content, key.EncryptKey()) {
				t.Error("Expected master key not to be stored in the clear")
			}

			info, err := os.Stat(dir.LocalKeyFile())
			if err != nil {
				t.Fatalf("Expected local key to be created: %v", err)
			}
			if info.Mode().Perm() != 0600 {
				t.Errorf("Expected local key permissions 0600, got %v", info.Mode().Perm())
			}

			loaded, err := ReadConfig(dir)
			if err != nil {
				t.Fatalf("ReadConfig failed: %v", err)
			}
			if !loaded.MasterKey.Equal(key) {
				t.Error("Expected unwrapped master key to equal the original")
			}
			if loaded.Connection.Settings["path"] != "/srv/secret-repo" {
				t.Errorf("Expected decrypted connection, got %v", loaded.Connection)
			}
		})
	}
}

func TestReadConfigErrors(t *testing.T) {
	dir := newTestAppDir(t)

	if _, err := ReadConfig(dir); !errors.Is(err, kerrors.ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}

	if err := os.MkdirAll(dir.Path(), 0700); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(dir.ConfigFile(), []byte("machine_name = "), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := ReadConfig(dir); !errors.Is(err, kerrors.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for malformed file, got %v", err)
	}

	if err := os.WriteFile(dir.ConfigFile(), []byte("machine_name = \"m\"\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := ReadConfig(dir); !errors.Is(err, kerrors.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig without connection, got %v", err)
	}
}

func TestReadConfigWithWrongLocalKey(t *testing.T) {
	dir := newTestAppDir(t)
	key := testMasterKey(t, "pw2")
	conn := ConnectionTO{Type: "local", Settings: map[string]string{"path": "/srv/repo"}}

	if err := WriteConfig(dir, NewConfig(conn, key)); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}
	if err := os.WriteFile(dir.LocalKeyFile(), bytes.Repeat([]byte{1}, 32), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := ReadConfig(dir); !errors.Is(err, kerrors.ErrDecryptFailed) {
		t.Errorf("Expected ErrDecryptFailed, got %v", err)
	}
}

func TestRepoTO(t *testing.T) {
	key := testMasterKey(t, "pw2")
	suite, _ := crypto.NewCipherSuite(crypto.DefaultCipherSuiteIDs...)
	repo := NewRepoTO(transform.DefaultDescriptors(suite, key), key.VerifyKey())

	if !repo.Encrypted() {
		t.Error("Expected repository with cipher stage to be encrypted")
	}

	data, err := EncodeTOML(repo)
	if err != nil {
		t.Fatalf("EncodeTOML failed: %v", err)
	}
	decoded, err := DecodeRepoTO(data)
	if err != nil {
		t.Fatalf("DecodeRepoTO failed: %v", err)
	}
	if decoded.RepoID != repo.RepoID {
		t.Errorf("Expected repo id %s, got %s", repo.RepoID, decoded.RepoID)
	}
	if len(decoded.Transformers) != 3 || decoded.Transformers[1].Settings[transform.SettingCipherSpecs] != "1,2" {
		t.Errorf("Expected transformers to survive, got %v", decoded.Transformers)
	}
	if decoded.Chunker.Type != DefaultChunkerType || decoded.MultiChunker.Settings["size"] != DefaultMultiChunkSize {
		t.Errorf("Expected default chunking, got %v / %v", decoded.Chunker, decoded.MultiChunker)
	}

	verifyKey, err := decoded.VerifyKeyBytes()
	if err != nil {
		t.Fatalf("VerifyKeyBytes failed: %v", err)
	}
	if !bytes.Equal(verifyKey, key.VerifyKey()) {
		t.Error("Expected verify key to survive")
	}

	if _, err := DecodeRepoTO([]byte("chunker = 1")); !errors.Is(err, kerrors.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}

	plain := NewRepoTO(transform.DefaultDescriptors(nil, nil), nil)
	if plain.Encrypted() {
		t.Error("Expected repository without cipher stage to be unencrypted")
	}
	if vk, err := plain.VerifyKeyBytes(); vk != nil || err != nil {
		t.Errorf("Expected no verify key, got %v, %v", vk, err)
	}
}

func TestMasterTO(t *testing.T) {
	salt := bytes.Repeat([]byte{9}, crypto.SaltSize)

	data, err := EncodeMasterTO(salt)
	if err != nil {
		t.Fatalf("EncodeMasterTO failed: %v", err)
	}
	decoded, err := DecodeMasterTO(data)
	if err != nil {
		t.Fatalf("DecodeMasterTO failed: %v", err)
	}
	if !bytes.Equal(decoded, salt) {
		t.Error("Expected salt to survive")
	}

	if _, err := DecodeMasterTO([]byte("salt = \"\"")); !errors.Is(err, kerrors.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for empty salt, got %v", err)
	}
}
