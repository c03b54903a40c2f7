package link

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/PolarWolf314/syncany/internal/configs"
	"github.com/PolarWolf314/syncany/internal/crypto"
	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	"github.com/PolarWolf314/syncany/internal/storage"
)

var testParams = crypto.KDFParams{N: 1 << 10, R: 8, P: 1}

func testCodec() *Codec {
	return &Codec{Keys: &crypto.KeyService{Params: testParams}, Plugins: storage.DefaultRegistry()}
}

func testConnection() configs.ConnectionTO {
	return configs.ConnectionTO{Type: "local", Settings: map[string]string{"path": "/srv/repo"}}
}

func deriveKey(t *testing.T, encryptPassword, signPassword string) *crypto.MasterKey {
	t.Helper()
	key, err := (&crypto.KeyService{Params: testParams}).DeriveMasterKey(context.Background(), encryptPassword, signPassword, nil)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	return key
}

// countingProvider records how often passwords were requested.
type countingProvider struct {
	pw    Passwords
	calls int
}

func (p *countingProvider) Passwords(context.Context) (Passwords, error) {
	p.calls++
	return p.pw, nil
}

func TestEncodeDecodeUnencrypted(t *testing.T) {
	s, err := Encode(testConnection(), nil, nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.HasPrefix(s, Prefix+"not-encrypted/") {
		t.Fatalf("Expected unencrypted link, got %s", s)
	}

	provider := &countingProvider{}
	result, err := testCodec().Decode(context.Background(), s, provider)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if result.Encrypted || result.MasterKey != nil {
		t.Error("Expected unencrypted result without master key")
	}
	if result.Connection.Type != "local" || result.Connection.Settings["path"] != "/srv/repo" {
		t.Errorf("Expected original connection, got %v", result.Connection)
	}
	if provider.calls != 0 {
		t.Errorf("Expected no password request, got %d", provider.calls)
	}
}

func TestEncodeDecodeEncrypted(t *testing.T) {
	key := deriveKey(t, "pw1", "pw2")
	suite, _ := crypto.NewCipherSuite(crypto.DefaultCipherSuiteIDs...)

	s, err := Encode(testConnection(), suite, key)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.Contains(s, "not-encrypted") || strings.Contains(s, "srv") {
		t.Fatalf("Expected encrypted link, got %s", s)
	}

	l, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !l.Encrypted || string(l.Salt) != string(key.Salt()) {
		t.Error("Expected link to carry the master key salt")
	}

	result, err := testCodec().Decode(context.Background(), s, StaticPasswords{Encrypt: "pw1", Sign: "pw2"})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !result.Encrypted {
		t.Error("Expected encrypted result")
	}
	if !result.MasterKey.Equal(key) {
		t.Error("Expected the same master key to be derived")
	}
	if result.Connection.Settings["path"] != "/srv/repo" {
		t.Errorf("Expected original connection, got %v", result.Connection)
	}
}

func TestDecodeWithWrongSignPassword(t *testing.T) {
	key := deriveKey(t, "pw1", "pw2")
	s, err := Encode(testConnection(), nil, key)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	result, err := testCodec().Decode(context.Background(), s, StaticPasswords{Encrypt: "pw1", Sign: "wrong"})
	if err != nil {
		t.Fatalf("Expected decode to succeed with wrong sign password, got %v", err)
	}
	if string(result.MasterKey.VerifyKey()) == string(key.VerifyKey()) {
		t.Error("Expected a different verify key for a wrong sign password")
	}
}

func TestDecodeWithWrongPassword(t *testing.T) {
	key := deriveKey(t, "pw1", "pw2")
	s, err := Encode(testConnection(), nil, key)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	_, err = testCodec().Decode(context.Background(), s, StaticPasswords{Encrypt: "wrong", Sign: "pw2"})
	if !errors.Is(err, kerrors.ErrInvalidLink) {
		t.Errorf("Expected ErrInvalidLink, got %v", err)
	}
	if errors.Is(err, kerrors.ErrDecryptFailed) {
		t.Error("Expected decryption details to be hidden")
	}
}

func TestDecodeWithoutProvider(t *testing.T) {
	s, err := Encode(testConnection(), nil, deriveKey(t, "pw1", ""))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if _, err := testCodec().Decode(context.Background(), s, nil); !errors.Is(err, kerrors.ErrNoPasswordProvider) {
		t.Errorf("Expected ErrNoPasswordProvider, got %v", err)
	}
}

func TestDecodeUnknownPlugin(t *testing.T) {
	conn := configs.ConnectionTO{Type: "ftp", Settings: map[string]string{"host": "example.com"}}
	s, err := Encode(conn, nil, nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	_, err = testCodec().Decode(context.Background(), s, nil)
	if !errors.Is(err, kerrors.ErrUnknownPlugin) {
		t.Errorf("Expected ErrUnknownPlugin, got %v", err)
	}
	if errors.Is(err, kerrors.ErrInvalidLink) {
		t.Error("Expected an unknown plugin not to be reported as an invalid link")
	}
}

func TestParseRejectsMalformedLinks(t *testing.T) {
	tests := []struct {
		name string
		link string
	}{
		{"empty", ""},
		{"wrong scheme", "http://storage/1/not-encrypted/YQ=="},
		{"missing prefix", "not-encrypted/YQ=="},
		{"wrong version", "syncany://storage/2/not-encrypted/YQ=="},
		{"no payload", "syncany://storage/1/not-encrypted/"},
		{"separator in unencrypted payload", "syncany://storage/1/not-encrypted/-YWJj"},
		{"salt too short", "syncany://storage/1/YWJjZA==-YWJj"},
		{"no separator", "syncany://storage/1/YWJj"},
		{"bad base64 payload", "syncany://storage/1/not-encrypted/!!!"},
		{"bad base64 salt", "syncany://storage/1/***-YWJj"},
		{"bad base64 ciphertext", "syncany://storage/1/YWJj-***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &countingProvider{}
			if _, err := Parse(tt.link); !errors.Is(err, kerrors.ErrInvalidLink) {
				t.Errorf("Expected ErrInvalidLink from Parse, got %v", err)
			}
			if _, err := testCodec().Decode(context.Background(), tt.link, provider); !errors.Is(err, kerrors.ErrInvalidLink) {
				t.Errorf("Expected ErrInvalidLink from Decode, got %v", err)
			}
			if provider.calls != 0 {
				t.Error("Expected no password request for a malformed link")
			}
		})
	}
}

func TestParseAcceptsSlashInSalt(t *testing.T) {
	salt := bytes.Repeat([]byte{0xff}, crypto.SaltSize)
	s := Prefix + base64.StdEncoding.EncodeToString(salt) + "-YWJj"
	if !strings.Contains(s, "/") {
		t.Fatalf("Expected salt encoding to contain '/', got %q", s)
	}

	l, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !l.Encrypted || !bytes.Equal(l.Salt, salt) {
		t.Errorf("Expected encrypted link with the given salt, got %+v", l)
	}
}

func TestParseAcceptsBase64Variants(t *testing.T) {
	payload := []byte("type = \"local\"\n[settings]\npath = \"/a?b>\"\n")

	for _, enc := range base64Encodings {
		l, err := Parse(Prefix + "not-encrypted/" + enc.EncodeToString(payload))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if string(l.Payload) != string(payload) {
			t.Errorf("Expected payload to survive, got %q", l.Payload)
		}
	}
}

func TestDecodeRejectsNonConnectionPayload(t *testing.T) {
	s := Prefix + "not-encrypted/" + base64.StdEncoding.EncodeToString([]byte("this is = not toml ["))
	if _, err := testCodec().Decode(context.Background(), s, nil); !errors.Is(err, kerrors.ErrInvalidLink) {
		t.Errorf("Expected ErrInvalidLink, got %v", err)
	}
}

func TestDecodeRespectsContext(t *testing.T) {
	s, err := Encode(testConnection(), nil, deriveKey(t, "pw1", ""))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testCodec().Decode(ctx, s, StaticPasswords{Encrypt: "pw1"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
