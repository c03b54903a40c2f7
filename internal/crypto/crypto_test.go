package crypto

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"io"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/syncany/internal/errors"
)

// testParams keeps scrypt cheap so the tests stay fast.
var testParams = KDFParams{N: 1 << 10, R: 8, P: 1}

func testKeyService() *KeyService {
	return &KeyService{Params: testParams}
}

func deriveTestKey(t *testing.T, encryptPassword, signPassword string, salt []byte) *MasterKey {
	t.Helper()
	key, err := testKeyService().DeriveMasterKey(context.Background(), encryptPassword, signPassword, salt)
	if err != nil {
		t.Fatalf("Failed to derive master key: %v", err)
	}
	return key
}

func TestParseCipherSuite(t *testing.T) {
	suite, err := ParseCipherSuite("1, 2")
	if err != nil {
		t.Fatalf("Failed to parse suite: %v", err)
	}
	if suite.String() != "1,2" {
		t.Errorf("Expected suite '1,2', got '%s'", suite.String())
	}
	if suite[0].Name != "AES/GCM/NoPadding-128" {
		t.Errorf("Expected first spec AES-128, got %s", suite[0].Name)
	}

	if _, err := ParseCipherSuite(""); !errors.Is(err, kerrors.ErrEmptyCipherSuite) {
		t.Errorf("Expected ErrEmptyCipherSuite, got %v", err)
	}
	if _, err := ParseCipherSuite("1,99"); !errors.Is(err, kerrors.ErrUnknownCipherSpec) {
		t.Errorf("Expected ErrUnknownCipherSpec, got %v", err)
	}
	if _, err := ParseCipherSuite("aes"); !errors.Is(err, kerrors.ErrUnknownCipherSpec) {
		t.Errorf("Expected ErrUnknownCipherSpec for non-numeric id, got %v", err)
	}
}

func TestCipherSpecsAreSortedAndUsable(t *testing.T) {
	specs := CipherSpecs()
	for i, spec := range specs {
		if i > 0 && specs[i-1].ID >= spec.ID {
			t.Fatalf("Expected specs sorted by id, got %v", specs)
		}
		aead, err := spec.NewAEAD(make([]byte, spec.KeySize))
		if err != nil {
			t.Fatalf("Failed to create AEAD for %s: %v", spec, err)
		}
		if aead.NonceSize() != spec.NonceSize {
			t.Errorf("Expected nonce size %d for %s, got %d", spec.NonceSize, spec, aead.NonceSize())
		}
		if aead.Overhead() != spec.TagSize {
			t.Errorf("Expected tag size %d for %s, got %d", spec.TagSize, spec, aead.Overhead())
		}
	}

	if _, err := specs[0].NewAEAD([]byte("short")); err == nil {
		t.Error("Expected error for wrong key size")
	}
}

func TestDeriveMasterKeyIsDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{7}, SaltSize)

	a := deriveTestKey(t, "pw1", "pw2", salt)
	b := deriveTestKey(t, "pw1", "pw2", salt)
	if !a.Equal(b) {
		t.Error("Expected same passwords and salt to yield the same master key")
	}
	if !bytes.Equal(a.VerifyKey(), b.VerifyKey()) {
		t.Error("Expected same verify key")
	}

	c := deriveTestKey(t, "pw1", "other", salt)
	if !bytes.Equal(a.EncryptKey(), c.EncryptKey()) {
		t.Error("Expected encrypt key to depend only on the encrypt password")
	}
	if bytes.Equal(a.VerifyKey(), c.VerifyKey()) {
		t.Error("Expected different sign passwords to yield different verify keys")
	}

	d := deriveTestKey(t, "pw1", "pw2", bytes.Repeat([]byte{8}, SaltSize))
	if bytes.Equal(a.EncryptKey(), d.EncryptKey()) {
		t.Error("Expected different salts to yield different keys")
	}
}

func TestDeriveMasterKeyReadOnly(t *testing.T) {
	key := deriveTestKey(t, "pw1", "", nil)
	if key.HasWriteAccess() {
		t.Error("Expected empty sign password to yield a read-only key")
	}
	if key.VerifyKey() != nil {
		t.Error("Expected no verify key for read-only key")
	}
	if len(key.Salt()) != SaltSize {
		t.Errorf("Expected generated salt of %d bytes, got %d", SaltSize, len(key.Salt()))
	}
}

func TestDeriveMasterKeyNotifies(t *testing.T) {
	var got []string
	service := &KeyService{Params: testParams, Notify: func(msg string) { got = append(got, msg) }}

	if _, err := service.DeriveMasterKey(context.Background(), "pw", "", nil); err != nil {
		t.Fatalf("Failed to derive: %v", err)
	}
	if len(got) != 1 || got[0] != DeriveNotice {
		t.Errorf("Expected one derive notice, got %v", got)
	}
}

func TestDeriveMasterKeyRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := testKeyService().DeriveMasterKey(ctx, "pw", "pw", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestKDFParamsValidation(t *testing.T) {
	service := &KeyService{Params: KDFParams{N: 1000, R: 8, P: 1}}
	if _, err := service.DeriveMasterKey(context.Background(), "pw", "", nil); err == nil {
		t.Error("Expected error for N that is not a power of two")
	}
}

func TestNewMasterKeyValidation(t *testing.T) {
	if _, err := NewMasterKey(nil, nil, nil); !errors.Is(err, kerrors.ErrMissingKeyMaterial) {
		t.Errorf("Expected ErrMissingKeyMaterial, got %v", err)
	}
	if _, err := NewMasterKey([]byte("k"), ed25519.PrivateKey("short"), nil); !errors.Is(err, kerrors.ErrMissingKeyMaterial) {
		t.Errorf("Expected ErrMissingKeyMaterial for bad signing key, got %v", err)
	}
}

func TestMasterKeyAccessorsReturnCopies(t *testing.T) {
	key := deriveTestKey(t, "pw1", "pw2", nil)

	encryptKey := key.EncryptKey()
	encryptKey[0] ^= 0xff
	if bytes.Equal(encryptKey, key.EncryptKey()) {
		t.Error("Expected EncryptKey to return a copy")
	}

	readOnly := key.ReadOnly()
	if readOnly.HasWriteAccess() {
		t.Error("Expected ReadOnly key without write access")
	}
	if !bytes.Equal(readOnly.EncryptKey(), key.EncryptKey()) {
		t.Error("Expected ReadOnly to keep the encrypt key")
	}
	if readOnly.Equal(key) {
		t.Error("Expected ReadOnly key to differ from the full key")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := deriveTestKey(t, "pw1", "", nil)

	sizes := []int{0, 1, 100, ChunkSize - 1, ChunkSize, ChunkSize + 1, 3*ChunkSize + 17}
	suites := []string{"1", "2", "1,2", "3,4", "5", "1,2,3,4,5"}

	for _, ids := range suites {
		suite, err := ParseCipherSuite(ids)
		if err != nil {
			t.Fatalf("Failed to parse suite %s: %v", ids, err)
		}
		for _, size := range sizes {
			plaintext := bytes.Repeat([]byte("syncany"), size/7+1)[:size]

			ciphertext, err := Encrypt(plaintext, suite, key)
			if err != nil {
				t.Fatalf("Failed to encrypt %d bytes with suite %s: %v", size, ids, err)
			}
			if size > 16 && bytes.Contains(ciphertext, plaintext[:16]) {
				t.Errorf("Expected ciphertext not to contain plaintext (suite %s)", ids)
			}

			got, err := Decrypt(ciphertext, key)
			if err != nil {
				t.Fatalf("Failed to decrypt %d bytes with suite %s: %v", size, ids, err)
			}
			if !bytes.Equal(got, plaintext) {
				t.Errorf("Round trip mismatch for %d bytes with suite %s", size, ids)
			}
		}
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	key := deriveTestKey(t, "pw1", "", nil)
	suite, _ := NewCipherSuite(DefaultCipherSuiteIDs...)

	a, err := Encrypt([]byte("same"), suite, key)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}
	b, err := Encrypt([]byte("same"), suite, key)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("Expected two encryptions of the same plaintext to differ")
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	key := deriveTestKey(t, "pw1", "", nil)
	other := deriveTestKey(t, "wrong", "", key.Salt())
	suite, _ := NewCipherSuite(DefaultCipherSuiteIDs...)

	ciphertext, err := Encrypt([]byte("secret payload"), suite, key)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	if _, err := Decrypt(ciphertext, other); !errors.Is(err, kerrors.ErrDecryptFailed) {
		t.Errorf("Expected ErrDecryptFailed, got %v", err)
	}
}

func TestDecryptDetectsTampering(t *testing.T) {
	key := deriveTestKey(t, "pw1", "", nil)
	suite, _ := NewCipherSuite(DefaultCipherSuiteIDs...)

	plaintext := bytes.Repeat([]byte{0x42}, 2*ChunkSize+5)
	ciphertext, err := Encrypt(plaintext, suite, key)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	t.Run("flipped body byte", func(t *testing.T) {
		tampered := bytes.Clone(ciphertext)
		tampered[len(tampered)/2] ^= 0x01
		if _, err := Decrypt(tampered, key); !errors.Is(err, kerrors.ErrDecryptFailed) {
			t.Errorf("Expected ErrDecryptFailed, got %v", err)
		}
	})

	t.Run("flipped header salt", func(t *testing.T) {
		tampered := bytes.Clone(ciphertext)
		tampered[len(streamMagic)+3] ^= 0x01
		if _, err := Decrypt(tampered, key); !errors.Is(err, kerrors.ErrDecryptFailed) {
			t.Errorf("Expected ErrDecryptFailed, got %v", err)
		}
	})

	t.Run("truncated at chunk boundary", func(t *testing.T) {
		// Header plus the first full chunk of the outer layer.
		headerSize := len(streamMagic) + 2 + 2*(1+layerSaltSize+12)
		outerChunk := ChunkSize + 16
		truncated := ciphertext[:headerSize+outerChunk]
		if _, err := Decrypt(truncated, key); !errors.Is(err, kerrors.ErrDecryptFailed) {
			t.Errorf("Expected ErrDecryptFailed, got %v", err)
		}
	})

	t.Run("truncated mid chunk", func(t *testing.T) {
		if _, err := Decrypt(ciphertext[:len(ciphertext)-3], key); !errors.Is(err, kerrors.ErrDecryptFailed) {
			t.Errorf("Expected ErrDecryptFailed, got %v", err)
		}
	})
}

func TestDecryptRejectsBadHeader(t *testing.T) {
	key := deriveTestKey(t, "pw1", "", nil)

	cases := map[string][]byte{
		"empty":       {},
		"bad magic":   []byte("Xy\x02\x05\x01\x01"),
		"bad version": []byte("Sy\x02\x05\x09\x01"),
		"no specs":    []byte("Sy\x02\x05\x01\x00"),
		"unknown id":  append([]byte("Sy\x02\x05\x01\x01\x63"), make([]byte, 24)...),
		"short":       []byte("Sy\x02\x05\x01\x01\x01abc"),
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewDecryptReader(bytes.NewReader(input), key)
			if !errors.Is(err, kerrors.ErrInvalidHeader) {
				t.Errorf("Expected ErrInvalidHeader, got %v", err)
			}
		})
	}
}

func TestEncryptWriterClosedTwice(t *testing.T) {
	key := deriveTestKey(t, "pw1", "", nil)
	suite, _ := NewCipherSuite(1)

	var buf bytes.Buffer
	w, err := NewEncryptWriter(&buf, suite, key)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}
	if err := w.Close(); !errors.Is(err, kerrors.ErrStreamClosed) {
		t.Errorf("Expected ErrStreamClosed on second close, got %v", err)
	}
	if _, err := w.Write([]byte("x")); !errors.Is(err, kerrors.ErrStreamClosed) {
		t.Errorf("Expected ErrStreamClosed on write after close, got %v", err)
	}
}

func TestDecryptReaderSmallReads(t *testing.T) {
	key := deriveTestKey(t, "pw1", "", nil)
	suite, _ := NewCipherSuite(DefaultCipherSuiteIDs...)

	plaintext := []byte(strings.Repeat("0123456789", ChunkSize/5))
	ciphertext, err := Encrypt(plaintext, suite, key)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	r, err := NewDecryptReader(bytes.NewReader(ciphertext), key)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	defer r.Close()

	var got bytes.Buffer
	buf := make([]byte, 7)
	for {
		n, err := r.Read(buf)
		got.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}
	if !bytes.Equal(got.Bytes(), plaintext) {
		t.Error("Expected small reads to reproduce the plaintext")
	}
}
