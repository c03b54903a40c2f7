package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"sort"
	"strconv"
	"strings"

	kerrors "github.com/PolarWolf314/syncany/internal/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/twofish"
)

// Cipher spec ids. These are part of the on-disk format and must never be reused.
const (
	CipherSpecAES128GCM        = 1
	CipherSpecTwofish128GCM    = 2
	CipherSpecAES256GCM        = 3
	CipherSpecTwofish256GCM    = 4
	CipherSpecChaCha20Poly1305 = 5
)

// DefaultCipherSuiteIDs is the cascade used for new repositories.
var DefaultCipherSuiteIDs = []int{CipherSpecAES128GCM, CipherSpecTwofish128GCM}

// CipherSpec identifies one cipher algorithm, mode and key size.
type CipherSpec struct {
	ID        int
	Name      string
	KeySize   int
	NonceSize int
	TagSize   int

	newAEAD func(key []byte) (cipher.AEAD, error)
}

// NewAEAD creates a cipher.AEAD for this spec with the given key.
func (s CipherSpec) NewAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != s.KeySize {
		return nil, fmt.Errorf("cipher %s: key must be %d bytes, got %d", s.Name, s.KeySize, len(key))
	}
	return s.newAEAD(key)
}

func (s CipherSpec) String() string {
	return fmt.Sprintf("%d:%s", s.ID, s.Name)
}

func newGCM(newBlock func([]byte) (cipher.Block, error)) func([]byte) (cipher.AEAD, error) {
	return func(key []byte) (cipher.AEAD, error) {
		block, err := newBlock(key)
		if err != nil {
			return nil, fmt.Errorf("block cipher: %w", err)
		}
		return cipher.NewGCM(block)
	}
}

func newTwofish(key []byte) (cipher.Block, error) {
	return twofish.NewCipher(key)
}

// cipherSpecs maps cipher spec ids to their spec.
var cipherSpecs = map[int]CipherSpec{
	CipherSpecAES128GCM: {
		ID:        CipherSpecAES128GCM,
		Name:      "AES/GCM/NoPadding-128",
		KeySize:   16,
		NonceSize: 12,
		TagSize:   16,
		newAEAD:   newGCM(aes.NewCipher),
	},
	CipherSpecTwofish128GCM: {
		ID:        CipherSpecTwofish128GCM,
		Name:      "Twofish/GCM/NoPadding-128",
		KeySize:   16,
		NonceSize: 12,
		TagSize:   16,
		newAEAD:   newGCM(newTwofish),
	},
	CipherSpecAES256GCM: {
		ID:        CipherSpecAES256GCM,
		Name:      "AES/GCM/NoPadding-256",
		KeySize:   32,
		NonceSize: 12,
		TagSize:   16,
		newAEAD:   newGCM(aes.NewCipher),
	},
	CipherSpecTwofish256GCM: {
		ID:        CipherSpecTwofish256GCM,
		Name:      "Twofish/GCM/NoPadding-256",
		KeySize:   32,
		NonceSize: 12,
		TagSize:   16,
		newAEAD:   newGCM(newTwofish),
	},
	CipherSpecChaCha20Poly1305: {
		ID:        CipherSpecChaCha20Poly1305,
		Name:      "ChaCha20-Poly1305-256",
		KeySize:   chacha20poly1305.KeySize,
		NonceSize: chacha20poly1305.NonceSize,
		TagSize:   chacha20poly1305.Overhead,
		newAEAD:   chacha20poly1305.New,
	},
}

// CipherSpecByID returns the registered spec for id.
func CipherSpecByID(id int) (CipherSpec, error) {
	spec, ok := cipherSpecs[id]
	if !ok {
		return CipherSpec{}, fmt.Errorf("%w: id %d", kerrors.ErrUnknownCipherSpec, id)
	}
	return spec, nil
}

// CipherSpecs returns all registered specs ordered by id.
func CipherSpecs() []CipherSpec {
	specs := make([]CipherSpec, 0, len(cipherSpecs))
	for _, spec := range cipherSpecs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs
}

// CipherSuite is an ordered cascade of cipher specs. Each entry re-encrypts
// the ciphertext produced by the previous one.
type CipherSuite []CipherSpec

// NewCipherSuite resolves every id against the registry.
func NewCipherSuite(ids ...int) (CipherSuite, error) {
	if len(ids) == 0 {
		return nil, kerrors.ErrEmptyCipherSuite
	}

	suite := make(CipherSuite, 0, len(ids))
	for _, id := range ids {
		spec, err := CipherSpecByID(id)
		if err != nil {
			return nil, err
		}
		suite = append(suite, spec)
	}
	return suite, nil
}

// ParseCipherSuite parses a comma separated id list such as "1,2".
func ParseCipherSuite(s string) (CipherSuite, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, kerrors.ErrEmptyCipherSuite
	}

	var ids []int
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a cipher spec id", kerrors.ErrUnknownCipherSpec, part)
		}
		ids = append(ids, id)
	}
	return NewCipherSuite(ids...)
}

// IDs returns the spec ids in cascade order.
func (s CipherSuite) IDs() []int {
	ids := make([]int, len(s))
	for i, spec := range s {
		ids[i] = spec.ID
	}
	return ids
}

// String returns the suite in the form accepted by ParseCipherSuite.
func (s CipherSuite) String() string {
	parts := make([]string, len(s))
	for i, spec := range s {
		parts[i] = strconv.Itoa(spec.ID)
	}
	return strings.Join(parts, ",")
}
