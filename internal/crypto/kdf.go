package crypto

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/scrypt"
)

const (
	// SaltSize is the size of a freshly generated master key salt.
	SaltSize = 32

	// EncryptKeySize is the size of the derived master encrypt key.
	EncryptKeySize = 32

	// DeriveNotice is passed to KeyService.Notify before a derivation starts.
	DeriveNotice = "Creating master key from password (this might take a while) ..."
)

// HKDF info strings separating the two halves of the master key.
const (
	infoEncryptKey = "syncany-encrypt"
	infoSigningKey = "syncany-sign"
)

// KDFParams holds the scrypt cost parameters.
//
// The parameters are part of the repository format: changing them makes it
// impossible to reconstruct keys of existing repositories from their salt.
type KDFParams struct {
	N int
	R int
	P int
}

// DefaultKDFParams returns the parameters used for repositories.
// N=2^17, r=8, p=1 (128 MiB per derivation).
func DefaultKDFParams() KDFParams {
	return KDFParams{N: 1 << 17, R: 8, P: 1}
}

func (p KDFParams) validate() error {
	if p.N <= 1 || p.N&(p.N-1) != 0 {
		return fmt.Errorf("scrypt: N must be a power of two > 1, got %d", p.N)
	}
	if p.R <= 0 {
		return fmt.Errorf("scrypt: r must be > 0")
	}
	if p.P <= 0 {
		return fmt.Errorf("scrypt: p must be > 0")
	}
	return nil
}

// KeyService derives master keys from passwords.
type KeyService struct {
	// Params are the scrypt cost parameters. Zero value means DefaultKDFParams.
	Params KDFParams

	// Notify, if set, is called with DeriveNotice before each derivation.
	Notify func(msg string)
}

// NewKeyService returns a KeyService using the default parameters.
func NewKeyService(notify func(string)) *KeyService {
	return &KeyService{Params: DefaultKDFParams(), Notify: notify}
}

// GenerateSalt returns SaltSize random bytes.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveMasterKey derives a master key from the given passwords.
//
// If salt is nil a new random salt is generated (repository creation);
// otherwise the salt is reused, so the same passwords regenerate the same
// key material (repository join). An empty signPassword yields a read-only key.
//
// Derivation is CPU and memory bound and blocks for a perceptible time.
func (s *KeyService) DeriveMasterKey(ctx context.Context, encryptPassword, signPassword string, salt []byte) (*MasterKey, error) {
	params := s.Params
	if params == (KDFParams{}) {
		params = DefaultKDFParams()
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	if len(salt) == 0 {
		var err error
		if salt, err = GenerateSalt(); err != nil {
			return nil, err
		}
	}

	if s.Notify != nil {
		s.Notify(DeriveNotice)
	}

	encryptKey, err := deriveSubkey(ctx, params, encryptPassword, salt, infoEncryptKey, EncryptKeySize)
	if err != nil {
		return nil, fmt.Errorf("deriving encrypt key: %w", err)
	}

	var signingKey ed25519.PrivateKey
	if signPassword != "" {
		seed, err := deriveSubkey(ctx, params, signPassword, salt, infoSigningKey, ed25519.SeedSize)
		if err != nil {
			return nil, fmt.Errorf("deriving signing key: %w", err)
		}
		signingKey = ed25519.NewKeyFromSeed(seed)
	}

	return NewMasterKey(encryptKey, signingKey, salt)
}

func deriveSubkey(ctx context.Context, params KDFParams, password string, salt []byte, info string, size int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stretched, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, 32)
	if err != nil {
		return nil, fmt.Errorf("scrypt: %w", err)
	}

	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, stretched, salt, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

// expandKey derives a purpose-bound key from the master encrypt key.
func expandKey(master, salt []byte, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, salt, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}
