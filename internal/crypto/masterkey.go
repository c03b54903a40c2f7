package crypto

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	kerrors "github.com/PolarWolf314/syncany/internal/errors"
)

// MasterKey is the repository-wide key bundle derived from the user's passwords.
//
// The encrypt key is always present. The signing key is optional: a master key
// without one grants read-only access. A MasterKey is immutable after
// construction and may be shared between goroutines.
type MasterKey struct {
	encryptKey []byte
	signingKey ed25519.PrivateKey
	salt       []byte
}

// NewMasterKey builds a master key. signingKey may be nil.
func NewMasterKey(encryptKey []byte, signingKey ed25519.PrivateKey, salt []byte) (*MasterKey, error) {
	if len(encryptKey) == 0 {
		return nil, fmt.Errorf("%w: encrypt key", kerrors.ErrMissingKeyMaterial)
	}
	if signingKey != nil && len(signingKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: signing key must be %d bytes, got %d", kerrors.ErrMissingKeyMaterial, ed25519.PrivateKeySize, len(signingKey))
	}

	return &MasterKey{
		encryptKey: bytes.Clone(encryptKey),
		signingKey: bytes.Clone(signingKey),
		salt:       bytes.Clone(salt),
	}, nil
}

// EncryptKey returns a copy of the symmetric encryption key.
func (k *MasterKey) EncryptKey() []byte {
	return bytes.Clone(k.encryptKey)
}

// SigningKey returns a copy of the signing key, or nil for read-only keys.
func (k *MasterKey) SigningKey() ed25519.PrivateKey {
	if k.signingKey == nil {
		return nil
	}
	return bytes.Clone(k.signingKey)
}

// Salt returns a copy of the salt the key was derived with.
func (k *MasterKey) Salt() []byte {
	return bytes.Clone(k.salt)
}

// HasWriteAccess reports whether the key can sign.
func (k *MasterKey) HasWriteAccess() bool {
	return k.signingKey != nil
}

// VerifyKey returns the public half of the signing key, or nil.
func (k *MasterKey) VerifyKey() ed25519.PublicKey {
	if k.signingKey == nil {
		return nil
	}
	return bytes.Clone(k.signingKey.Public().(ed25519.PublicKey))
}

// Equal compares the encrypt key, salt and signing key.
func (k *MasterKey) Equal(other *MasterKey) bool {
	if k == nil || other == nil {
		return k == other
	}
	return bytes.Equal(k.encryptKey, other.encryptKey) &&
		bytes.Equal(k.salt, other.salt) &&
		bytes.Equal(k.signingKey, other.signingKey)
}

// ReadOnly returns a copy of the key without the signing key.
func (k *MasterKey) ReadOnly() *MasterKey {
	return &MasterKey{encryptKey: k.encryptKey, salt: k.salt}
}
